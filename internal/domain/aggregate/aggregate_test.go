package aggregate_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/okian/tasting/internal/domain/aggregate"
	"github.com/okian/tasting/internal/domain/model"
	"github.com/okian/tasting/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeStore struct {
	mu      sync.Mutex
	items   map[string]model.Item
	reports map[string][]model.Report
	puts    []model.Item

	getErr  error
	listErr error
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]model.Item{}, reports: map[string][]model.Report{}}
}

func (f *fakeStore) GetItem(_ context.Context, id string) (model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return model.Item{}, f.getErr
	}
	it, ok := f.items[id]
	if !ok {
		return model.Item{}, model.ErrNotFound
	}
	return it, nil
}

func (f *fakeStore) ListItemReports(_ context.Context, id string) ([]model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Report(nil), f.reports[id]...), nil
}

func (f *fakeStore) PutItem(_ context.Context, it model.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.items[it.ID] = it
	f.puts = append(f.puts, it)
	return nil
}

func reportsWithScores(scores ...int) []model.Report {
	out := make([]model.Report, len(scores))
	for i, s := range scores {
		out[i] = model.Report{Score: model.Score(s)}
	}
	return out
}

func TestCompute(t *testing.T) {
	Convey("Given report sets", t, func() {
		Convey("When there are no reports", func() {
			So(aggregate.Compute(nil), ShouldResemble, model.Aggregate{})
		})

		Convey("When the mean is fractional it is kept exactly", func() {
			agg := aggregate.Compute(reportsWithScores(85, 90))
			So(agg.AverageScore, ShouldEqual, 87.5)
			So(agg.ReportCount, ShouldEqual, 2)
		})

		Convey("When scores do not divide evenly", func() {
			agg := aggregate.Compute(reportsWithScores(80, 85, 90, 91))
			So(agg.AverageScore, ShouldEqual, 86.5)
			agg = aggregate.Compute(reportsWithScores(1, 0, 0))
			So(agg.AverageScore, ShouldAlmostEqual, 1.0/3.0)
		})

		Convey("When a malformed score decoded as zero is present it still counts", func() {
			agg := aggregate.Compute(reportsWithScores(90, 0))
			So(agg.AverageScore, ShouldEqual, 45)
			So(agg.ReportCount, ShouldEqual, 2)
		})
	})
}

func TestRecompute(t *testing.T) {
	Convey("Given an aggregator over a store", t, func() {
		ctx := context.Background()
		store := newFakeStore()
		agg := aggregate.New(store, aggregate.WithLogger(logger.Named("test")))
		store.items["s1"] = model.Item{ID: "s1", Name: "獺祭", Category: model.CategoryJunmaiDaiginjo, Origin: "山口"}

		Convey("When the item has reports", func() {
			store.reports["s1"] = reportsWithScores(85, 90)
			got, err := agg.Recompute(ctx, "s1")

			Convey("Then the aggregate is written onto the item once", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, model.Aggregate{AverageScore: 87.5, ReportCount: 2})
				So(store.puts, ShouldHaveLength, 1)
				So(store.items["s1"].AverageScore, ShouldEqual, 87.5)
				So(store.items["s1"].Origin, ShouldEqual, "山口")
				So(store.items["s1"].Name, ShouldEqual, "獺祭")
			})
		})

		Convey("When recomputing twice with nothing changed in between", func() {
			store.reports["s1"] = reportsWithScores(80, 85, 90, 91)
			first, err := agg.Recompute(ctx, "s1")
			So(err, ShouldBeNil)
			afterFirst := store.items["s1"]
			second, err := agg.Recompute(ctx, "s1")
			So(err, ShouldBeNil)

			Convey("Then both the aggregate and the stored item are unchanged", func() {
				So(second, ShouldResemble, first)
				So(store.items["s1"], ShouldResemble, afterFirst)
				So(store.puts, ShouldHaveLength, 2)
				So(store.puts[1], ShouldResemble, store.puts[0])
			})
		})

		Convey("When the last report is gone", func() {
			store.items["s1"] = store.items["s1"].WithAggregate(model.Aggregate{AverageScore: 88, ReportCount: 1})
			got, err := agg.Recompute(ctx, "s1")

			Convey("Then the aggregate resets to zero", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, model.Aggregate{})
				So(store.items["s1"].ReportCount, ShouldEqual, 0)
				So(store.items["s1"].AverageScore, ShouldEqual, 0)
			})
		})

		Convey("When the item does not exist", func() {
			_, err := agg.Recompute(ctx, "missing")

			Convey("Then NotFound is returned and nothing is written", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				So(store.puts, ShouldBeEmpty)
			})
		})

		Convey("When reading reports fails", func() {
			store.items["s1"] = store.items["s1"].WithAggregate(model.Aggregate{AverageScore: 70, ReportCount: 3})
			store.listErr = model.ErrStoreUnavailable
			_, err := agg.Recompute(ctx, "s1")

			Convey("Then the error surfaces and the item keeps its last state", func() {
				So(errors.Is(err, model.ErrStoreUnavailable), ShouldBeTrue)
				So(store.items["s1"].Aggregate(), ShouldResemble, model.Aggregate{AverageScore: 70, ReportCount: 3})
			})
		})

		Convey("When writing the item fails", func() {
			store.reports["s1"] = reportsWithScores(60)
			store.putErr = model.ErrStoreUnavailable
			_, err := agg.Recompute(ctx, "s1")

			Convey("Then the error surfaces", func() {
				So(errors.Is(err, model.ErrStoreUnavailable), ShouldBeTrue)
				So(store.items["s1"].ReportCount, ShouldEqual, 0)
			})
		})

		Convey("When other items exist", func() {
			store.items["s2"] = model.Item{ID: "s2", AverageScore: 50, ReportCount: 1}
			store.reports["s1"] = reportsWithScores(100)
			_, err := agg.Recompute(ctx, "s1")

			Convey("Then they are not written", func() {
				So(err, ShouldBeNil)
				ids := make([]string, 0, len(store.puts))
				for _, p := range store.puts {
					ids = append(ids, p.ID)
				}
				sort.Strings(ids)
				So(ids, ShouldResemble, []string{"s1"})
				So(store.items["s2"].AverageScore, ShouldEqual, 50)
			})
		})
	})
}
