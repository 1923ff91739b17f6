// Package aggregate derives the per-item score summary from stored reports.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/tasting/internal/domain/model"
	"github.com/okian/tasting/pkg/logger"
	"github.com/okian/tasting/pkg/metrics"
)

// ItemStore is the slice of the catalog the aggregator needs.
type ItemStore interface {
	GetItem(ctx context.Context, itemID string) (model.Item, error)
	ListItemReports(ctx context.Context, itemID string) ([]model.Report, error)
	PutItem(ctx context.Context, item model.Item) error
}

// Compute returns the arithmetic mean score and the count of reports.
// Scores are summed exactly before a single real-valued division; an empty
// input yields the zero aggregate.
func Compute(reports []model.Report) model.Aggregate {
	if len(reports) == 0 {
		return model.Aggregate{}
	}
	var sum int64
	for _, r := range reports {
		sum += int64(r.Score)
	}
	return model.Aggregate{
		AverageScore: float64(sum) / float64(len(reports)),
		ReportCount:  len(reports),
	}
}

// Aggregator recomputes and persists item aggregates.
//
// Recompute is read-then-write without locking. Two recomputes of the same
// item racing each other may persist a stale result; the next mutation or a
// reconcile pass repairs it.
type Aggregator struct {
	store  ItemStore
	logger logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for failures.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Aggregator over store.
func New(store ItemStore, opts ...Option) *Aggregator {
	a := &Aggregator{store: store}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Named("aggregator")
	}
	return a
}

// Recompute reads the item and all of its reports and writes the new
// aggregate back onto the item with one whole-record write.
//
// A missing item returns model.ErrNotFound and nothing is written. On any
// store failure the item keeps its previous state and the error is returned.
func (a *Aggregator) Recompute(ctx context.Context, itemID string) (model.Aggregate, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRecomputeLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	item, err := a.store.GetItem(ctx, itemID)
	if err != nil {
		return model.Aggregate{}, a.fail(ctx, itemID, "get item", err)
	}
	reports, err := a.store.ListItemReports(ctx, itemID)
	if err != nil {
		return model.Aggregate{}, a.fail(ctx, itemID, "list reports", err)
	}

	agg := Compute(reports)
	if err := a.store.PutItem(ctx, item.WithAggregate(agg)); err != nil {
		return model.Aggregate{}, a.fail(ctx, itemID, "put item", err)
	}

	a.logger.Debug(ctx, "aggregate recomputed",
		logger.String("item_id", itemID),
		logger.Float64("average_score", agg.AverageScore),
		logger.Int("report_count", agg.ReportCount),
	)
	return agg, nil
}

func (a *Aggregator) fail(ctx context.Context, itemID, step string, err error) error {
	if !errors.Is(err, model.ErrNotFound) {
		metrics.RecordRecomputeError()
		metrics.RecordErrorByComponent("aggregator", step)
		a.logger.Error(ctx, "recompute failed",
			logger.String("item_id", itemID),
			logger.String("step", step),
			logger.Error(err),
		)
	}
	return fmt.Errorf("recompute %s: %s: %w", itemID, step, err)
}
