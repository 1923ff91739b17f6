package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/tasting/internal/adapters/mq/queue"
	"github.com/okian/tasting/internal/adapters/mq/worker"
	"github.com/okian/tasting/internal/domain/model"
	logging "github.com/okian/tasting/pkg/logger"
)

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 16)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

type mockRecomputer struct {
	mu     sync.Mutex
	calls  map[string]int
	errors map[string]error
	delay  time.Duration
}

func newMockRecomputer() *mockRecomputer {
	return &mockRecomputer{calls: map[string]int{}, errors: map[string]error{}}
}

func (m *mockRecomputer) Recompute(ctx context.Context, itemID string) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[itemID]++
	return m.errors[itemID]
}

func (m *mockRecomputer) setError(itemID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[itemID] = err
}

func (m *mockRecomputer) count(itemID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[itemID]
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		rec := newMockRecomputer()

		convey.Convey("When it is created with options", func() {
			w := worker.NewInMemoryWorker(q, rec, worker.WithName("test-worker"), worker.WithJobTimeout(time.Second))

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running", func() {
			w := worker.NewInMemoryWorker(q, rec)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And a job arrives, the item is recomputed", func() {
				q.jobs <- queue.Job{ItemID: "item-1", Reason: queue.ReasonManual}
				convey.So(eventually(func() bool { return rec.count("item-1") == 1 }), convey.ShouldBeTrue)
			})

			convey.Convey("And a recompute fails, the worker keeps going", func() {
				rec.setError("bad", errors.New("store down"))
				q.jobs <- queue.Job{ItemID: "bad"}
				q.jobs <- queue.Job{ItemID: "good"}
				convey.So(eventually(func() bool { return rec.count("good") == 1 }), convey.ShouldBeTrue)
				convey.So(rec.count("bad"), convey.ShouldEqual, 1)
			})

			convey.Convey("And it shuts down gracefully", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue is closed, Run returns", func() {
			w := worker.NewInMemoryWorker(q, rec)
			finished := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(finished)
			}()
			_ = q.Close()

			select {
			case <-finished:
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(time.Second):
				convey.So("worker still running", convey.ShouldBeEmpty)
			}
		})

		convey.Convey("When the context is cancelled, Run returns", func() {
			w := worker.NewInMemoryWorker(q, rec)
			ctx, cancel := context.WithCancel(context.Background())
			finished := make(chan struct{})
			go func() {
				w.Run(ctx)
				close(finished)
			}()
			cancel()

			select {
			case <-finished:
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(time.Second):
				convey.So("worker still running", convey.ShouldBeEmpty)
			}
		})

		convey.Convey("When a recompute outlives the job timeout", func() {
			rec.delay = 200 * time.Millisecond
			w := worker.NewInMemoryWorker(q, rec, worker.WithJobTimeout(10*time.Millisecond))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)
			q.jobs <- queue.Job{ItemID: "slow"}

			convey.Convey("Then the call is abandoned without recording a result", func() {
				time.Sleep(50 * time.Millisecond)
				convey.So(rec.count("slow"), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(256))
		rec := newMockRecomputer()
		rec.setError("broken", errors.New("boom"))
		rec.setError("gone", fmt.Errorf("get item: %w", model.ErrNotFound))

		pool := worker.NewPool(4, q, rec)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When many items are enqueued", func() {
			for i := range 100 {
				convey.So(q.Enqueue(ctx, queue.Job{ItemID: fmt.Sprintf("item-%d", i)}), convey.ShouldBeNil)
			}
			convey.So(q.Enqueue(ctx, queue.Job{ItemID: "broken"}), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, queue.Job{ItemID: "gone"}), convey.ShouldBeNil)

			convey.Convey("Then every job is processed and failures are counted", func() {
				ok := eventually(func() bool {
					s := pool.Stats()
					return s.Processed+s.Failed == 102
				})
				convey.So(ok, convey.ShouldBeTrue)

				s := pool.Stats()
				convey.So(s.Workers, convey.ShouldEqual, 4)
				convey.So(s.Failed, convey.ShouldEqual, 1)
				convey.So(s.Processed, convey.ShouldEqual, 101)
				convey.So(rec.count("item-42"), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the pool shuts down", func() {
			err := pool.Shutdown(context.Background())

			convey.Convey("Then the queue is closed and workers stop", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(errors.Is(q.Enqueue(ctx, queue.Job{ItemID: "late"}), queue.ErrClosed), convey.ShouldBeTrue)
			})
		})

		convey.Reset(func() {
			_ = pool.Shutdown(context.Background())
		})
	})
}
