// Package service ties the catalog, aggregator, ranker and reconcile workers
// together behind the operations the HTTP API exposes.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/okian/tasting/internal/adapters/mq/queue"
	"github.com/okian/tasting/internal/adapters/mq/worker"
	"github.com/okian/tasting/internal/adapters/repository"
	"github.com/okian/tasting/internal/domain/aggregate"
	"github.com/okian/tasting/internal/domain/dedupe"
	"github.com/okian/tasting/internal/domain/ranking"
	"github.com/okian/tasting/pkg/logger"
	"github.com/okian/tasting/pkg/metrics"
)

// Service implements the API dependencies for the tasting event.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	catalog    *repository.Catalog
	aggregator *aggregate.Aggregator
	ranker     *ranking.Ranker
	deduper    dedupe.Deduper
	queue      *queue.InMemoryQueue
	pool       *worker.Pool

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	guestName         string
	reconcileInterval time.Duration
	now               func() time.Time

	// State
	started  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	loopWG   sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the document store. Without it the service keeps
// everything in memory.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of reconcile workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the reconcile queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithGuestName sets the participant name given to anonymous reports.
func WithGuestName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.guestName = name
		}
	}
}

// WithReconcileInterval schedules a reconcile of every item. Zero disables it.
func WithReconcileInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.reconcileInterval = d
		}
	}
}

// WithClock replaces time.Now for keys and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Item and report operations work right away;
// Start is needed for reconciling.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		dedupeSize:  50000,
		guestName:   ranking.DefaultGuestName,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.store == nil {
		s.store = repository.Instrument(repository.NewMemoryStore(), repository.BackendMemory)
	}

	s.catalog = repository.NewCatalog(s.store)
	s.aggregator = aggregate.New(s.catalog)
	s.ranker = ranking.New(ranking.WithGuestName(s.guestName))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start launches the reconcile workers and, when configured, the periodic
// reconcile loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting tasting service...")

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, recomputer{s.aggregator})
	// Workers outlive the start request; Stop ends them.
	s.pool.Start(context.WithoutCancel(ctx))

	if s.reconcileInterval > 0 {
		s.loopWG.Add(1)
		go s.reconcileLoop(context.WithoutCancel(ctx), s.stopCh, s.reconcileInterval)
	}

	s.started = true
	s.logger.Info(ctx, "tasting service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("reconcileInterval", s.reconcileInterval),
	)
	return nil
}

// Stop shuts the workers down and closes the store.
func (s *Service) Stop() {
	ctx := context.Background()

	// The reconcile loop takes the read lock, so it is stopped before Stop
	// takes the write lock.
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.loopWG.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.logger.Info(ctx, "stopping tasting service...")
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
		}
		s.started = false
	}

	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store failed", logger.Error(err))
	}
	s.logger.Info(ctx, "tasting service stopped")
}

func (s *Service) reconcileLoop(ctx context.Context, stop <-chan struct{}, every time.Duration) {
	defer s.loopWG.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := s.enqueueAll(ctx, queue.ReasonPeriodic)
			if err != nil {
				s.logger.Warn(ctx, "periodic reconcile incomplete", logger.Int("enqueued", n), logger.Error(err))
				continue
			}
			s.logger.Debug(ctx, "periodic reconcile enqueued", logger.Int("enqueued", n))
		}
	}
}

// Ping reports whether the store answers.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetStats returns service statistics for monitoring and refreshes the
// corresponding gauges.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"dedupeLen":   s.deduper.Size(),
		"guestName":   s.guestName,
	}

	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["workers"] = s.pool.Stats()
		metrics.UpdateQueueSize(s.queue.Len())
	}

	if items, err := s.catalog.CountItems(ctx); err == nil {
		stats["totalItems"] = items
		metrics.UpdateTotalItems(items)
	} else {
		stats["storeError"] = err.Error()
	}
	if reports, err := s.catalog.ListAllReports(ctx); err == nil {
		summary := s.ranker.Summary(reports)
		stats["totalReports"] = summary.TotalReports
		stats["totalParticipants"] = summary.TotalParticipants
		metrics.UpdateTotalReports(summary.TotalReports)
		metrics.UpdateTotalParticipants(summary.TotalParticipants)
	} else {
		stats["storeError"] = err.Error()
	}

	return stats
}

// recomputer adapts the aggregator to the worker contract.
type recomputer struct {
	a *aggregate.Aggregator
}

func (r recomputer) Recompute(ctx context.Context, itemID string) error {
	_, err := r.a.Recompute(ctx, itemID)
	return err
}
