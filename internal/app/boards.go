package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/tasting/internal/adapters/mq/queue"
	"github.com/okian/tasting/internal/domain/model"
	"github.com/okian/tasting/internal/domain/ranking"
	"github.com/okian/tasting/pkg/logger"
	"github.com/okian/tasting/pkg/metrics"
)

const (
	boardItems        = "items"
	boardParticipants = "participants"
	boardCommunity    = "community"
)

// ItemLeaderboard ranks items by mean score from a fresh read of every
// report. limit <= 0 returns the whole board.
func (s *Service) ItemLeaderboard(ctx context.Context, limit int) ([]ranking.ItemEntry, error) {
	start := time.Now()
	reports, err := s.allReports(ctx, boardItems)
	if err != nil {
		return nil, err
	}
	board := ranking.Top(s.ranker.RankItems(reports), limit)
	metrics.RecordLeaderboardBuild(boardItems, sinceMs(start))
	return board, nil
}

// ParticipantLeaderboard ranks participants by report count.
func (s *Service) ParticipantLeaderboard(ctx context.Context, limit int) ([]ranking.ParticipantEntry, error) {
	start := time.Now()
	reports, err := s.allReports(ctx, boardParticipants)
	if err != nil {
		return nil, err
	}
	board := ranking.Top(s.ranker.RankParticipants(reports), limit)
	metrics.RecordLeaderboardBuild(boardParticipants, sinceMs(start))
	return board, nil
}

// Community returns the summary and both boards. All three come from the
// same read, so they always agree with each other.
func (s *Service) Community(ctx context.Context, limit int) (ranking.Community, error) {
	start := time.Now()
	reports, err := s.allReports(ctx, boardCommunity)
	if err != nil {
		return ranking.Community{}, err
	}

	var out ranking.Community
	var g errgroup.Group
	g.Go(func() error {
		out.Summary = s.ranker.Summary(reports)
		return nil
	})
	g.Go(func() error {
		out.Items = ranking.Top(s.ranker.RankItems(reports), limit)
		return nil
	})
	g.Go(func() error {
		out.Participants = ranking.Top(s.ranker.RankParticipants(reports), limit)
		return nil
	})
	if err := g.Wait(); err != nil {
		return ranking.Community{}, err
	}

	metrics.UpdateTotalReports(out.Summary.TotalReports)
	metrics.UpdateTotalParticipants(out.Summary.TotalParticipants)
	metrics.RecordLeaderboardBuild(boardCommunity, sinceMs(start))
	return out, nil
}

func (s *Service) allReports(ctx context.Context, board string) ([]model.Report, error) {
	reports, err := s.catalog.ListAllReports(ctx)
	if err != nil {
		metrics.RecordLeaderboardError(board)
		return nil, fmt.Errorf("%s leaderboard: %w", board, err)
	}
	return reports, nil
}

// Reconcile drops reports left behind by deleted items, then queues a
// recompute of every item and returns how many jobs were queued. Items
// already waiting are skipped.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	return s.enqueueAll(ctx, queue.ReasonManual)
}

func (s *Service) enqueueAll(ctx context.Context, reason string) (int, error) {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return 0, ErrNotStarted
	}

	if _, err := s.catalog.PruneOrphanReports(ctx); err != nil {
		s.logger.Warn(ctx, "orphan report sweep failed", logger.String("reason", reason), logger.Error(err))
	}

	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	queued := 0
	now := s.now()
	for _, it := range items {
		err := q.Enqueue(ctx, queue.Job{ItemID: it.ID, Reason: reason, EnqueuedAt: now})
		switch {
		case err == nil:
			queued++
		case errors.Is(err, queue.ErrPending):
		case errors.Is(err, queue.ErrFull):
			return queued, fmt.Errorf("reconcile: %w", ErrQueueFull)
		default:
			return queued, fmt.Errorf("reconcile: %w", err)
		}
	}
	return queued, nil
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
