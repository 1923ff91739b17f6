// Package loadgen drives a running tasting service with concurrent report
// traffic and checks that aggregates and leaderboards agree with what was
// sent.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	service "github.com/okian/tasting/internal/app"
	"github.com/okian/tasting/internal/domain/model"
	"github.com/okian/tasting/internal/domain/ranking"
	"github.com/okian/tasting/pkg/logger"
)

const (
	settlePoll      = 200 * time.Millisecond
	maxProblemsShow = 10
)

// Runner executes one load run.
type Runner struct {
	cfg     Config
	client  *Client
	limiter *rate.Limiter
	ledger  *ledger
	logger  logger.Logger

	submitted  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// NewRunner validates cfg and prepares a run.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	return &Runner{
		cfg:     cfg,
		client:  NewClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout),
		limiter: rate.NewLimiter(limit, cfg.Workers),
		ledger:  newLedger(),
		logger:  logger.Named("loadgen"),
	}, nil
}

// Run executes the complete load test.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	r, err := NewRunner(cfg)
	if err != nil {
		return Stats{}, err
	}
	return r.Run(ctx)
}

// Run creates the items, submits and mutates reports, asks for a reconcile
// and then verifies the service against the ledger.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	r.logger.Info(ctx, "starting load run",
		logger.String("baseURL", r.cfg.BaseURL),
		logger.Int("items", r.cfg.Items),
		logger.Int("reports", r.cfg.Reports),
		logger.Int("participants", r.cfg.Participants),
		logger.Int("workers", r.cfg.Workers),
		logger.Float64("rate", r.cfg.Rate),
	)

	if _, err := r.client.do(ctx, request{method: http.MethodGet, path: "/readyz"}, nil); err != nil {
		return stats, fmt.Errorf("service not ready: %w", err)
	}

	p := newPlan(r.cfg)
	itemIDs, err := r.createItems(ctx, p)
	if err != nil {
		return stats, err
	}
	stats.ItemsCreated = len(itemIDs)

	if err := r.submitReports(ctx, p, itemIDs); err != nil {
		return r.finish(stats, start), err
	}

	edits := int(float64(r.cfg.Reports) * r.cfg.EditRatio)
	deletes := int(float64(r.cfg.Reports) * r.cfg.DeleteRatio)
	replaced, deleted, err := r.mutate(ctx, edits, deletes)
	stats.ReportsReplaced, stats.ReportsDeleted = replaced, deleted
	if err != nil {
		return r.finish(stats, start), err
	}

	var rec struct {
		Enqueued int `json:"enqueued"`
	}
	if _, err := r.client.do(ctx, request{method: http.MethodPost, path: "/admin/reconcile", want: []int{http.StatusAccepted}}, &rec); err != nil {
		return r.finish(stats, start), fmt.Errorf("reconcile: %w", err)
	}
	stats.ReconcileEnqueued = rec.Enqueued

	verified, err := r.awaitItems(ctx)
	stats.ItemsVerified = verified
	if err != nil {
		return r.finish(stats, start), err
	}

	seen, err := r.verifyBoards(ctx)
	stats.BoardEntriesSeen = seen
	stats = r.finish(stats, start)
	if err != nil {
		return stats, err
	}

	r.logger.Info(ctx, "load run passed",
		logger.Int("submitted", stats.ReportsSubmitted),
		logger.Int("duplicates", stats.ReportsDuplicate),
		logger.Int("replaced", stats.ReportsReplaced),
		logger.Int("deleted", stats.ReportsDeleted),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func (r *Runner) finish(stats Stats, start time.Time) Stats {
	stats.ReportsSubmitted = int(r.submitted.Load())
	stats.ReportsDuplicate = int(r.duplicates.Load())
	stats.RequestsFailed = int(r.failed.Load())
	stats.Duration = time.Since(start)
	return stats
}

// call waits for the rate limiter, sends req and counts failures.
func (r *Runner) call(ctx context.Context, req request, out any) (int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	status, err := r.client.do(ctx, req, out)
	if err != nil {
		r.failed.Add(1)
	}
	return status, err
}

func (r *Runner) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	return g, gctx
}

func (r *Runner) createItems(ctx context.Context, p plan) ([]string, error) {
	ids := make([]string, len(p.items))
	g, gctx := r.group(ctx)
	for i, in := range p.items {
		g.Go(func() error {
			var item model.Item
			if _, err := r.call(gctx, request{method: http.MethodPost, path: "/items", body: in, want: []int{http.StatusCreated}}, &item); err != nil {
				return fmt.Errorf("create item %q: %w", in.Name, err)
			}
			ids[i] = item.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		r.ledger.addItem(id)
	}
	r.logger.Info(ctx, "items created", logger.Int("count", len(ids)), logger.String("run", p.runID))
	return ids, nil
}

func (r *Runner) submitReports(ctx context.Context, p plan, itemIDs []string) error {
	g, gctx := r.group(ctx)
	for _, pr := range p.reports {
		g.Go(func() error {
			itemID := itemIDs[pr.item]
			req := request{
				method:      http.MethodPost,
				path:        "/items/" + itemID + "/reports",
				body:        pr.input,
				participant: pr.participant,
				idemKey:     pr.idemKey,
				want:        []int{http.StatusCreated},
			}
			var res service.ReportResult
			if _, err := r.call(gctx, req, &res); err != nil {
				return err
			}
			if res.Report == nil {
				return fmt.Errorf("%w: submit to %s returned no report", ErrMismatch, itemID)
			}
			r.ledger.add(itemID, res.Report.Key, pr.participant, res.Report.Score)
			r.submitted.Add(1)

			if !pr.retry {
				return nil
			}
			req.want = []int{http.StatusOK}
			var dup service.ReportResult
			if _, err := r.call(gctx, req, &dup); err != nil {
				return fmt.Errorf("resubmit: %w", err)
			}
			if !dup.Duplicate {
				return fmt.Errorf("%w: resubmission to %s was not flagged duplicate", ErrMismatch, itemID)
			}
			r.duplicates.Add(1)
			return nil
		})
	}
	err := g.Wait()
	r.logger.Info(ctx, "reports submitted",
		logger.Int("submitted", int(r.submitted.Load())),
		logger.Int("duplicates", int(r.duplicates.Load())),
	)
	return err
}

// mutate replaces the first edits submitted reports and deletes the next
// deletes ones.
func (r *Runner) mutate(ctx context.Context, edits, deletes int) (int, int, error) {
	p := newPlan(Config{Seed: r.cfg.Seed + 1, Items: 1, Participants: 1, Reports: edits})
	toEdit, toDelete := r.ledger.refs(0, edits), r.ledger.refs(edits, deletes)
	var replaced, deleted atomic.Int64

	g, gctx := r.group(ctx)
	for i, ref := range toEdit {
		g.Go(func() error {
			old, _ := r.ledger.get(ref.itemID, ref.key)
			req := request{
				method:      http.MethodPut,
				path:        "/items/" + ref.itemID + "/reports/" + ref.key,
				body:        p.reports[i].input,
				participant: old.participant,
			}
			var res service.ReportResult
			if _, err := r.call(gctx, req, &res); err != nil {
				return fmt.Errorf("replace: %w", err)
			}
			if res.Report == nil {
				return fmt.Errorf("%w: replace in %s returned no report", ErrMismatch, ref.itemID)
			}
			r.ledger.remove(ref.itemID, ref.key)
			r.ledger.add(ref.itemID, res.Report.Key, old.participant, res.Report.Score)
			replaced.Add(1)
			return nil
		})
	}
	for _, ref := range toDelete {
		g.Go(func() error {
			req := request{method: http.MethodDelete, path: "/items/" + ref.itemID + "/reports/" + ref.key}
			if _, err := r.call(gctx, req, nil); err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			r.ledger.remove(ref.itemID, ref.key)
			deleted.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return int(replaced.Load()), int(deleted.Load()), err
}

// awaitItems polls the item list until every aggregate matches the ledger
// or SettleWait runs out. Concurrent writes to one item may leave a stale
// aggregate until the reconcile pass lands.
func (r *Runner) awaitItems(ctx context.Context) (int, error) {
	deadline := time.Now().Add(r.cfg.SettleWait)
	for {
		var items []model.Item
		if _, err := r.client.do(ctx, request{method: http.MethodGet, path: "/items"}, &items); err != nil {
			return 0, fmt.Errorf("list items: %w", err)
		}
		problems := verifyItems(r.ledger, items)
		if len(problems) == 0 {
			return len(r.ledger.itemIDs()), nil
		}
		if time.Now().After(deadline) {
			return 0, mismatch("items", problems)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(settlePoll):
		}
	}
}

func (r *Runner) verifyBoards(ctx context.Context) (int, error) {
	limit := fmt.Sprintf("?limit=%d", r.cfg.TopN)

	var items []ranking.ItemEntry
	if _, err := r.client.do(ctx, request{method: http.MethodGet, path: "/leaderboard/items" + limit}, &items); err != nil {
		return 0, fmt.Errorf("item leaderboard: %w", err)
	}
	var people []ranking.ParticipantEntry
	if _, err := r.client.do(ctx, request{method: http.MethodGet, path: "/leaderboard/participants" + limit}, &people); err != nil {
		return 0, fmt.Errorf("participant leaderboard: %w", err)
	}

	seen := len(items) + len(people)
	return seen, errors.Join(
		mismatch("item leaderboard", verifyItemBoard(r.ledger, items)),
		mismatch("participant leaderboard", verifyParticipantBoard(r.ledger, people)),
	)
}

// mismatch folds problems into one error, nil when there are none.
func mismatch(what string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	shown := problems[:min(len(problems), maxProblemsShow)]
	return fmt.Errorf("%w: %s: %d problems: %s", ErrMismatch, what, len(problems), strings.Join(shown, "; "))
}
