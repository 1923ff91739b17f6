package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/tasting/internal/domain/model"
	"github.com/okian/tasting/internal/domain/ranking"
	"github.com/okian/tasting/pkg/logger"
	"github.com/okian/tasting/pkg/metrics"
)

// ReportResult is returned by every report mutation.
type ReportResult struct {
	Report    *model.Report   `json:"report,omitempty"`
	Aggregate model.Aggregate `json:"aggregate"`
	// Duplicate is set when the submission id was already used; nothing
	// was written and Aggregate is the item's current one.
	Duplicate bool `json:"duplicate,omitempty"`
}

// SubmitReport stores a new report for itemID and recomputes the item's
// aggregate once. A non-empty submissionID makes the call idempotent per
// item; the same id sent for another item is a new submission.
//
// When the report is stored but the recompute fails, the error is returned
// and the report stays; a retry with the same submission id reports a
// duplicate instead of storing it twice.
func (s *Service) SubmitReport(ctx context.Context, session model.Session, itemID string, in model.ReportInput, submissionID string) (ReportResult, error) {
	in = in.Normalize()
	if err := model.Validate(in); err != nil {
		return ReportResult{}, err
	}

	dedupeKey := ""
	if submissionID != "" {
		dedupeKey = itemID + "/" + submissionID
	}
	if dedupeKey != "" && s.deduper.SeenAndRecord(ctx, dedupeKey) {
		metrics.RecordReportDuplicate()
		item, err := s.catalog.GetItem(ctx, itemID)
		if err != nil {
			return ReportResult{}, fmt.Errorf("submit report: %w", err)
		}
		s.logger.Debug(ctx, "duplicate submission ignored", logger.String("submission_id", submissionID))
		return ReportResult{Aggregate: item.Aggregate(), Duplicate: true}, nil
	}

	rep, err := s.storeNewReport(ctx, session, itemID, in, "")
	if err != nil {
		if dedupeKey != "" {
			s.deduper.Unrecord(ctx, dedupeKey)
		}
		return ReportResult{}, fmt.Errorf("submit report: %w", err)
	}
	metrics.RecordReportSubmitted()

	agg, err := s.aggregator.Recompute(ctx, itemID)
	if err != nil {
		return ReportResult{Report: &rep}, fmt.Errorf("submit report: %w", err)
	}
	return ReportResult{Report: &rep, Aggregate: agg}, nil
}

// ReplaceReport swaps the report stored under oldKey for a new one built from
// in, then recomputes once. The new report gets a fresh key.
//
// The participant is taken from the session, falling back to the name on the
// old report.
func (s *Service) ReplaceReport(ctx context.Context, session model.Session, itemID, oldKey string, in model.ReportInput) (ReportResult, error) {
	in = in.Normalize()
	if err := model.Validate(in); err != nil {
		return ReportResult{}, err
	}

	old, err := s.catalog.GetReport(ctx, itemID, oldKey)
	if err != nil {
		return ReportResult{}, fmt.Errorf("replace report: %w", err)
	}

	rep, err := s.storeNewReport(ctx, session, itemID, in, old.ParticipantName)
	if err != nil {
		return ReportResult{}, fmt.Errorf("replace report: %w", err)
	}
	if err := s.catalog.RemoveReport(ctx, itemID, oldKey); err != nil {
		// Undo the insert so the old report is not counted twice.
		if undoErr := s.catalog.RemoveReport(ctx, itemID, rep.Key); undoErr != nil {
			s.logger.Error(ctx, "replace left both reports in place",
				logger.String("item_id", itemID),
				logger.String("old_key", oldKey),
				logger.String("new_key", rep.Key),
				logger.Error(undoErr),
			)
		}
		return ReportResult{}, fmt.Errorf("replace report: %w", err)
	}
	metrics.RecordReportReplaced()

	agg, err := s.aggregator.Recompute(ctx, itemID)
	if err != nil {
		return ReportResult{Report: &rep}, fmt.Errorf("replace report: %w", err)
	}
	return ReportResult{Report: &rep, Aggregate: agg}, nil
}

// DeleteReport removes one report and recomputes once. Deleting the last
// report resets the aggregate to zero.
func (s *Service) DeleteReport(ctx context.Context, itemID, key string) (ReportResult, error) {
	if _, err := s.catalog.GetReport(ctx, itemID, key); err != nil {
		return ReportResult{}, fmt.Errorf("delete report: %w", err)
	}
	if err := s.catalog.RemoveReport(ctx, itemID, key); err != nil {
		return ReportResult{}, fmt.Errorf("delete report: %w", err)
	}
	metrics.RecordReportDeleted()

	agg, err := s.aggregator.Recompute(ctx, itemID)
	if err != nil {
		return ReportResult{}, fmt.Errorf("delete report: %w", err)
	}
	return ReportResult{Aggregate: agg}, nil
}

// ListItemReports returns the reports of one item, newest first.
func (s *Service) ListItemReports(ctx context.Context, itemID string) ([]model.Report, error) {
	if _, err := s.catalog.GetItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	reports, err := s.catalog.ListItemReports(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	sortNewestFirst(reports)
	return reports, nil
}

// ListParticipantReports returns every report filed by the session's
// participant, newest first. An anonymous session sees the guest reports.
func (s *Service) ListParticipantReports(ctx context.Context, session model.Session) ([]model.Report, error) {
	reports, err := s.catalog.ListAllReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participant reports: %w", err)
	}
	who := ranking.NewParticipantKey(session.Participant, s.guestName)
	out := reports[:0]
	for _, r := range reports {
		if ranking.NewParticipantKey(r.ParticipantName, s.guestName) == who {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// storeNewReport writes a fresh report for an existing item. fallbackName is
// used when the session carries no participant.
func (s *Service) storeNewReport(ctx context.Context, session model.Session, itemID string, in model.ReportInput, fallbackName string) (model.Report, error) {
	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return model.Report{}, err
	}

	name := strings.TrimSpace(session.Participant)
	if name == "" {
		name = strings.TrimSpace(fallbackName)
	}
	if name == "" {
		name = s.guestName
	}

	now := s.now()
	rep := model.Report{
		Key:             model.NewReportKey(now),
		ItemID:          item.ID,
		ItemName:        item.Name,
		ParticipantName: name,
		Attributes:      in.Attributes,
		Score:           in.Score,
		Notes:           in.Notes,
		Timestamp:       now.UTC(),
	}
	if err := s.catalog.PutReport(ctx, rep); err != nil {
		return model.Report{}, err
	}
	return rep, nil
}

// sortNewestFirst orders by timestamp, then key, both descending.
func sortNewestFirst(reports []model.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		if !reports[i].Timestamp.Equal(reports[j].Timestamp) {
			return reports[i].Timestamp.After(reports[j].Timestamp)
		}
		return reports[i].Key > reports[j].Key
	})
}
