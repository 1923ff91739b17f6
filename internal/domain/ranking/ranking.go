// Package ranking builds item and participant leaderboards from reports.
//
// Both boards use standard competition ranking: an entry's rank is one plus
// the number of entries whose sort key is strictly ahead of it, so ties share
// a rank and the following rank is skipped (1, 2, 2, 4).
package ranking

import (
	"math"
	"sort"

	"github.com/okian/tasting/internal/domain/model"
)

// ItemEntry is one row of the item leaderboard.
type ItemEntry struct {
	ItemID       string  `json:"item_id"`
	ItemName     string  `json:"item_name"`
	AverageScore float64 `json:"average_score"`
	ReportCount  int     `json:"report_count"`
	Rank         int     `json:"rank"`
	Band         *int    `json:"band,omitempty"`
}

// ParticipantEntry is one row of the participant leaderboard.
type ParticipantEntry struct {
	Name         string  `json:"name"`
	ReportCount  int     `json:"report_count"`
	AverageScore float64 `json:"average_score"`
	Rank         int     `json:"rank"`
	Band         *int    `json:"band,omitempty"`
}

// CommunitySummary holds the headline totals of an event.
type CommunitySummary struct {
	TotalReports      int     `json:"total_reports"`
	TotalParticipants int     `json:"total_participants"`
	OverallAverage    float64 `json:"overall_average"`
}

// Community bundles both boards with the summary, all computed from one read.
type Community struct {
	Summary      CommunitySummary   `json:"summary"`
	Items        []ItemEntry        `json:"items"`
	Participants []ParticipantEntry `json:"participants"`
}

// Ranker builds leaderboards. The zero value is not usable; call New.
type Ranker struct {
	guest string
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithGuestName sets the identity used for reports without a participant name.
func WithGuestName(name string) Option {
	return func(r *Ranker) {
		if name != "" {
			r.guest = name
		}
	}
}

// New returns a Ranker.
func New(opts ...Option) *Ranker {
	r := &Ranker{guest: DefaultGuestName}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GuestName returns the identity used for anonymous reports.
func (r *Ranker) GuestName() string { return r.guest }

// CompetitionRanks assigns ranks to n entries that are already sorted by
// their key. sameKey reports whether entries i and j have equal keys.
func CompetitionRanks(n int, sameKey func(i, j int) bool) []int {
	ranks := make([]int, n)
	for i := 0; i < n; i++ {
		if i > 0 && sameKey(i-1, i) {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}

// band returns the medal band (0, 1, 2) for the top three ranks.
func band(rank int) *int {
	if rank < 1 || rank > 3 {
		return nil
	}
	b := rank - 1
	return &b
}

type itemGroup struct {
	name     string
	nameTime int64
	sum      int64
	count    int
}

// RankItems groups reports by item and orders the groups by mean score,
// highest first. Equal means share a rank and are listed by item id.
// Items with no reports never appear.
func (r *Ranker) RankItems(reports []model.Report) []ItemEntry {
	groups := make(map[ItemKey]*itemGroup)
	for _, rep := range reports {
		k := ItemKey(rep.ItemID)
		g, ok := groups[k]
		if !ok {
			g = &itemGroup{nameTime: math.MinInt64}
			groups[k] = g
		}
		g.sum += int64(rep.Score)
		g.count++
		// The most recent report carries the current display name.
		if ts := rep.Timestamp.UnixMilli(); rep.ItemName != "" && ts >= g.nameTime {
			if ts > g.nameTime || rep.ItemName < g.name {
				g.name = rep.ItemName
				g.nameTime = ts
			}
		}
	}

	entries := make([]ItemEntry, 0, len(groups))
	for k, g := range groups {
		entries = append(entries, ItemEntry{
			ItemID:       string(k),
			ItemName:     g.name,
			AverageScore: float64(g.sum) / float64(g.count),
			ReportCount:  g.count,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AverageScore != entries[j].AverageScore {
			return entries[i].AverageScore > entries[j].AverageScore
		}
		return entries[i].ItemID < entries[j].ItemID
	})

	ranks := CompetitionRanks(len(entries), func(i, j int) bool {
		return entries[i].AverageScore == entries[j].AverageScore
	})
	for i := range entries {
		entries[i].Rank = ranks[i]
		entries[i].Band = band(ranks[i])
	}
	return entries
}

type participantGroup struct {
	sum   int64
	count int
}

// RankParticipants groups reports by participant and orders the groups by
// number of reports, most first. The mean score is shown but does not affect
// order or rank. Equal counts share a rank and are listed by name.
func (r *Ranker) RankParticipants(reports []model.Report) []ParticipantEntry {
	groups := make(map[ParticipantKey]*participantGroup)
	for _, rep := range reports {
		k := NewParticipantKey(rep.ParticipantName, r.guest)
		g, ok := groups[k]
		if !ok {
			g = &participantGroup{}
			groups[k] = g
		}
		g.sum += int64(rep.Score)
		g.count++
	}

	entries := make([]ParticipantEntry, 0, len(groups))
	for k, g := range groups {
		entries = append(entries, ParticipantEntry{
			Name:         string(k),
			ReportCount:  g.count,
			AverageScore: float64(g.sum) / float64(g.count),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ReportCount != entries[j].ReportCount {
			return entries[i].ReportCount > entries[j].ReportCount
		}
		return entries[i].Name < entries[j].Name
	})

	ranks := CompetitionRanks(len(entries), func(i, j int) bool {
		return entries[i].ReportCount == entries[j].ReportCount
	})
	for i := range entries {
		entries[i].Rank = ranks[i]
		entries[i].Band = band(ranks[i])
	}
	return entries
}

// Summary returns the event totals. OverallAverage is 0 when there are no reports.
func (r *Ranker) Summary(reports []model.Report) CommunitySummary {
	participants := make(map[ParticipantKey]struct{})
	var sum int64
	for _, rep := range reports {
		participants[NewParticipantKey(rep.ParticipantName, r.guest)] = struct{}{}
		sum += int64(rep.Score)
	}
	s := CommunitySummary{TotalReports: len(reports), TotalParticipants: len(participants)}
	if len(reports) > 0 {
		s.OverallAverage = float64(sum) / float64(len(reports))
	}
	return s
}

// Community computes the summary and both boards from the same reports.
func (r *Ranker) Community(reports []model.Report) Community {
	return Community{
		Summary:      r.Summary(reports),
		Items:        r.RankItems(reports),
		Participants: r.RankParticipants(reports),
	}
}

// Top returns at most n leading entries. n <= 0 returns all of them.
// Ranks are left as computed over the full board.
func Top[T any](entries []T, n int) []T {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}
