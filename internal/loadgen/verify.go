package loadgen

import (
	"fmt"
	"math"

	"github.com/okian/tasting/internal/domain/model"
	"github.com/okian/tasting/internal/domain/ranking"
)

const scoreEpsilon = 1e-9

// checkCompetitionRanks verifies that values never increase down the board
// and that every rank is one more than the number of strictly better values.
func checkCompetitionRanks(values []float64, ranks []int) []string {
	var problems []string
	for i := range values {
		if i > 0 && values[i] > values[i-1]+scoreEpsilon {
			problems = append(problems, fmt.Sprintf("position %d: %.4f above %.4f", i, values[i], values[i-1]))
		}
		ahead := 0
		for j := range values {
			if values[j] > values[i]+scoreEpsilon {
				ahead++
			}
		}
		if ranks[i] != ahead+1 {
			problems = append(problems, fmt.Sprintf("position %d: rank %d, want %d", i, ranks[i], ahead+1))
		}
	}
	return problems
}

// verifyItems compares stored aggregates of the run's items with the ledger.
func verifyItems(l *ledger, items []model.Item) []string {
	byID := make(map[string]model.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	var problems []string
	for _, id := range l.itemIDs() {
		it, ok := byID[id]
		if !ok {
			problems = append(problems, fmt.Sprintf("item %s missing", id))
			continue
		}
		want := l.aggregate(id)
		if it.ReportCount != want.ReportCount || math.Abs(it.AverageScore-want.AverageScore) > scoreEpsilon {
			problems = append(problems, fmt.Sprintf("item %s: got %d/%.4f, want %d/%.4f",
				id, it.ReportCount, it.AverageScore, want.ReportCount, want.AverageScore))
		}
	}
	return problems
}

// verifyItemBoard checks ranks, and that the run's items on the board carry
// the expected aggregate. Items with no reports must be absent.
func verifyItemBoard(l *ledger, board []ranking.ItemEntry) []string {
	values := make([]float64, len(board))
	ranks := make([]int, len(board))
	for i, e := range board {
		values[i], ranks[i] = e.AverageScore, e.Rank
	}
	problems := checkCompetitionRanks(values, ranks)

	mine := make(map[string]struct{})
	for _, id := range l.itemIDs() {
		mine[id] = struct{}{}
	}
	for _, e := range board {
		if _, ok := mine[e.ItemID]; !ok {
			continue
		}
		want := l.aggregate(e.ItemID)
		if want.ReportCount == 0 {
			problems = append(problems, fmt.Sprintf("board lists item %s without reports", e.ItemID))
			continue
		}
		if e.ReportCount != want.ReportCount || math.Abs(e.AverageScore-want.AverageScore) > scoreEpsilon {
			problems = append(problems, fmt.Sprintf("board item %s: got %d/%.4f, want %d/%.4f",
				e.ItemID, e.ReportCount, e.AverageScore, want.ReportCount, want.AverageScore))
		}
	}
	return problems
}

// verifyParticipantBoard checks ranks and the run's participant counts.
func verifyParticipantBoard(l *ledger, board []ranking.ParticipantEntry) []string {
	values := make([]float64, len(board))
	ranks := make([]int, len(board))
	for i, e := range board {
		values[i], ranks[i] = float64(e.ReportCount), e.Rank
	}
	problems := checkCompetitionRanks(values, ranks)

	want := l.participantCounts()
	for _, e := range board {
		n, ok := want[e.Name]
		if !ok {
			continue
		}
		if e.ReportCount != n {
			problems = append(problems, fmt.Sprintf("participant %s: got %d reports, want %d", e.Name, e.ReportCount, n))
		}
	}
	return problems
}
