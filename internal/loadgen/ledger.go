package loadgen

import (
	"sync"

	"github.com/okian/tasting/internal/domain/model"
)

type entry struct {
	participant string
	score       model.Score
}

// ledger is the tool's own record of what the service should hold.
type ledger struct {
	mu      sync.Mutex
	items   map[string]map[string]entry // item id -> report key -> entry
	order   []reportRef                 // submission order, for picking edits
	created []string                    // item ids in creation order
}

type reportRef struct {
	itemID string
	key    string
}

func newLedger() *ledger {
	return &ledger{items: make(map[string]map[string]entry)}
}

func (l *ledger) addItem(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items[id] = make(map[string]entry)
	l.created = append(l.created, id)
}

func (l *ledger) add(itemID, key, participant string, score model.Score) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items[itemID][key] = entry{participant: participant, score: score}
	l.order = append(l.order, reportRef{itemID: itemID, key: key})
}

func (l *ledger) remove(itemID, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.items[itemID], key)
}

func (l *ledger) get(itemID, key string) (entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.items[itemID][key]
	return e, ok
}

// refs returns the first n submitted reports starting at offset.
func (l *ledger) refs(offset, n int) []reportRef {
	l.mu.Lock()
	defer l.mu.Unlock()
	if offset >= len(l.order) {
		return nil
	}
	end := min(offset+n, len(l.order))
	return append([]reportRef(nil), l.order[offset:end]...)
}

func (l *ledger) itemIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.created...)
}

// aggregate is the expected mean and count for itemID.
func (l *ledger) aggregate(itemID string) model.Aggregate {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int64
	reports := l.items[itemID]
	for _, e := range reports {
		sum += int64(e.score)
	}
	if len(reports) == 0 {
		return model.Aggregate{}
	}
	return model.Aggregate{AverageScore: float64(sum) / float64(len(reports)), ReportCount: len(reports)}
}

// participantCounts returns the expected report count per participant.
func (l *ledger) participantCounts() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int)
	for _, reports := range l.items {
		for _, e := range reports {
			out[e.participant]++
		}
	}
	return out
}
