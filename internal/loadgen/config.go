package loadgen

import (
	"fmt"
	"time"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Items        int           // Number of items to create
	Reports      int           // Number of reports to submit
	Participants int           // Number of distinct participants
	Workers      int           // Concurrent requests in flight
	Rate         float64       // Requests per second, 0 for unlimited
	EditRatio    float64       // Share of reports replaced afterwards
	DeleteRatio  float64       // Share of reports deleted afterwards
	RetryRatio   float64       // Share of submissions sent twice with the same key
	Timeout      time.Duration // HTTP request timeout
	SettleWait   time.Duration // How long to wait for aggregates to settle
	Seed         uint64        // Seed for the report generator
	TopN         int           // Leaderboard limit used for verification
}

// DefaultConfig returns the settings used by cmd/load-reports.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:9080",
		Items:        20,
		Reports:      2000,
		Participants: 50,
		Workers:      16,
		EditRatio:    0.1,
		DeleteRatio:  0.05,
		RetryRatio:   0.05,
		Timeout:      10 * time.Second,
		SettleWait:   30 * time.Second,
		Seed:         1,
		TopN:         100,
	}
}

// Validate rejects settings a run cannot use.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is empty", ErrConfig)
	case c.Items < 1, c.Participants < 1, c.Workers < 1:
		return fmt.Errorf("%w: items, participants and workers must be positive", ErrConfig)
	case c.Reports < 0:
		return fmt.Errorf("%w: reports must not be negative", ErrConfig)
	case c.Rate < 0:
		return fmt.Errorf("%w: rate must not be negative", ErrConfig)
	case !ratio(c.EditRatio), !ratio(c.DeleteRatio), !ratio(c.RetryRatio):
		return fmt.Errorf("%w: ratios must be within 0..1", ErrConfig)
	case c.EditRatio+c.DeleteRatio > 1:
		return fmt.Errorf("%w: edit and delete ratios exceed 1 together", ErrConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top must be positive", ErrConfig)
	}
	return nil
}

func ratio(f float64) bool { return f >= 0 && f <= 1 }

// Stats holds run statistics.
type Stats struct {
	ItemsCreated      int           `json:"items_created"`
	ReportsSubmitted  int           `json:"reports_submitted"`
	ReportsDuplicate  int           `json:"reports_duplicate"`
	ReportsReplaced   int           `json:"reports_replaced"`
	ReportsDeleted    int           `json:"reports_deleted"`
	RequestsFailed    int           `json:"requests_failed"`
	ItemsVerified     int           `json:"items_verified"`
	BoardEntriesSeen  int           `json:"board_entries_seen"`
	ReconcileEnqueued int           `json:"reconcile_enqueued"`
	Duration          time.Duration `json:"duration"`
}
