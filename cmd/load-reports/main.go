package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/tasting/internal/loadgen"
	"github.com/okian/tasting/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	def := loadgen.DefaultConfig()
	var (
		baseURL      = flag.String("url", def.BaseURL, "Base URL of the service")
		items        = flag.Int("items", def.Items, "Number of items to create")
		reports      = flag.Int("reports", def.Reports, "Number of reports to submit")
		participants = flag.Int("participants", def.Participants, "Number of distinct participants")
		workers      = flag.Int("workers", def.Workers, "Concurrent requests in flight")
		rps          = flag.Float64("rate", def.Rate, "Requests per second, 0 for unlimited")
		editRatio    = flag.Float64("edit", def.EditRatio, "Share of reports replaced afterwards")
		deleteRatio  = flag.Float64("delete", def.DeleteRatio, "Share of reports deleted afterwards")
		retryRatio   = flag.Float64("retry", def.RetryRatio, "Share of submissions repeated with the same idempotency key")
		timeout      = flag.Duration("timeout", def.Timeout, "HTTP request timeout")
		settle       = flag.Duration("settle", def.SettleWait, "How long to wait for aggregates to settle")
		seed         = flag.Uint64("seed", def.Seed, "Seed for the report generator")
		top          = flag.Int("top", def.TopN, "Leaderboard limit used for verification")
		logLevel     = flag.String("log-level", "info", "Log level")
		logFormat    = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString(*logLevel)
	_ = logger.SetFormatString(*logFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := loadgen.Config{
		BaseURL:      *baseURL,
		Items:        *items,
		Reports:      *reports,
		Participants: *participants,
		Workers:      *workers,
		Rate:         *rps,
		EditRatio:    *editRatio,
		DeleteRatio:  *deleteRatio,
		RetryRatio:   *retryRatio,
		Timeout:      *timeout,
		SettleWait:   *settle,
		Seed:         *seed,
		TopN:         *top,
	}

	stats, err := loadgen.Run(ctx, cfg)
	log := logger.Named("load-reports")
	log.Info(ctx, "final statistics",
		logger.Int("itemsCreated", stats.ItemsCreated),
		logger.Int("reportsSubmitted", stats.ReportsSubmitted),
		logger.Int("reportsDuplicate", stats.ReportsDuplicate),
		logger.Int("reportsReplaced", stats.ReportsReplaced),
		logger.Int("reportsDeleted", stats.ReportsDeleted),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("itemsVerified", stats.ItemsVerified),
		logger.Int("boardEntriesSeen", stats.BoardEntriesSeen),
		logger.Duration("duration", stats.Duration),
	)
	if err != nil {
		log.Error(ctx, "load run failed", logger.Error(err))
		os.Exit(1)
	}
}
