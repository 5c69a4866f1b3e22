package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/updown/internal/adapters/notify"
	"github.com/alejandrodnm/updown/internal/application/orchestrator"
	"github.com/alejandrodnm/updown/internal/domain"
)

const (
	stopFile       = "STOP"
	statusInterval = 30 * time.Second
)

// run imprime el estado periódicamente hasta una señal o un archivo STOP.
func run(ctx context.Context, orch *orchestrator.Orchestrator, notifier *notify.Console) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	slog.Info("engines running, press Ctrl+C or create STOP file to exit")
	fmt.Printf("[UPDOWN] %d engines, status every %s\n", len(orch.Instruments()), statusInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down (signal)")
			return
		case now := <-ticker.C:
			if _, err := os.Stat(stopFile); err == nil {
				slog.Info("STOP file detected, shutting down")
				os.Remove(stopFile)
				return
			}
			notifier.PrintStatus(now, orch.Snapshots())
		}
	}
}

func printExitSummary(orch *orchestrator.Orchestrator, notifier *notify.Console) {
	agg := orch.AggregateSnapshot(0)
	notifier.PrintStatus(time.Now(), agg.Instruments)

	var ledgers []domain.VariantLedger
	for _, s := range agg.Instruments {
		ledgers = append(ledgers, s.Ledgers...)
	}
	notifier.PrintReport("SESSION REPORT (per coin)", ledgers)
	notifier.PrintReport("SESSION REPORT (all coins)", agg.Variants)
}
