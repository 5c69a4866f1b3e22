package main

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/updown/internal/adapters/notify"
	"github.com/alejandrodnm/updown/internal/domain"
	"github.com/alejandrodnm/updown/internal/ports"
)

// runReport reconstruye los ledgers desde el journal y los imprime.
func runReport(ctx context.Context, journal ports.JournalReader, variants domain.VariantSet, notifier *notify.Console) error {
	trades, err := journal.ListTrades(ctx, "")
	if err != nil {
		return fmt.Errorf("runReport: list trades: %w", err)
	}
	ledgers, err := domain.ReplayLedgers(trades, variants)
	if err != nil {
		return fmt.Errorf("runReport: %w", err)
	}
	notifier.PrintReport(fmt.Sprintf("VARIANT REPORT (%d trades in journal)", len(trades)), ledgers)
	return nil
}
