package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/updown/internal/application/engine/instrument"
	"github.com/alejandrodnm/updown/internal/domain"
)

// Console imprime el estado de los engines y los reportes por variante.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PrintStatus imprime una línea por instrumento con la ventana objetivo,
// su fase y el P&L acumulado.
func (c *Console) PrintStatus(now time.Time, snaps []instrument.Snapshot) {
	ts := now.Format("15:04:05")
	if len(snaps) == 0 {
		fmt.Fprintf(c.out, "[%s] no engines configured\n", ts)
		return
	}

	for _, s := range snaps {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%s] %-4s", ts, strings.ToUpper(string(s.Instrument)))

		switch {
		case s.Fault != "":
			fmt.Fprintf(&sb, " FAULT %s", s.Fault)
		case !s.Running:
			sb.WriteString(" stopped")
		default:
			sb.WriteString(" running")
		}

		if w, ok := target(s); ok {
			fmt.Fprintf(&sb, " | %s %s T-%s", w.Window.Slug, w.Phase, formatCountdown(w.Countdown))
		} else {
			sb.WriteString(" | no market")
		}

		var trades, pending, open int
		var pnl float64
		for _, l := range s.Ledgers {
			trades += l.Total
			pending += l.Pending
			pnl += l.PnL()
		}
		for _, o := range s.Orders {
			if o.IsLive() {
				open++
			}
		}
		fmt.Fprintf(&sb, " | open=%d trades=%d pending=%d pnl=$%+.2f", open, trades, pending, pnl)

		if skips := s.LastTick.Skips; len(skips) > 0 {
			reasons := make([]string, 0, len(skips))
			for _, sk := range skips {
				reasons = append(reasons, string(sk.Reason))
			}
			fmt.Fprintf(&sb, " | skipped: %s", strings.Join(reasons, ","))
		}
		fmt.Fprintln(c.out, sb.String())
	}
}

// PrintReport imprime la tabla de variantes y el veredicto.
func (c *Console) PrintReport(title string, ledgers []domain.VariantLedger) {
	fmt.Fprintf(c.out, "\n")
	fmt.Fprintf(c.out, "========================================================\n")
	fmt.Fprintf(c.out, "  %s\n", title)
	fmt.Fprintf(c.out, "========================================================\n\n")

	if len(ledgers) == 0 {
		fmt.Fprintln(c.out, "  No trades yet. Let the engines run through a few windows.")
		return
	}

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Coin", "Variant", "Trades", "W", "L", "Pend", "Win%", "Invested", "PnL", "ROI")

	var best *domain.VariantLedger
	var total domain.VariantLedger
	for i, l := range ledgers {
		coin := strings.ToUpper(string(l.Instrument))
		if coin == "" {
			coin = "ALL"
		}
		tbl.Append(
			coin,
			l.VariantID,
			fmt.Sprintf("%d", l.Total),
			fmt.Sprintf("%d", l.Wins),
			fmt.Sprintf("%d", l.Losses),
			fmt.Sprintf("%d", l.Pending),
			fmt.Sprintf("%.1f%%", l.WinRate()),
			fmt.Sprintf("$%.2f", l.Invested()),
			fmt.Sprintf("$%+.2f", l.PnL()),
			fmt.Sprintf("%+.1f%%", l.ROI()),
		)
		if l.Wins+l.Losses > 0 && (best == nil || l.PnLDecimal().GreaterThan(best.PnLDecimal())) {
			best = &ledgers[i]
		}
		total = total.Add(l)
	}
	tbl.Render()

	fmt.Fprintf(c.out, "\n  --- AGGREGATE ---\n")
	fmt.Fprintf(c.out, "  Trades:                %d (%d pending)\n", total.Total, total.Pending)
	fmt.Fprintf(c.out, "  Win rate:              %.1f%%\n", total.WinRate())
	fmt.Fprintf(c.out, "  Invested:              $%.2f\n", total.Invested())
	fmt.Fprintf(c.out, "  Net PnL:               $%+.2f\n", total.PnL())
	fmt.Fprintf(c.out, "  ROI:                   %+.2f%%\n", total.ROI())

	fmt.Fprintf(c.out, "\n  --- VERDICT ---\n")
	switch {
	case best == nil:
		fmt.Fprintf(c.out, "  No resolved trades yet.\n")
	case best.PnLDecimal().IsPositive():
		fmt.Fprintf(c.out, "  Best variant: %s on %s ($%+.2f, %.1f%% win rate over %d resolved).\n",
			best.VariantID, strings.ToUpper(string(best.Instrument)), best.PnL(), best.WinRate(), best.Wins+best.Losses)
	default:
		fmt.Fprintf(c.out, "  NEGATIVE: no variant is profitable yet.\n")
	}
	fmt.Fprintln(c.out)
}

func target(s instrument.Snapshot) (instrument.WindowView, bool) {
	for _, w := range s.Windows {
		if w.Target {
			return w, true
		}
	}
	return instrument.WindowView{}, false
}

// formatCountdown imprime mm:ss (negativo si la ventana ya cerró).
func formatCountdown(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%s%02d:%02d", sign, secs/60, secs%60)
}
