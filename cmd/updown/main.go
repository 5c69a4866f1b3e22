package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alejandrodnm/updown/config"
	"github.com/alejandrodnm/updown/internal/adapters/httpapi"
	"github.com/alejandrodnm/updown/internal/adapters/metrics"
	"github.com/alejandrodnm/updown/internal/adapters/notify"
	"github.com/alejandrodnm/updown/internal/adapters/polymarket"
	"github.com/alejandrodnm/updown/internal/adapters/storage"
	"github.com/alejandrodnm/updown/internal/application/engine/fill"
	"github.com/alejandrodnm/updown/internal/application/engine/instrument"
	"github.com/alejandrodnm/updown/internal/application/orchestrator"
	"github.com/alejandrodnm/updown/internal/domain"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	coins := flag.String("coins", "", "comma-separated coins to run, e.g. btc,eth (overrides config)")
	report := flag.Bool("report", false, "print the variant report from the journal and exit")
	noHTTP := flag.Bool("no-http", false, "do not start the HTTP API")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *coins != "" {
		list, err := parseCoins(*coins)
		if err != nil {
			slog.Error("invalid -coins", "err", err)
			os.Exit(1)
		}
		cfg.OnlyInstruments(list)
	}
	setupLogger(cfg.Log)

	variants, err := cfg.VariantSet()
	if err != nil {
		slog.Error("invalid variants", "err", err)
		os.Exit(1)
	}

	journal, err := storage.NewSQLiteJournal(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer journal.Close()

	notifier := notify.NewConsole()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		if err := runReport(ctx, journal, variants, notifier); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("updown starting",
		"config", *configPath,
		"coins", cfg.EnabledInstruments(),
		"variants", variants.Len(),
		"interval", cfg.Interval(),
		"fill_probability", cfg.FillProbability(),
		"order_size", cfg.Engine.OrderSizeShares,
	)

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)
	tracker := polymarket.NewTracker(client, cfg.EntryWindow().End)
	collector := metrics.New()

	engineCfg := instrument.Config{
		Interval:          cfg.Interval(),
		TickTimeout:       cfg.TickTimeout(),
		OrderSize:         cfg.Engine.OrderSizeShares,
		EntryWindow:       cfg.EntryWindow(),
		RecentTrades:      cfg.Engine.RecentTradesLimit,
		ResolutionRecheck: cfg.ResolutionRecheck(),
	}

	var (
		engines     []orchestrator.Engine
		instruments []*instrument.Engine
	)
	for _, in := range cfg.EnabledInstruments() {
		e, err := instrument.New(in, variants, instrument.Deps{
			Discovery: tracker,
			Quotes:    client,
			Resolver:  tracker,
			Journal:   journal,
			Metrics:   collector,
			Simulator: fill.New(cfg.FillProbability(), nil),
		}, engineCfg)
		if err != nil {
			slog.Error("failed to create engine", "coin", in, "err", err)
			os.Exit(1)
		}
		engines = append(engines, e)
		instruments = append(instruments, e)
	}

	orch, err := orchestrator.New(engines...)
	if err != nil {
		slog.Error("failed to create orchestrator", "err", err)
		os.Exit(1)
	}

	if cfg.HTTPEnabled() && !*noHTTP {
		router := httpapi.NewRouter(orch, httpapi.Options{
			Observer:       collector,
			MetricsHandler: collector.Handler(),
			Logger:         slog.Default(),
		})
		go func() {
			if err := httpapi.Serve(ctx, cfg.HTTP.Addr, router); err != nil {
				slog.Error("http api exited with error", "err", err)
			}
		}()
	}

	if err := orch.StartAll(ctx); err != nil {
		slog.Warn("some engines failed to start", "err", err)
	}

	run(ctx, orch, notifier)

	orch.StopAll()
	for _, e := range instruments {
		e.Close()
	}
	printExitSummary(orch, notifier)
	slog.Info("updown stopped cleanly")
}

func parseCoins(s string) ([]domain.Instrument, error) {
	var out []domain.Instrument
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		in, err := domain.ParseInstrument(part)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no coins in %q", s)
	}
	return out, nil
}

// setupLogger instala el logger por defecto. Un nivel desconocido cae a info.
func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler).With("app", "updown"))
}
