// Binary scanner runs one batch evaluation over the top perpetual contracts
// and reports ranked long/short signals to the log and, when configured, to
// Telegram.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"perpscan-go/internal/config"
	"perpscan-go/internal/exchange"
	"perpscan-go/internal/metrics"
	"perpscan-go/internal/notify"
	"perpscan-go/internal/scanner"
	"perpscan-go/internal/signal"
	"perpscan-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML configuration")
	interval := flag.Duration("interval", 0, "rescan cadence; zero runs a single scan and exits")
	flag.Parse()

	_ = godotenv.Load() // best-effort

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	cfg.ApplyEnv()

	log := util.NewLogger(cfg.App.LogLevel)
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, err := range errs {
			log.Error().Err(err).Msg("invalid config")
		}
		os.Exit(1)
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	manager := exchange.NewManager(log, cfg.Exchange.Preferred,
		exchange.NewBinance(log, "", cfg.Exchange.APIKey),
		exchange.NewBybit(log, ""),
		exchange.NewOKX(log, ""),
	)
	telegram := notify.NewTelegram(log, cfg.Telegram.BotToken, cfg.Telegram.ChatID, "")

	if *interval <= 0 {
		if err := runScan(ctx, log, manager, telegram, cfg); err != nil {
			log.Fatal().Err(err).Msg("scan failed")
		}
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		if err := runScan(ctx, log, manager, telegram, cfg); err != nil {
			log.Error().Err(err).Msg("scan failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case <-ticker.C:
		}
	}
}

func runScan(ctx context.Context, log zerolog.Logger, manager *exchange.Manager, telegram *notify.Telegram, cfg *config.Config) error {
	provider, err := manager.Active(ctx)
	if err != nil {
		return err
	}

	runner := scanner.NewRunner(log, provider, cfg)
	ranked, err := runner.ScanRanked(ctx)
	if err != nil {
		return err
	}

	logSide(log, "long", ranked.Long)
	logSide(log, "short", ranked.Short)

	if !telegram.Enabled() {
		return nil
	}
	if len(ranked.Long) == 0 && len(ranked.Short) == 0 {
		return telegram.SendNoSignals(ctx)
	}
	if err := telegram.SendSummary(ctx, ranked.Long, ranked.Short); err != nil {
		return err
	}

	// very strong signals additionally get a detailed alert, capped at three
	alerts := 0
	for _, sig := range append(append([]signal.Aggregated{}, ranked.Long...), ranked.Short...) {
		if sig.Strength != signal.VeryStrong || alerts == 3 {
			continue
		}
		if err := telegram.Send(ctx, notify.FormatDetailedSignal(sig)); err != nil {
			log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("detailed alert failed")
			continue
		}
		alerts++
	}
	return nil
}

func logSide(log zerolog.Logger, side string, signals []signal.Aggregated) {
	for i, sig := range signals {
		log.Info().
			Str("side", side).
			Int("rank", i+1).
			Str("symbol", sig.Symbol).
			Str("timeframe", sig.Timeframe).
			Float64("score", sig.TotalScore).
			Str("strength", string(sig.Strength)).
			Msg("signal")
	}
	if len(signals) == 0 {
		log.Info().Str("side", side).Msg("no signals above the floor")
	}
}
