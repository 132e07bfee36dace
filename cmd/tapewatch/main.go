// Binary tapewatch follows the live futures trade tape for a few symbols and
// periodically logs the estimated liquidation flow on each.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"perpscan-go/internal/analysis"
	"perpscan-go/internal/config"
	"perpscan-go/internal/exchange"
	"perpscan-go/internal/metrics"
	"perpscan-go/internal/signal"
	"perpscan-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML configuration")
	symbolsFlag := flag.String("symbols", "BTCUSDT,ETHUSDT", "comma-separated symbols to follow")
	every := flag.Duration("every", 30*time.Second, "how often to report liquidation estimates")
	flag.Parse()

	_ = godotenv.Load() // best-effort

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	cfg.ApplyEnv()
	log := util.NewLogger(cfg.App.LogLevel)

	symbols := strings.Split(*symbolsFlag, ",")

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stream := exchange.NewTradeStream(log, symbols)
	go func() {
		if err := stream.Run(ctx); err != nil {
			log.Error().Err(err).Msg("trade stream stopped")
			cancel()
		}
	}()

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case <-ticker.C:
			for _, sym := range symbols {
				sym = strings.ToUpper(strings.TrimSpace(sym))
				tape := stream.Tape(sym)
				if len(tape) == 0 {
					continue
				}
				longUSD, shortUSD := analysis.EstimateLiquidations(tape, cfg.Liquidation.PriceThresholdPercent)
				liq := analysis.AnalyzeLiquidations(sym, longUSD, shortUSD, cfg.Liquidation.ThresholdUSD)
				event := log.Info()
				if liq.Signal == signal.Neutral {
					event = log.Debug()
				}
				event.
					Str("symbol", sym).
					Int("trades", len(tape)).
					Str("longs", "$"+util.FormatUSD(liq.LongUSD)).
					Str("shorts", "$"+util.FormatUSD(liq.ShortUSD)).
					Str("signal", liq.Signal.String()).
					Float64("score", liq.Score).
					Msg("liquidation flow")
			}
		}
	}
}
