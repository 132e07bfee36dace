// Package scanner orchestrates one batch evaluation: fetch market data for
// the top symbols, run the three lenses per timeframe, aggregate, and rank.
package scanner

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"perpscan-go/internal/analysis"
	"perpscan-go/internal/config"
	"perpscan-go/internal/exchange"
	"perpscan-go/internal/indicator"
	"perpscan-go/internal/metrics"
	"perpscan-go/internal/signal"
)

// Runner evaluates symbols against all configured timeframes and produces
// ranked signal lists. Lenses fail independently: a lens error on one unit
// is logged and that lens is simply absent from the aggregation.
type Runner struct {
	log      zerolog.Logger
	provider exchange.Provider
	cfg      *config.Config
}

// NewRunner wires a runner over one market data provider.
func NewRunner(log zerolog.Logger, provider exchange.Provider, cfg *config.Config) *Runner {
	return &Runner{log: log, provider: provider, cfg: cfg}
}

func (r *Runner) technicalConfig() analysis.TechnicalConfig {
	t := r.cfg.Technical
	return analysis.TechnicalConfig{
		RSIPeriod:      t.RSIPeriod,
		RSIOversold:    t.RSIOversold,
		RSIOverbought:  t.RSIOverbought,
		EMAShortPeriod: t.EMAShortPeriod,
		EMALongPeriod:  t.EMALongPeriod,
		MACDFast:       t.MACDFast,
		MACDSlow:       t.MACDSlow,
		MACDSignal:     t.MACDSignal,
		VolumePeriod:   t.VolumePeriod,
		VolumeSpike:    t.VolumeSpike,
	}
}

func (r *Runner) fundingConfig() analysis.FundingConfig {
	f := r.cfg.Funding
	return analysis.FundingConfig{
		ExtremePositive: f.ExtremePositive,
		ExtremeNegative: f.ExtremeNegative,
		HighPositive:    f.HighPositive,
		HighNegative:    f.HighNegative,
	}
}

func (r *Runner) weights() analysis.Weights {
	w := r.cfg.Weights
	return analysis.Weights{Technical: w.Technical, Funding: w.Funding, Liquidation: w.Liquidation}
}

// EvaluateSymbol runs every configured timeframe for one symbol and returns
// the non-neutral signals. Funding and liquidation data are fetched once per
// symbol and shared across timeframes.
func (r *Runner) EvaluateSymbol(ctx context.Context, symbol string) []signal.Aggregated {
	var funding *signal.Funding
	if fr, err := r.provider.FundingRate(ctx, symbol); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("funding lens failed")
		metrics.LensFailuresTotal.WithLabelValues("funding").Inc()
	} else {
		funding = analysis.AnalyzeFunding(symbol, fr.RatePercent, fr.NextFundingTime, r.fundingConfig())
	}

	var liquidation *signal.Liquidation
	if trades, err := r.provider.RecentTrades(ctx, symbol, r.cfg.Exchange.TradeLimit); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("liquidation lens failed")
		metrics.LensFailuresTotal.WithLabelValues("liquidation").Inc()
	} else {
		longUSD, shortUSD := analysis.EstimateLiquidations(trades, r.cfg.Liquidation.PriceThresholdPercent)
		liquidation = analysis.AnalyzeLiquidations(symbol, longUSD, shortUSD, r.cfg.Liquidation.ThresholdUSD)
	}

	techCfg := r.technicalConfig()
	weights := r.weights()

	out := make([]signal.Aggregated, 0, len(r.cfg.Scan.Timeframes))
	for _, timeframe := range r.cfg.Scan.Timeframes {
		if ctx.Err() != nil {
			return out
		}
		metrics.EvaluationsTotal.WithLabelValues(timeframe).Inc()

		var technical *signal.Technical
		candles, err := r.provider.Klines(ctx, symbol, timeframe, r.cfg.Exchange.CandleLimit)
		if err == nil {
			technical, err = analysis.AnalyzeTechnicals(candles, symbol, timeframe, techCfg)
		}
		if err != nil {
			if errors.Is(err, indicator.ErrInsufficientData) {
				r.log.Debug().Str("symbol", symbol).Str("timeframe", timeframe).Msg("not enough candles")
			} else {
				r.log.Warn().Err(err).Str("symbol", symbol).Str("timeframe", timeframe).Msg("technical lens failed")
			}
			metrics.LensFailuresTotal.WithLabelValues("technical").Inc()
		}

		agg := analysis.Aggregate(symbol, timeframe, technical, funding, liquidation, weights)
		if agg.Type == signal.Neutral {
			continue
		}
		metrics.SignalsTotal.WithLabelValues(agg.Type.String()).Inc()
		out = append(out, agg)
	}
	return out
}

// Scan evaluates the top symbols concurrently and returns every non-neutral
// signal, sorted by total score descending.
func (r *Runner) Scan(ctx context.Context) ([]signal.Aggregated, error) {
	symbols, err := r.provider.TopSymbols(ctx, r.cfg.Scan.TopCoins)
	if err != nil {
		return nil, err
	}
	r.log.Info().Int("symbols", len(symbols)).Strs("timeframes", r.cfg.Scan.Timeframes).
		Str("provider", r.provider.Name()).Msg("starting scan")

	workers := r.cfg.Scan.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(symbols) {
		workers = len(symbols)
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var results []signal.Aggregated

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				found := r.EvaluateSymbol(ctx, symbol)
				if len(found) == 0 {
					continue
				}
				mu.Lock()
				results = append(results, found...)
				mu.Unlock()
			}
		}()
	}

	for _, symbol := range symbols {
		select {
		case jobs <- symbol:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool { return results[i].TotalScore > results[j].TotalScore })
	r.log.Info().Int("signals", len(results)).Msg("scan complete")
	return results, nil
}

// ScanRanked runs a scan and applies the configured score floor and top-N
// partitioning.
func (r *Runner) ScanRanked(ctx context.Context) (analysis.Ranked, error) {
	signals, err := r.Scan(ctx)
	if err != nil {
		return analysis.Ranked{}, err
	}
	filtered := analysis.Filter(signals, r.cfg.Scan.MinScore, nil)
	return analysis.Rank(filtered, r.cfg.Scan.TopN), nil
}
