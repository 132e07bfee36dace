package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"perpscan-go/internal/config"
	"perpscan-go/internal/signal"
)

type stubProvider struct {
	symbols    []string
	symbolsErr error
	candles    map[string][]signal.Candle
	klinesErr  error
	funding    map[string]signal.FundingRate
	fundingErr error
	trades     map[string][]signal.Trade
	tradesErr  error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) TopSymbols(ctx context.Context, limit int) ([]string, error) {
	if s.symbolsErr != nil {
		return nil, s.symbolsErr
	}
	if limit > 0 && len(s.symbols) > limit {
		return s.symbols[:limit], nil
	}
	return s.symbols, nil
}

func (s *stubProvider) Klines(ctx context.Context, symbol, interval string, limit int) ([]signal.Candle, error) {
	if s.klinesErr != nil {
		return nil, s.klinesErr
	}
	return s.candles[symbol], nil
}

func (s *stubProvider) FundingRate(ctx context.Context, symbol string) (signal.FundingRate, error) {
	if s.fundingErr != nil {
		return signal.FundingRate{}, s.fundingErr
	}
	return s.funding[symbol], nil
}

func (s *stubProvider) RecentTrades(ctx context.Context, symbol string, limit int) ([]signal.Trade, error) {
	if s.tradesErr != nil {
		return nil, s.tradesErr
	}
	return s.trades[symbol], nil
}

func (s *stubProvider) Healthy(ctx context.Context) bool { return true }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Scan.Timeframes = []string{"1h"}
	cfg.Scan.MinScore = 0
	cfg.Scan.Workers = 2
	return cfg
}

// cascadeTrades builds a tape with one long-liquidation shock: a drop beyond
// the price threshold on buyer-maker volume.
func cascadeTrades(usd float64) []signal.Trade {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return []signal.Trade{
		{Price: 100.0, Qty: 1, QuoteQty: 100, Time: base},
		{Price: 99.0, Qty: usd / 99.0, QuoteQty: usd, Time: base.Add(time.Second), IsBuyerMaker: true},
	}
}

func TestEvaluateSymbolFundingOnlySignal(t *testing.T) {
	provider := &stubProvider{
		funding:   map[string]signal.FundingRate{"BTCUSDT": {Symbol: "BTCUSDT", RatePercent: -0.1}},
		klinesErr: errors.New("venue down"),
	}
	r := NewRunner(zerolog.Nop(), provider, testConfig())

	signals := r.EvaluateSymbol(context.Background(), "BTCUSDT")
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	got := signals[0]
	if got.Type != signal.Long {
		t.Fatalf("extreme negative funding should read long, got %s", got.Type)
	}
	// funding score 5.0 at weight 0.3, single lens, no bonus
	if got.TotalScore != 1.5 {
		t.Fatalf("expected total 1.5, got %v", got.TotalScore)
	}
	if got.Technical != nil {
		t.Fatalf("technical lens should be absent after a fetch failure")
	}
}

func TestEvaluateSymbolLensFailuresAreIndependent(t *testing.T) {
	provider := &stubProvider{
		fundingErr: errors.New("funding down"),
		klinesErr:  errors.New("klines down"),
		trades:     map[string][]signal.Trade{"BTCUSDT": cascadeTrades(2_000_000)},
	}
	r := NewRunner(zerolog.Nop(), provider, testConfig())

	signals := r.EvaluateSymbol(context.Background(), "BTCUSDT")
	if len(signals) != 1 {
		t.Fatalf("expected liquidation-only signal, got %d", len(signals))
	}
	got := signals[0]
	if got.Type != signal.Long || got.Liquidation == nil {
		t.Fatalf("expected long liquidation signal, got %+v", got)
	}
	if got.Funding != nil || got.Technical != nil {
		t.Fatalf("failed lenses should be absent, got %+v", got)
	}
}

func TestEvaluateSymbolNeutralUnitsDropped(t *testing.T) {
	provider := &stubProvider{
		funding: map[string]signal.FundingRate{"BTCUSDT": {Symbol: "BTCUSDT", RatePercent: 0.005}},
	}
	r := NewRunner(zerolog.Nop(), provider, testConfig())

	if signals := r.EvaluateSymbol(context.Background(), "BTCUSDT"); len(signals) != 0 {
		t.Fatalf("expected no signals for neutral unit, got %d", len(signals))
	}
}

func TestEvaluateSymbolOneSignalPerTimeframe(t *testing.T) {
	cfg := testConfig()
	cfg.Scan.Timeframes = []string{"1h", "4h"}
	provider := &stubProvider{
		funding: map[string]signal.FundingRate{"BTCUSDT": {Symbol: "BTCUSDT", RatePercent: -0.1}},
	}
	r := NewRunner(zerolog.Nop(), provider, cfg)

	signals := r.EvaluateSymbol(context.Background(), "BTCUSDT")
	if len(signals) != 2 {
		t.Fatalf("expected one signal per timeframe, got %d", len(signals))
	}
	if signals[0].Timeframe != "1h" || signals[1].Timeframe != "4h" {
		t.Fatalf("unexpected timeframes: %+v", signals)
	}
}

func TestScanCollectsAcrossSymbolsSorted(t *testing.T) {
	provider := &stubProvider{
		symbols: []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"},
		funding: map[string]signal.FundingRate{
			"BTCUSDT": {Symbol: "BTCUSDT", RatePercent: -0.05}, // high band, score 2.0 -> 0.6
			"ETHUSDT": {Symbol: "ETHUSDT", RatePercent: -0.2},  // extreme capped, score 10 -> 3.0
			"SOLUSDT": {Symbol: "SOLUSDT", RatePercent: 0.001}, // neutral
		},
	}
	r := NewRunner(zerolog.Nop(), provider, testConfig())

	signals, err := r.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	if signals[0].Symbol != "ETHUSDT" || signals[1].Symbol != "BTCUSDT" {
		t.Fatalf("signals not sorted by score: %+v", signals)
	}
}

func TestScanPropagatesTopSymbolsError(t *testing.T) {
	provider := &stubProvider{symbolsErr: errors.New("all venues down")}
	r := NewRunner(zerolog.Nop(), provider, testConfig())
	if _, err := r.Scan(context.Background()); err == nil {
		t.Fatalf("expected error when symbol discovery fails")
	}
}

func TestScanRankedAppliesFloorAndPartition(t *testing.T) {
	cfg := testConfig()
	cfg.Scan.MinScore = 1.0
	provider := &stubProvider{
		symbols: []string{"BTCUSDT", "ETHUSDT"},
		funding: map[string]signal.FundingRate{
			"BTCUSDT": {Symbol: "BTCUSDT", RatePercent: -0.2}, // long, 3.0
			"ETHUSDT": {Symbol: "ETHUSDT", RatePercent: 0.05}, // short, 0.6 - below floor
		},
	}
	r := NewRunner(zerolog.Nop(), provider, cfg)

	ranked, err := r.ScanRanked(context.Background())
	if err != nil {
		t.Fatalf("ScanRanked returned error: %v", err)
	}
	if len(ranked.Long) != 1 || ranked.Long[0].Symbol != "BTCUSDT" {
		t.Fatalf("unexpected long side: %+v", ranked.Long)
	}
	if len(ranked.Short) != 0 {
		t.Fatalf("short below the floor should be filtered: %+v", ranked.Short)
	}
}
