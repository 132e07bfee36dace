package analysis

import (
	"testing"
	"time"

	"perpscan-go/internal/signal"
)

func TestAnalyzeLiquidationsLongDominant(t *testing.T) {
	liq := AnalyzeLiquidations("BTCUSDT", 2_000_000, 200_000, 1_000_000)
	if liq.Signal != signal.Long {
		t.Fatalf("expected long signal, got %s", liq.Signal)
	}
	// min(2, 5) + min(2_000_000/200_000 - 1, 5) = 2 + 5 = 7.0
	if liq.Score != 7.0 {
		t.Fatalf("expected score 7.0, got %v", liq.Score)
	}
	if liq.NetUSD != 1_800_000 {
		t.Fatalf("expected net 1.8M, got %v", liq.NetUSD)
	}
}

func TestAnalyzeLiquidationsShortDominant(t *testing.T) {
	liq := AnalyzeLiquidations("ETHUSDT", 100_000, 3_000_000, 1_000_000)
	if liq.Signal != signal.Short {
		t.Fatalf("expected short signal, got %s", liq.Signal)
	}
	// min(3, 5) + min(3_000_000/100_000 - 1, 5) = 3 + 5 = 8.0
	if liq.Score != 8.0 {
		t.Fatalf("expected score 8.0, got %v", liq.Score)
	}
}

func TestAnalyzeLiquidationsLowActivity(t *testing.T) {
	liq := AnalyzeLiquidations("BTCUSDT", 100_000, 200_000, 1_000_000)
	if liq.Signal != signal.Neutral || liq.Score != 0 {
		t.Fatalf("expected neutral/0 below half threshold, got %s/%v", liq.Signal, liq.Score)
	}
}

func TestAnalyzeLiquidationsBalanced(t *testing.T) {
	// Significant total but neither side dominates by 1.5x.
	liq := AnalyzeLiquidations("BTCUSDT", 1_000_000, 900_000, 1_000_000)
	if liq.Signal != signal.Neutral || liq.Score != 0 {
		t.Fatalf("expected neutral/0 on balanced flow, got %s/%v", liq.Signal, liq.Score)
	}
}

func TestAnalyzeLiquidationsScoreCap(t *testing.T) {
	liq := AnalyzeLiquidations("BTCUSDT", 50_000_000, 0, 1_000_000)
	if liq.Score != 10 {
		t.Fatalf("expected capped score 10, got %v", liq.Score)
	}
}

func TestEstimateLiquidationsShocks(t *testing.T) {
	now := time.Now()
	trades := []signal.Trade{
		{Price: 100, QuoteQty: 10_000, Time: now},
		// 1% drop with a buyer-maker print: long liquidation.
		{Price: 99, QuoteQty: 50_000, IsBuyerMaker: true, Time: now.Add(time.Second)},
		// 1% rise taken by an aggressive buyer: short liquidation.
		{Price: 99.99, QuoteQty: 30_000, IsBuyerMaker: false, Time: now.Add(2 * time.Second)},
		// Small move, ignored either way.
		{Price: 100.01, QuoteQty: 90_000, IsBuyerMaker: false, Time: now.Add(3 * time.Second)},
	}
	longUSD, shortUSD := EstimateLiquidations(trades, 0.5)
	if longUSD != 50_000 {
		t.Fatalf("expected 50k long liquidations, got %v", longUSD)
	}
	if shortUSD != 30_000 {
		t.Fatalf("expected 30k short liquidations, got %v", shortUSD)
	}
}

func TestEstimateLiquidationsSortsTape(t *testing.T) {
	now := time.Now()
	ordered := []signal.Trade{
		{Price: 100, QuoteQty: 1_000, Time: now},
		{Price: 98, QuoteQty: 25_000, IsBuyerMaker: true, Time: now.Add(time.Second)},
	}
	shuffled := []signal.Trade{ordered[1], ordered[0]}

	longA, shortA := EstimateLiquidations(ordered, 0.5)
	longB, shortB := EstimateLiquidations(shuffled, 0.5)
	if longA != longB || shortA != shortB {
		t.Fatalf("estimator must be order-insensitive: (%v,%v) vs (%v,%v)", longA, shortA, longB, shortB)
	}
	if longA != 25_000 {
		t.Fatalf("expected 25k long liquidations, got %v", longA)
	}
}

func TestEstimateLiquidationsEmptyTape(t *testing.T) {
	longUSD, shortUSD := EstimateLiquidations(nil, 0.5)
	if longUSD != 0 || shortUSD != 0 {
		t.Fatalf("expected zero estimate on empty tape, got %v/%v", longUSD, shortUSD)
	}
}

func TestEstimateLiquidationsWrongSideIgnored(t *testing.T) {
	now := time.Now()
	// A drop where the trade was aggressive selling into bids (not
	// buyer-maker) is not attributed to long liquidations.
	trades := []signal.Trade{
		{Price: 100, QuoteQty: 1_000, Time: now},
		{Price: 99, QuoteQty: 25_000, IsBuyerMaker: false, Time: now.Add(time.Second)},
	}
	longUSD, shortUSD := EstimateLiquidations(trades, 0.5)
	if longUSD != 0 || shortUSD != 0 {
		t.Fatalf("expected no attribution, got %v/%v", longUSD, shortUSD)
	}
}
