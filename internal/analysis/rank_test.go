package analysis

import (
	"testing"

	"perpscan-go/internal/signal"
)

func sig(symbol string, dir signal.Direction, score float64) signal.Aggregated {
	return signal.Aggregated{Symbol: symbol, Timeframe: "1h", Type: dir, TotalScore: score}
}

func TestFilterInclusiveBoundary(t *testing.T) {
	signals := []signal.Aggregated{
		sig("AT", signal.Long, 7.0),
		sig("BELOW", signal.Short, 6.9),
		sig("ABOVE", signal.Long, 8.2),
	}
	got := Filter(signals, 7.0, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(got))
	}
	for _, s := range got {
		if s.Symbol == "BELOW" {
			t.Fatalf("signal below min score must be excluded")
		}
	}
	if got[0].Symbol != "ABOVE" || got[1].Symbol != "AT" {
		t.Fatalf("expected descending score order, got %v then %v", got[0].Symbol, got[1].Symbol)
	}
}

func TestFilterDropsNeutral(t *testing.T) {
	signals := []signal.Aggregated{
		sig("N", signal.Neutral, 9.0),
		sig("L", signal.Long, 5.0),
	}
	got := Filter(signals, 0, nil)
	if len(got) != 1 || got[0].Symbol != "L" {
		t.Fatalf("neutral signals must be dropped, got %v", got)
	}
}

func TestFilterByType(t *testing.T) {
	signals := []signal.Aggregated{
		sig("L", signal.Long, 8.0),
		sig("S", signal.Short, 9.0),
	}
	got := Filter(signals, 0, []signal.Direction{signal.Short})
	if len(got) != 1 || got[0].Symbol != "S" {
		t.Fatalf("expected only short signals, got %v", got)
	}
}

func TestFilterStableOnTies(t *testing.T) {
	signals := []signal.Aggregated{
		sig("FIRST", signal.Long, 7.5),
		sig("SECOND", signal.Long, 7.5),
	}
	got := Filter(signals, 0, nil)
	if got[0].Symbol != "FIRST" || got[1].Symbol != "SECOND" {
		t.Fatalf("equal scores must keep input order, got %v then %v", got[0].Symbol, got[1].Symbol)
	}
}

func TestRankPartitionsAndTruncates(t *testing.T) {
	signals := []signal.Aggregated{
		sig("L1", signal.Long, 9.1),
		sig("S1", signal.Short, 8.0),
		sig("L2", signal.Long, 7.2),
		sig("L3", signal.Long, 8.4),
		sig("S2", signal.Short, 9.5),
		sig("N", signal.Neutral, 9.9),
	}
	ranked := Rank(signals, 2)

	if len(ranked.Long) != 2 || len(ranked.Short) != 2 {
		t.Fatalf("expected 2 per side, got %d/%d", len(ranked.Long), len(ranked.Short))
	}
	if ranked.Long[0].Symbol != "L1" || ranked.Long[1].Symbol != "L3" {
		t.Fatalf("unexpected long ranking: %v %v", ranked.Long[0].Symbol, ranked.Long[1].Symbol)
	}
	if ranked.Short[0].Symbol != "S2" || ranked.Short[1].Symbol != "S1" {
		t.Fatalf("unexpected short ranking: %v %v", ranked.Short[0].Symbol, ranked.Short[1].Symbol)
	}
}

func TestRankZeroTopNKeepsAll(t *testing.T) {
	signals := []signal.Aggregated{
		sig("L1", signal.Long, 5),
		sig("L2", signal.Long, 6),
	}
	ranked := Rank(signals, 0)
	if len(ranked.Long) != 2 {
		t.Fatalf("topN 0 should keep everything, got %d", len(ranked.Long))
	}
}
