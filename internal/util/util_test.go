package util

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger("invalid")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}
}

func TestRound1HalfAwayFromZero(t *testing.T) {
	cases := map[float64]float64{
		2.1666: 2.2,
		6.55:   6.6,
		-6.55:  -6.6,
		0:      0,
		9.94:   9.9,
	}
	for in, want := range cases {
		if got := Round1(in); got != want {
			t.Fatalf("Round1(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestClamp10(t *testing.T) {
	if got := Clamp10(12.3); got != 10 {
		t.Fatalf("expected cap at 10, got %v", got)
	}
	if got := Clamp10(-1); got != 0 {
		t.Fatalf("expected floor at 0, got %v", got)
	}
	if got := Clamp10(4.5); got != 4.5 {
		t.Fatalf("expected passthrough, got %v", got)
	}
}
