package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"perpscan-go/internal/signal"
)

func sampleSignal() signal.Aggregated {
	return signal.Aggregated{
		Symbol:     "BTCUSDT",
		Timeframe:  "1h",
		Type:       signal.Long,
		Strength:   signal.Strong,
		TotalScore: 7.7,
		Technical: &signal.Technical{
			Symbol:        "BTCUSDT",
			RSI:           25.0,
			RSIZone:       signal.RSIOversold,
			MACDCrossover: signal.CrossBullish,
			PriceVsEMA:    -3.2,
			VolumeRatio:   2.4,
			VolumeSpike:   true,
			CurrentPrice:  43250.5,
		},
		Funding: &signal.Funding{
			RatePercent: -0.08,
			Signal:      signal.Long,
			Intensity:   signal.IntensityHigh,
			Description: "High negative funding - shorts paying longs",
		},
		Liquidation: &signal.Liquidation{
			LongUSD:  2000000,
			ShortUSD: 200000,
			Signal:   signal.Long,
		},
		TechnicalScore:   4.0,
		FundingScore:     1.5,
		LiquidationScore: 1.4,
		ConfluenceCount:  3,
		ConfluenceBonus:  1.5,
		Timestamp:        time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC),
		Reasons:          []string{"Technical: LONG (RSI: 25.0, MACD: bullish)"},
	}
}

func TestFormatSignalIncludesLensBreakdown(t *testing.T) {
	msg := FormatSignal(sampleSignal())

	for _, want := range []string{
		"🟢 <b>LONG Signal: BTCUSDT</b>",
		"Score: <b>7.7/10</b> ⭐⭐⭐",
		"Timeframe: 1h",
		"RSI: 25.0 (oversold)",
		"MACD: bullish",
		"Price vs EMA: -3.20%",
		"Volume Spike: 2.4x avg",
		"Funding Rate:</b> -0.0800%",
		"Longs: $2,000,000",
		"Shorts: $200,000",
		"Technical: 4.0",
		"Confluence Bonus: +1.5",
		"2024-01-15 14:30 UTC",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatSignalOmitsNeutralLiquidations(t *testing.T) {
	sig := sampleSignal()
	sig.Liquidation = &signal.Liquidation{Signal: signal.Neutral}
	msg := FormatSignal(sig)
	if strings.Contains(msg, "Liquidations:</b>\n") && strings.Contains(msg, "💥") {
		t.Fatalf("neutral liquidation block should be omitted:\n%s", msg)
	}
}

func TestFormatSignalOmitsMissingLenses(t *testing.T) {
	sig := sampleSignal()
	sig.Technical = nil
	sig.Funding = nil
	msg := FormatSignal(sig)
	if strings.Contains(msg, "Technical Analysis") || strings.Contains(msg, "Funding Rate:") {
		t.Fatalf("missing lenses should be omitted:\n%s", msg)
	}
	// score breakdown always present
	if !strings.Contains(msg, "Score Breakdown") {
		t.Fatalf("score breakdown missing:\n%s", msg)
	}
}

func TestFormatDetailedSignalHeaders(t *testing.T) {
	long := sampleSignal()
	if msg := FormatDetailedSignal(long); !strings.Contains(msg, "STRONG LONG OPPORTUNITY") {
		t.Fatalf("long header missing:\n%s", msg)
	}
	short := sampleSignal()
	short.Type = signal.Short
	if msg := FormatDetailedSignal(short); !strings.Contains(msg, "STRONG SHORT OPPORTUNITY") {
		t.Fatalf("short header missing:\n%s", msg)
	}
	if msg := FormatDetailedSignal(long); !strings.Contains(msg, "✓ Technical: LONG") {
		t.Fatalf("reasons missing:\n%s", msg)
	}
}

func TestFormatSummaryCapsAtFivePerSide(t *testing.T) {
	longs := make([]signal.Aggregated, 7)
	for i := range longs {
		longs[i] = sampleSignal()
	}
	msg := FormatSummary(longs, nil)
	if !strings.Contains(msg, "  5. <b>BTCUSDT</b>") {
		t.Fatalf("expected fifth entry:\n%s", msg)
	}
	if strings.Contains(msg, "  6. ") {
		t.Fatalf("summary should cap at five entries per side:\n%s", msg)
	}
	if !strings.Contains(msg, "No strong short signals") {
		t.Fatalf("empty short side placeholder missing:\n%s", msg)
	}
	if !strings.Contains(msg, "Total signals found: 7") {
		t.Fatalf("total should count all signals, not the displayed cap:\n%s", msg)
	}
}

func TestTelegramSendPostsHTMLMessage(t *testing.T) {
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken123/sendMessage" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	tg := NewTelegram(zerolog.Nop(), "token123", "chat42", server.URL)
	if err := tg.Send(context.Background(), "<b>hello</b>"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if got.ChatID != "chat42" || got.Text != "<b>hello</b>" || got.ParseMode != "HTML" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestTelegramSendSurfacesAPIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok": false, "description": "chat not found"}`))
	}))
	defer server.Close()

	tg := NewTelegram(zerolog.Nop(), "token123", "chat42", server.URL)
	err := tg.Send(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestTelegramDisabledWithoutToken(t *testing.T) {
	tg := NewTelegram(zerolog.Nop(), "", "chat42", "http://127.0.0.1:0")
	if tg.Enabled() {
		t.Fatalf("expected disabled notifier")
	}
	if err := tg.Send(context.Background(), "dropped"); err != nil {
		t.Fatalf("disabled Send should be a no-op, got %v", err)
	}
}
