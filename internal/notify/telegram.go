// Package notify delivers scan results to Telegram as HTML-formatted cards.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"perpscan-go/internal/signal"
	"perpscan-go/internal/util"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Telegram posts messages through the bot API. A zero-value token disables
// delivery; Send calls become no-ops so callers never have to branch.
type Telegram struct {
	log     zerolog.Logger
	client  *http.Client
	baseURL string
	token   string
	chatID  string
}

// NewTelegram builds a notifier. baseURL may be empty.
func NewTelegram(log zerolog.Logger, token, chatID, baseURL string) *Telegram {
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	return &Telegram{
		log:     log,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		chatID:  chatID,
	}
}

// Enabled reports whether a bot token and chat are configured.
func (t *Telegram) Enabled() bool { return t.token != "" && t.chatID != "" }

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts one HTML message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		return nil
	}
	body, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("telegram decode: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("telegram rejected message: %s", out.Description)
	}
	return nil
}

// SendSignal posts one formatted signal card.
func (t *Telegram) SendSignal(ctx context.Context, sig signal.Aggregated) error {
	return t.Send(ctx, FormatSignal(sig))
}

// SendSummary posts the long/short summary for one scan run.
func (t *Telegram) SendSummary(ctx context.Context, longs, shorts []signal.Aggregated) error {
	return t.Send(ctx, FormatSummary(longs, shorts))
}

// SendNoSignals posts the quiet-market message.
func (t *Telegram) SendNoSignals(ctx context.Context) error {
	return t.Send(ctx, FormatNoSignals(time.Now().UTC()))
}

// StrengthStars renders a coarse star rating for a strength bucket.
func StrengthStars(s signal.Strength) string {
	switch s {
	case signal.VeryStrong:
		return "⭐⭐⭐⭐"
	case signal.Strong:
		return "⭐⭐⭐"
	case signal.Moderate:
		return "⭐⭐"
	default:
		return "⭐"
	}
}

func directionEmoji(d signal.Direction) string {
	if d == signal.Long {
		return "🟢"
	}
	return "🔴"
}

// FormatSignal renders one signal into an HTML card with the full lens
// breakdown.
func FormatSignal(sig signal.Aggregated) string {
	lines := []string{
		fmt.Sprintf("%s <b>%s Signal: %s</b>", directionEmoji(sig.Type), strings.ToUpper(sig.Type.String()), sig.Symbol),
		"━━━━━━━━━━━━━━━━━━━━",
		fmt.Sprintf("Score: <b>%.1f/10</b> %s", sig.TotalScore, StrengthStars(sig.Strength)),
		fmt.Sprintf("Timeframe: %s", sig.Timeframe),
		"",
	}

	if tech := sig.Technical; tech != nil {
		lines = append(lines,
			"📊 <b>Technical Analysis:</b>",
			fmt.Sprintf("  • RSI: %.1f (%s)", tech.RSI, tech.RSIZone),
			fmt.Sprintf("  • MACD: %s", tech.MACDCrossover),
			fmt.Sprintf("  • Price vs EMA: %+.2f%%", tech.PriceVsEMA),
		)
		if tech.VolumeSpike {
			lines = append(lines, fmt.Sprintf("  • Volume Spike: %.1fx avg", tech.VolumeRatio))
		}
		lines = append(lines, "")
	}

	if funding := sig.Funding; funding != nil {
		lines = append(lines,
			fmt.Sprintf("💰 <b>Funding Rate:</b> %.4f%%", funding.RatePercent),
			fmt.Sprintf("  • %s", funding.Description),
			"",
		)
	}

	if liq := sig.Liquidation; liq != nil && liq.Signal != signal.Neutral {
		lines = append(lines,
			"💥 <b>Liquidations:</b>",
			fmt.Sprintf("  • Longs: $%s", util.FormatUSD(liq.LongUSD)),
			fmt.Sprintf("  • Shorts: $%s", util.FormatUSD(liq.ShortUSD)),
			"",
		)
	}

	lines = append(lines,
		"📈 <b>Score Breakdown:</b>",
		fmt.Sprintf("  • Technical: %.1f", sig.TechnicalScore),
		fmt.Sprintf("  • Funding: %.1f", sig.FundingScore),
		fmt.Sprintf("  • Liquidations: %.1f", sig.LiquidationScore),
	)
	if sig.ConfluenceBonus > 0 {
		lines = append(lines, fmt.Sprintf("  • Confluence Bonus: +%.1f", sig.ConfluenceBonus))
	}
	lines = append(lines, "", "⏰ "+sig.Timestamp.Format("2006-01-02 15:04 UTC"))

	return strings.Join(lines, "\n")
}

// FormatDetailedSignal renders the high-priority alert variant used for
// very strong signals.
func FormatDetailedSignal(sig signal.Aggregated) string {
	header := "🚀 <b>STRONG LONG OPPORTUNITY</b> 🚀"
	if sig.Type == signal.Short {
		header = "📉 <b>STRONG SHORT OPPORTUNITY</b> 📉"
	}

	lines := []string{
		header,
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━",
		"",
		fmt.Sprintf("%s <b>%s</b>", directionEmoji(sig.Type), sig.Symbol),
		fmt.Sprintf("Score: <b>%.1f/10</b> %s", sig.TotalScore, StrengthStars(sig.Strength)),
		fmt.Sprintf("Timeframe: %s", sig.Timeframe),
		"",
	}
	if sig.Technical != nil {
		lines = append(lines, fmt.Sprintf("💵 Current Price: $%.4f", sig.Technical.CurrentPrice), "")
	}

	lines = append(lines, "📋 <b>Key Signals:</b>")
	for _, reason := range sig.Reasons {
		lines = append(lines, "  ✓ "+reason)
	}
	lines = append(lines,
		"",
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━",
		"⚠️ <i>Always do your own research. This is not financial advice.</i>",
		"",
		"⏰ "+sig.Timestamp.Format("2006-01-02 15:04 UTC"),
	)
	return strings.Join(lines, "\n")
}

// FormatSummary renders the long/short overview for one scan run. Each side
// lists at most five entries.
func FormatSummary(longs, shorts []signal.Aggregated) string {
	lines := []string{
		"📊 <b>Crypto Futures Analysis Summary</b>",
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━",
		"",
	}
	lines = append(lines, summarySide("🟢 <b>LONG Opportunities:</b>", "  No strong long signals", longs)...)
	lines = append(lines, summarySide("🔴 <b>SHORT Opportunities:</b>", "  No strong short signals", shorts)...)
	lines = append(lines,
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━",
		fmt.Sprintf("Total signals found: %d", len(longs)+len(shorts)),
		"⏰ "+time.Now().UTC().Format("2006-01-02 15:04 UTC"),
	)
	return strings.Join(lines, "\n")
}

func summarySide(header, empty string, signals []signal.Aggregated) []string {
	if len(signals) == 0 {
		return []string{header, empty, ""}
	}
	lines := []string{header}
	for i, sig := range signals {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("  %d. <b>%s</b> - Score: %.1f/10 %s",
			i+1, sig.Symbol, sig.TotalScore, StrengthStars(sig.Strength)))
		if len(sig.Reasons) > 0 {
			lines = append(lines, "      └ "+sig.Reasons[0])
		}
	}
	lines = append(lines, "")
	return lines
}

// FormatNoSignals renders the message for a scan that found nothing.
func FormatNoSignals(at time.Time) string {
	return strings.Join([]string{
		"📊 <b>Crypto Futures Analysis</b>",
		"━━━━━━━━━━━━━━━━━━━━",
		"",
		"No strong trading signals detected.",
		"",
		"⏰ " + at.Format("2006-01-02 15:04 UTC"),
	}, "\n")
}
