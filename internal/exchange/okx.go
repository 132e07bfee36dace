package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"perpscan-go/internal/signal"
)

const defaultOKXBaseURL = "https://www.okx.com"

// okxBars maps unified intervals to OKX candle bar names.
var okxBars = map[string]string{
	"1m": "1m", "3m": "3m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "1H", "2h": "2H", "4h": "4H", "6h": "6H", "12h": "12H",
	"1d": "1D", "1w": "1W", "1M": "1M",
}

// OKX reads v5 perpetual swap market data. OKX names contracts with dashes
// (BTC-USDT-SWAP); the client translates to and from the unified BTCUSDT form.
type OKX struct {
	log     zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewOKX builds an OKX market data client. baseURL may be empty.
func NewOKX(log zerolog.Logger, baseURL string) *OKX {
	if baseURL == "" {
		baseURL = defaultOKXBaseURL
	}
	return &OKX{log: log, client: newHTTPClient(), baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Name implements Provider.
func (o *OKX) Name() string { return ProviderOKX }

// okxInstID converts BTCUSDT to BTC-USDT-SWAP.
func okxInstID(symbol string) string {
	base := strings.TrimSuffix(symbol, "USDT")
	return base + "-USDT-SWAP"
}

// okxSymbol converts BTC-USDT-SWAP back to BTCUSDT.
func okxSymbol(instID string) string {
	return strings.ReplaceAll(strings.TrimSuffix(instID, "-SWAP"), "-", "")
}

type okxEnvelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (o *OKX) request(ctx context.Context, endpoint string, params url.Values, data any) error {
	full := o.baseURL + endpoint
	if len(params) > 0 {
		full += "?" + params.Encode()
	}
	var env okxEnvelope
	if err := getJSON(ctx, o.client, full, nil, &env); err != nil {
		return err
	}
	if env.Code != "0" {
		return fmt.Errorf("okx api error %s: %s", env.Code, env.Msg)
	}
	return decodeJSON(bytes.NewReader(env.Data), data)
}

// TopSymbols lists USDT swaps sorted by 24h quote currency volume.
func (o *OKX) TopSymbols(ctx context.Context, limit int) ([]string, error) {
	var rows []map[string]any
	if err := o.request(ctx, "/api/v5/market/tickers", url.Values{"instType": {"SWAP"}}, &rows); err != nil {
		return nil, fmt.Errorf("okx tickers: %w", err)
	}

	type ranked struct {
		symbol string
		volume float64
	}
	candidates := make([]ranked, 0, len(rows))
	for _, row := range rows {
		instID, _ := row["instId"].(string)
		if !strings.HasSuffix(instID, "-USDT-SWAP") {
			continue
		}
		volume, err := asFloat(row["volCcy24h"])
		if err != nil {
			continue
		}
		candidates = append(candidates, ranked{symbol: okxSymbol(instID), volume: volume})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].volume > candidates[j].volume })

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	symbols := make([]string, len(candidates))
	for i, c := range candidates {
		symbols[i] = c.symbol
	}
	return symbols, nil
}

// Klines fetches an OHLCV window. OKX returns rows newest first:
// [ts, open, high, low, close, vol, volCcy, volCcyQuote, confirm].
func (o *OKX) Klines(ctx context.Context, symbol, interval string, limit int) ([]signal.Candle, error) {
	bar, ok := okxBars[interval]
	if !ok {
		return nil, fmt.Errorf("okx klines %s: unsupported interval %q", symbol, interval)
	}
	params := url.Values{
		"instId": {okxInstID(symbol)},
		"bar":    {bar},
		"limit":  {strconv.Itoa(limit)},
	}
	var rows [][]any
	if err := o.request(ctx, "/api/v5/market/candles", params, &rows); err != nil {
		return nil, fmt.Errorf("okx klines %s %s: %w", symbol, interval, err)
	}

	candles := make([]signal.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- { // reverse to chronological
		row := rows[i]
		if len(row) < 6 {
			return nil, fmt.Errorf("okx klines %s: short row of %d cells", symbol, len(row))
		}
		ts, err := asInt(row[0])
		if err != nil {
			return nil, fmt.Errorf("okx klines %s: timestamp: %w", symbol, err)
		}
		candle := signal.Candle{OpenTime: time.UnixMilli(ts).UTC()}
		for j, dst := range []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume} {
			v, err := asFloat(row[j+1])
			if err != nil {
				return nil, fmt.Errorf("okx klines %s: cell %d: %w", symbol, j+1, err)
			}
			*dst = v
		}
		if len(row) > 7 {
			if quote, err := asFloat(row[7]); err == nil {
				candle.QuoteVolume = quote
			}
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// FundingRate returns the current funding reading for symbol.
func (o *OKX) FundingRate(ctx context.Context, symbol string) (signal.FundingRate, error) {
	var rows []map[string]any
	params := url.Values{"instId": {okxInstID(symbol)}}
	if err := o.request(ctx, "/api/v5/public/funding-rate", params, &rows); err != nil {
		return signal.FundingRate{}, fmt.Errorf("okx funding %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return signal.FundingRate{Symbol: symbol}, nil
	}
	row := rows[0]
	raw, err := asFloat(row["fundingRate"])
	if err != nil {
		return signal.FundingRate{}, fmt.Errorf("okx funding %s: rate: %w", symbol, err)
	}
	out := signal.FundingRate{Symbol: symbol, RatePercent: raw * 100, RateRaw: raw}
	if ms, err := asInt(row["nextFundingTime"]); err == nil {
		out.NextFundingTime = time.UnixMilli(ms).UTC()
	}
	return out, nil
}

// RecentTrades returns the latest tape entries. OKX reports the taker side
// lowercase; a "sell" taker means the buyer was the maker.
func (o *OKX) RecentTrades(ctx context.Context, symbol string, limit int) ([]signal.Trade, error) {
	if limit > 500 {
		limit = 500
	}
	var rows []map[string]any
	params := url.Values{"instId": {okxInstID(symbol)}, "limit": {strconv.Itoa(limit)}}
	if err := o.request(ctx, "/api/v5/market/trades", params, &rows); err != nil {
		return nil, fmt.Errorf("okx trades %s: %w", symbol, err)
	}

	trades := make([]signal.Trade, 0, len(rows))
	for _, row := range rows {
		price, err := asFloat(row["px"])
		if err != nil {
			o.log.Warn().Err(err).Str("symbol", symbol).Msg("skipping trade with bad price")
			continue
		}
		qty, _ := asFloat(row["sz"])
		ms, _ := asInt(row["ts"])
		side, _ := row["side"].(string)
		trades = append(trades, signal.Trade{
			Price:        price,
			Qty:          qty,
			QuoteQty:     price * qty,
			Time:         time.UnixMilli(ms).UTC(),
			IsBuyerMaker: side == "sell",
		})
	}
	return trades, nil
}

// Healthy probes the venue with the cheapest meaningful call.
func (o *OKX) Healthy(ctx context.Context) bool {
	symbols, err := o.TopSymbols(ctx, 1)
	return err == nil && len(symbols) > 0
}
