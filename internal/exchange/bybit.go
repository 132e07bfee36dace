package exchange

import (
	"context"
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

const defaultBybitBaseURL = "https://api.bybit.com"

// bybitIntervals maps unified intervals to the v5 kline format.
var bybitIntervals = map[string]string{
	"1m": "1", "3m": "3", "5m": "5", "15m": "15", "30m": "30",
	"1h": "60", "2h": "120", "4h": "240", "6h": "360", "12h": "720",
	"1d": "D", "1w": "W", "1M": "M",
}

// Bybit reads v5 linear perpetual market data. Public endpoints only, no
// API key required.
type Bybit struct {
	log     zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewBybit builds a Bybit market data client. baseURL may be empty.
func NewBybit(log zerolog.Logger, baseURL string) *Bybit {
	if baseURL == "" {
		baseURL = defaultBybitBaseURL
	}
	return &Bybit{log: log, client: newHTTPClient(), baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Name implements Provider.
func (b *Bybit) Name() string { return ProviderBybit }

type bybitEnvelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  bybitResultList `json:"result"`
}

type bybitResultList struct {
	List []map[string]any `json:"list"`
}

func (b *Bybit) request(ctx context.Context, endpoint string, params url.Values) ([]map[string]any, error) {
	full := b.baseURL + endpoint
	if len(params) > 0 {
		full += "?" + params.Encode()
	}
	var env bybitEnvelope
	if err := getJSON(ctx, b.client, full, nil, &env); err != nil {
		return nil, err
	}
	if env.RetCode != 0 {
		return nil, fmt.Errorf("bybit api error %d: %s", env.RetCode, env.RetMsg)
	}
	return env.Result.List, nil
}

func bybitString(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return s
}

// TopSymbols lists USDT linear perpetuals sorted by 24h turnover.
func (b *Bybit) TopSymbols(ctx context.Context, limit int) ([]string, error) {
	list, err := b.request(ctx, "/v5/market/tickers", url.Values{"category": {"linear"}})
	if err != nil {
		return nil, fmt.Errorf("bybit tickers: %w", err)
	}

	type ranked struct {
		symbol   string
		turnover float64
	}
	candidates := make([]ranked, 0, len(list))
	for _, row := range list {
		symbol := bybitString(row, "symbol")
		if !strings.HasSuffix(symbol, "USDT") {
			continue
		}
		turnover, err := strconv.ParseFloat(bybitString(row, "turnover24h"), 64)
		if err != nil {
			continue
		}
		candidates = append(candidates, ranked{symbol: symbol, turnover: turnover})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].turnover > candidates[j].turnover })

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	symbols := make([]string, len(candidates))
	for i, c := range candidates {
		symbols[i] = c.symbol
	}
	return symbols, nil
}

type bybitKlineEnvelope struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List [][]any `json:"list"`
	} `json:"result"`
}

// Klines fetches an OHLCV window. Bybit returns rows newest first:
// [startTime, open, high, low, close, volume, turnover].
func (b *Bybit) Klines(ctx context.Context, symbol, interval string, limit int) ([]signal.Candle, error) {
	bybitInterval, ok := bybitIntervals[interval]
	if !ok {
		return nil, fmt.Errorf("bybit klines %s: unsupported interval %q", symbol, interval)
	}
	params := url.Values{
		"category": {"linear"},
		"symbol":   {symbol},
		"interval": {bybitInterval},
		"limit":    {strconv.Itoa(limit)},
	}
	var env bybitKlineEnvelope
	if err := getJSON(ctx, b.client, b.baseURL+"/v5/market/kline?"+params.Encode(), nil, &env); err != nil {
		return nil, fmt.Errorf("bybit klines %s %s: %w", symbol, interval, err)
	}
	if env.RetCode != 0 {
		return nil, fmt.Errorf("bybit klines %s: api error %d: %s", symbol, env.RetCode, env.RetMsg)
	}

	rows := env.Result.List
	candles := make([]signal.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- { // reverse to chronological
		row := rows[i]
		if len(row) < 7 {
			return nil, fmt.Errorf("bybit klines %s: short row of %d cells", symbol, len(row))
		}
		start, err := asInt(row[0])
		if err != nil {
			return nil, fmt.Errorf("bybit klines %s: start time: %w", symbol, err)
		}
		candle := signal.Candle{OpenTime: time.UnixMilli(start).UTC()}
		for j, dst := range []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume, &candle.QuoteVolume} {
			v, err := asFloat(row[j+1])
			if err != nil {
				return nil, fmt.Errorf("bybit klines %s: cell %d: %w", symbol, j+1, err)
			}
			*dst = v
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// FundingRate reads the current rate and next funding time off the ticker.
func (b *Bybit) FundingRate(ctx context.Context, symbol string) (signal.FundingRate, error) {
	list, err := b.request(ctx, "/v5/market/tickers", url.Values{"category": {"linear"}, "symbol": {symbol}})
	if err != nil {
		return signal.FundingRate{}, fmt.Errorf("bybit funding %s: %w", symbol, err)
	}
	if len(list) == 0 {
		return signal.FundingRate{Symbol: symbol}, nil
	}
	row := list[0]
	raw, err := strconv.ParseFloat(bybitString(row, "fundingRate"), 64)
	if err != nil {
		return signal.FundingRate{}, fmt.Errorf("bybit funding %s: rate: %w", symbol, err)
	}
	out := signal.FundingRate{Symbol: symbol, RatePercent: raw * 100, RateRaw: raw}
	if ms, err := strconv.ParseInt(bybitString(row, "nextFundingTime"), 10, 64); err == nil {
		out.NextFundingTime = time.UnixMilli(ms).UTC()
	}
	return out, nil
}

// RecentTrades returns the latest tape entries. Bybit reports the taker
// side; a "Sell" taker means the buyer was the maker.
func (b *Bybit) RecentTrades(ctx context.Context, symbol string, limit int) ([]signal.Trade, error) {
	if limit > 1000 {
		limit = 1000
	}
	list, err := b.request(ctx, "/v5/market/recent-trade", url.Values{
		"category": {"linear"},
		"symbol":   {symbol},
		"limit":    {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, fmt.Errorf("bybit trades %s: %w", symbol, err)
	}

	trades := make([]signal.Trade, 0, len(list))
	for _, row := range list {
		price, err := strconv.ParseFloat(bybitString(row, "price"), 64)
		if err != nil {
			b.log.Warn().Err(err).Str("symbol", symbol).Msg("skipping trade with bad price")
			continue
		}
		qty, _ := strconv.ParseFloat(bybitString(row, "size"), 64)
		ms, _ := strconv.ParseInt(bybitString(row, "time"), 10, 64)
		trades = append(trades, signal.Trade{
			Price:        price,
			Qty:          qty,
			QuoteQty:     price * qty,
			Time:         time.UnixMilli(ms).UTC(),
			IsBuyerMaker: bybitString(row, "side") == "Sell",
		})
	}
	return trades, nil
}

// Healthy probes the venue with the cheapest meaningful call.
func (b *Bybit) Healthy(ctx context.Context) bool {
	symbols, err := b.TopSymbols(ctx, 1)
	return err == nil && len(symbols) > 0
}
