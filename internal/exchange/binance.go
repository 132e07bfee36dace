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

const defaultBinanceBaseURL = "https://fapi.binance.com"

// Binance reads USDT-margined futures market data over public REST.
// An API key is optional and only attached when present.
type Binance struct {
	log     zerolog.Logger
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewBinance builds a Binance futures client. baseURL may be empty.
func NewBinance(log zerolog.Logger, baseURL, apiKey string) *Binance {
	if baseURL == "" {
		baseURL = defaultBinanceBaseURL
	}
	return &Binance{
		log:     log,
		client:  newHTTPClient(),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name implements Provider.
func (b *Binance) Name() string { return ProviderBinance }

func (b *Binance) header() http.Header {
	h := http.Header{}
	if b.apiKey != "" {
		h.Set("X-MBX-APIKEY", b.apiKey)
	}
	return h
}

type binanceTicker struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

// TopSymbols lists USDT perpetual pairs sorted by 24h quote volume.
func (b *Binance) TopSymbols(ctx context.Context, limit int) ([]string, error) {
	var tickers []binanceTicker
	if err := getJSON(ctx, b.client, b.baseURL+"/fapi/v1/ticker/24hr", b.header(), &tickers); err != nil {
		return nil, fmt.Errorf("binance tickers: %w", err)
	}

	type ranked struct {
		symbol string
		volume float64
	}
	candidates := make([]ranked, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, "USDT") || strings.Contains(t.Symbol, "_") {
			continue
		}
		volume, err := strconv.ParseFloat(t.QuoteVolume, 64)
		if err != nil {
			continue
		}
		candidates = append(candidates, ranked{symbol: t.Symbol, volume: volume})
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

// Klines fetches an OHLCV window. Binance returns positional arrays of mixed
// strings and numbers, oldest first.
func (b *Binance) Klines(ctx context.Context, symbol, interval string, limit int) ([]signal.Candle, error) {
	endpoint := fmt.Sprintf("%s/fapi/v1/klines?symbol=%s&interval=%s&limit=%d",
		b.baseURL, url.QueryEscape(symbol), url.QueryEscape(interval), limit)

	var rows [][]any
	if err := getJSON(ctx, b.client, endpoint, b.header(), &rows); err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}

	candles := make([]signal.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 8 {
			return nil, fmt.Errorf("binance klines %s: short row of %d cells", symbol, len(row))
		}
		openTime, err := asInt(row[0])
		if err != nil {
			return nil, fmt.Errorf("binance klines %s: open time: %w", symbol, err)
		}
		candle := signal.Candle{OpenTime: time.UnixMilli(openTime).UTC()}
		for i, dst := range []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume} {
			v, err := asFloat(row[i+1])
			if err != nil {
				return nil, fmt.Errorf("binance klines %s: cell %d: %w", symbol, i+1, err)
			}
			*dst = v
		}
		if quote, err := asFloat(row[7]); err == nil {
			candle.QuoteVolume = quote
		}
		candles = append(candles, candle)
	}
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].OpenTime.Before(candles[j].OpenTime) })
	return candles, nil
}

type binanceFunding struct {
	Symbol      string `json:"symbol"`
	FundingRate string `json:"fundingRate"`
	FundingTime int64  `json:"fundingTime"`
}

// FundingRate returns the latest funding reading. The wire value is a
// fraction; the percentage form is the fraction times 100.
func (b *Binance) FundingRate(ctx context.Context, symbol string) (signal.FundingRate, error) {
	endpoint := fmt.Sprintf("%s/fapi/v1/fundingRate?symbol=%s&limit=1", b.baseURL, url.QueryEscape(symbol))

	var rows []binanceFunding
	if err := getJSON(ctx, b.client, endpoint, b.header(), &rows); err != nil {
		return signal.FundingRate{}, fmt.Errorf("binance funding %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return signal.FundingRate{Symbol: symbol}, nil
	}
	latest := rows[len(rows)-1]
	raw, err := strconv.ParseFloat(latest.FundingRate, 64)
	if err != nil {
		return signal.FundingRate{}, fmt.Errorf("binance funding %s: rate: %w", symbol, err)
	}
	return signal.FundingRate{
		Symbol:          symbol,
		RatePercent:     raw * 100,
		RateRaw:         raw,
		NextFundingTime: time.UnixMilli(latest.FundingTime).UTC(),
	}, nil
}

type binanceTradeRow struct {
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	QuoteQty     string `json:"quoteQty"`
	Time         int64  `json:"time"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
}

// RecentTrades returns the latest tape entries for symbol.
func (b *Binance) RecentTrades(ctx context.Context, symbol string, limit int) ([]signal.Trade, error) {
	endpoint := fmt.Sprintf("%s/fapi/v1/trades?symbol=%s&limit=%d", b.baseURL, url.QueryEscape(symbol), limit)

	var rows []binanceTradeRow
	if err := getJSON(ctx, b.client, endpoint, b.header(), &rows); err != nil {
		return nil, fmt.Errorf("binance trades %s: %w", symbol, err)
	}

	trades := make([]signal.Trade, 0, len(rows))
	for _, row := range rows {
		price, err := strconv.ParseFloat(row.Price, 64)
		if err != nil {
			b.log.Warn().Err(err).Str("symbol", symbol).Msg("skipping trade with bad price")
			continue
		}
		qty, _ := strconv.ParseFloat(row.Qty, 64)
		quoteQty, err := strconv.ParseFloat(row.QuoteQty, 64)
		if err != nil {
			quoteQty = price * qty
		}
		trades = append(trades, signal.Trade{
			Price:        price,
			Qty:          qty,
			QuoteQty:     quoteQty,
			Time:         time.UnixMilli(row.Time).UTC(),
			IsBuyerMaker: row.IsBuyerMaker,
		})
	}
	return trades, nil
}

// Healthy probes the venue with the cheapest meaningful call.
func (b *Binance) Healthy(ctx context.Context) bool {
	symbols, err := b.TopSymbols(ctx, 1)
	return err == nil && len(symbols) > 0
}
