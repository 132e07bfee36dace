// Package exchange hosts market data connectors for the venues the scanner
// can read from, plus the fallback manager that picks a healthy one.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"perpscan-go/internal/signal"
)

const (
	// ProviderBinance reads Binance USDT-margined futures public REST.
	ProviderBinance = "binance"
	// ProviderBybit reads Bybit v5 linear public REST.
	ProviderBybit = "bybit"
	// ProviderOKX reads OKX v5 swap public REST.
	ProviderOKX = "okx"
)

// ErrNoProvider is returned when every configured venue fails its health check.
var ErrNoProvider = errors.New("all market data providers unavailable")

// Provider supplies the market data the three lenses consume. Implementations
// must return candles in chronological order with monotonic open times and
// must report a shortage instead of padding.
type Provider interface {
	Name() string
	// TopSymbols lists up to limit USDT perpetual symbols by 24h quote volume.
	TopSymbols(ctx context.Context, limit int) ([]string, error)
	// Klines returns a chronological OHLCV window for (symbol, interval).
	Klines(ctx context.Context, symbol, interval string, limit int) ([]signal.Candle, error)
	// FundingRate returns the latest funding reading for symbol.
	FundingRate(ctx context.Context, symbol string) (signal.FundingRate, error)
	// RecentTrades returns up to limit recent tape entries for symbol.
	RecentTrades(ctx context.Context, symbol string, limit int) ([]signal.Trade, error)
	// Healthy reports whether the venue currently answers market data calls.
	Healthy(ctx context.Context) bool
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// getJSON performs one GET and decodes the body into out.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "perpscan-go/1.0")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := decodeJSON(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
