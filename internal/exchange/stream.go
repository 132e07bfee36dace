package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rs/zerolog"

	"perpscan-go/internal/metrics"
	"perpscan-go/internal/signal"
)

const defaultBinanceStreamURL = "wss://fstream.binance.com/stream"

// TradeStream maintains a rolling trade tape per symbol from the Binance
// futures aggTrade websocket. The tape feeds the liquidation estimator with
// fresher data than the REST snapshot.
type TradeStream struct {
	log       zerolog.Logger
	streamURL string
	window    time.Duration

	mu      sync.RWMutex
	symbols []string
	tapes   map[string][]signal.Trade
}

// StreamOption configures TradeStream construction parameters.
type StreamOption func(*TradeStream)

// WithStreamURL overrides the websocket endpoint (tests point it at a local server).
func WithStreamURL(url string) StreamOption {
	return func(s *TradeStream) {
		if url != "" {
			s.streamURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithTapeWindow overrides how much trade history each symbol retains.
func WithTapeWindow(d time.Duration) StreamOption {
	return func(s *TradeStream) {
		if d > 0 {
			s.window = d
		}
	}
}

// NewTradeStream constructs a stream tracking the given symbols.
func NewTradeStream(log zerolog.Logger, symbols []string, opts ...StreamOption) *TradeStream {
	s := &TradeStream{
		log:       log,
		streamURL: defaultBinanceStreamURL,
		window:    5 * time.Minute,
		tapes:     make(map[string][]signal.Trade),
	}
	s.setSymbols(symbols)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TradeStream) setSymbols(symbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[strings.ToUpper(sym)] = struct{}{}
	}
	s.symbols = s.symbols[:0]
	for sym := range unique {
		s.symbols = append(s.symbols, sym)
	}
	sort.Strings(s.symbols)
}

func (s *TradeStream) snapshotSymbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Tape returns a copy of the retained trades for symbol, oldest first.
func (s *TradeStream) Tape(symbol string) []signal.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tape := s.tapes[strings.ToUpper(symbol)]
	out := make([]signal.Trade, len(tape))
	copy(out, tape)
	return out
}

func (s *TradeStream) append(symbol string, trade signal.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tape := append(s.tapes[symbol], trade)
	cutoff := trade.Time.Add(-s.window)
	drop := 0
	for drop < len(tape) && tape[drop].Time.Before(cutoff) {
		drop++
	}
	s.tapes[symbol] = tape[drop:]
}

type aggTradeEnvelope struct {
	Stream string   `json:"stream"`
	Data   aggTrade `json:"data"`
}

type aggTrade struct {
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// Run consumes the stream until the context is canceled, reconnecting with
// capped exponential backoff on failures.
func (s *TradeStream) Run(ctx context.Context) error {
	symbols := s.snapshotSymbols()
	if len(symbols) == 0 {
		return fmt.Errorf("trade stream requires at least one symbol")
	}

	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = strings.ToLower(sym) + "@aggTrade"
	}
	url := fmt.Sprintf("%s?streams=%s", s.streamURL, strings.Join(streams, "/"))

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx, url, symbols); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("trade stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (s *TradeStream) consume(ctx context.Context, url string, symbols []string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Strs("symbols", symbols).Msg("connected trade stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("trade stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		symbol, trade, err := parseAggTrade(message)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to decode stream message")
			continue
		}
		s.append(symbol, trade)
		metrics.TapeTradesTotal.WithLabelValues(symbol).Inc()
	}
}

// parseAggTrade decodes one combined-stream frame into a symbol and trade.
func parseAggTrade(message []byte) (string, signal.Trade, error) {
	var env aggTradeEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return "", signal.Trade{}, err
	}
	symbol := parseStreamSymbol(env.Stream)
	price, err := strconv.ParseFloat(env.Data.Price, 64)
	if err != nil {
		return "", signal.Trade{}, fmt.Errorf("invalid price: %w", err)
	}
	qty, err := strconv.ParseFloat(env.Data.Quantity, 64)
	if err != nil {
		return "", signal.Trade{}, fmt.Errorf("invalid quantity: %w", err)
	}
	return symbol, signal.Trade{
		Price:        price,
		Qty:          qty,
		QuoteQty:     price * qty,
		Time:         time.UnixMilli(env.Data.TradeTime).UTC(),
		IsBuyerMaker: env.Data.IsBuyerMaker,
	}, nil
}

func parseStreamSymbol(stream string) string {
	parts := strings.Split(stream, "@")
	if len(parts) == 0 || parts[0] == "" {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(parts[0])
}
