package exchange

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"perpscan-go/internal/metrics"
)

// Manager owns the venue fallback chain. It hands out the first healthy
// provider, remembers the choice, and re-runs the probe sequence only when
// the cached venue starts failing.
type Manager struct {
	log       zerolog.Logger
	providers []Provider
	preferred string

	mu     sync.Mutex
	active Provider
}

// NewManager builds a manager over providers in fallback order. preferred
// names the venue to try first, or "auto" / "" to keep the given order.
func NewManager(log zerolog.Logger, preferred string, providers ...Provider) *Manager {
	return &Manager{log: log, providers: providers, preferred: preferred}
}

// ordered returns the probe sequence with the preferred venue first.
func (m *Manager) ordered() []Provider {
	if m.preferred == "" || m.preferred == "auto" {
		return m.providers
	}
	out := make([]Provider, 0, len(m.providers))
	for _, p := range m.providers {
		if p.Name() == m.preferred {
			out = append(out, p)
		}
	}
	for _, p := range m.providers {
		if p.Name() != m.preferred {
			out = append(out, p)
		}
	}
	return out
}

// Active returns a healthy provider, probing venues in order when the
// cached one is gone or no longer answering.
func (m *Manager) Active(ctx context.Context) (Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.Healthy(ctx) {
		return m.active, nil
	}
	if m.active != nil {
		m.log.Warn().Str("provider", m.active.Name()).Msg("active provider unhealthy, probing fallbacks")
		metrics.ProviderFallbacksTotal.Inc()
		m.active = nil
	}

	for _, p := range m.ordered() {
		if p.Healthy(ctx) {
			m.log.Info().Str("provider", p.Name()).Msg("selected market data provider")
			m.active = p
			return p, nil
		}
		m.log.Warn().Str("provider", p.Name()).Msg("provider failed health check")
	}
	return nil, ErrNoProvider
}

// Reset drops the cached provider so the next Active call probes again.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
}
