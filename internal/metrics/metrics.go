package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evaluations_total", Help: "Symbol/timeframe evaluations performed"},
		[]string{"timeframe"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Non-neutral aggregated signals produced"},
		[]string{"direction"},
	)
	LensFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "lens_failures_total", Help: "Lens evaluations skipped due to data errors"},
		[]string{"lens"},
	)
	ProviderFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "provider_fallbacks_total", Help: "Times the active market data provider was switched"},
	)
	TapeTradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tape_trades_total", Help: "Trades ingested by the live tape stream"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(EvaluationsTotal, SignalsTotal, LensFailuresTotal, ProviderFallbacksTotal, TapeTradesTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
