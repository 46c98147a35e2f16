package metrics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/warranty-register/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth metrics

	AuthDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warranty",
		Name:      "auth_decisions_total",
		Help:      "Identity gate outcomes, by gate and result.",
	}, []string{"gate", "result"})

	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "warranty",
		Name:      "sessions_active",
		Help:      "Browser sessions currently held in memory.",
	})

	SessionsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "warranty",
		Name:      "sessions_expired_total",
		Help:      "Sessions removed by the TTL sweeper.",
	})

	// Warranty metrics

	WarrantyRegistrationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warranty",
		Name:      "registrations_total",
		Help:      "Warranty registration attempts, by principal kind and outcome.",
	}, []string{"principal", "outcome"})

	WarrantiesExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "warranty",
		Name:      "expired_total",
		Help:      "Warranties moved to expired by the expiry worker.",
	})

	ExpiryRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "warranty",
		Name:      "expiry_run_duration_seconds",
		Help:      "Time taken for one expiry run.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "warranty",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warranty",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests, by route, status and principal kind.",
	}, []string{"method", "path", "status", "principal"})
)

func Register() {
	prometheus.MustRegister(
		AuthDecisionsTotal,
		SessionsActive,
		SessionsExpiredTotal,
		WarrantyRegistrationsTotal,
		WarrantiesExpiredTotal,
		ExpiryRunDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

type checker interface {
	Liveness(ctx context.Context) health.HealthResult
	Readiness(ctx context.Context) health.HealthResult
}

// NewServer serves /metrics plus liveness and readiness probes.
func NewServer(addr string, c checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, c.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, c.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, res health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if res.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(res)
}
