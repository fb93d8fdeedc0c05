// Package metrics exposes client-side counters for API calls and optimistic
// mutations.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// APIRequestDuration is the latency of backend calls in seconds
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tempo_api_request_duration_seconds",
			Help:    "Backend request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	// MutationOutcomes counts optimistic mutations by how they settled
	MutationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempo_mutation_outcomes_total",
			Help: "Optimistic mutations by entity and outcome",
		},
		[]string{"entity", "outcome"},
	)

	// SessionInvalidations counts credentials dropped after a 401
	SessionInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tempo_session_invalidations_total",
			Help: "Stored credentials cleared after the backend rejected them",
		},
	)
)

// ObserveRequest records one backend call
func ObserveRequest(method, route, status string, d time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// RecordMutation counts one settled mutation
func RecordMutation(entity, outcome string) {
	MutationOutcomes.WithLabelValues(entity, outcome).Inc()
}

// RecordSessionInvalidated counts one dropped credential
func RecordSessionInvalidated() {
	SessionInvalidations.Inc()
}

// Serve exposes /metrics on addr until ctx is done
func Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
