package observability

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uniqtext_pipeline_outcomes_total",
			Help: "Processed URLs by result and final stage",
		},
		[]string{"result", "stage"},
	)

	RewriteAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uniqtext_rewrite_attempts_total",
			Help: "Calls to rewrite providers by provider and result",
		},
		[]string{"provider", "result"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uniqtext_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 60},
		},
		[]string{"stage"},
	)
)

// Register adds the collectors to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{PipelineOutcomes, RewriteAttempts, StageDuration} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// Start serves /metrics on port. An empty port disables the endpoint.
func Start(port string) error {
	if port == "" {
		return nil
	}
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			slog.Error("metrics server stopped", "port", port, "error", err)
		}
	}()
	return nil
}
