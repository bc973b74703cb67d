// Package metrics exposes kvlens internals as Prometheus metrics and serves
// the /metrics and /healthz endpoints.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Collector metrics
	EventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvlens_events_recorded_total",
		Help: "Events admitted into the collector buffer, by kind",
	}, []string{"kind"})
	EventsSampledOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kvlens_events_sampled_out_total",
		Help: "Events discarded by the sampling draw",
	})
	BufferEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kvlens_buffer_events",
		Help: "Events currently retained in the collector buffer",
	})
	BufferResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kvlens_buffer_resets_total",
		Help: "Times the collector buffer was reset",
	})

	// Analysis metrics
	FindingsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvlens_findings_total",
		Help: "Findings emitted by detectors and the recommendation engine",
	}, []string{"category"})
	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kvlens_analysis_duration_seconds",
		Help:    "Wall time of one analysis pass over the buffer",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"analysis"})

	// Sink metrics
	SinkEmits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvlens_sink_emit_total",
		Help: "Event batches handed to a sink, by sink type and status",
	}, []string{"sink", "status"})
	SinkEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvlens_sink_events_total",
		Help: "Events written through a sink, by sink type",
	}, []string{"sink"})
)

func init() {
	// Pre-initialize Vec metrics so they appear in /metrics output before first use.
	EventsRecorded.WithLabelValues("read")
	EventsRecorded.WithLabelValues("query")
	FindingsEmitted.WithLabelValues("hot_partition")
	AnalysisDuration.WithLabelValues("detect")
	SinkEmits.WithLabelValues("file", "ok")
	SinkEvents.WithLabelValues("file")
}

// HealthCheck holds a single health check function.
type HealthCheck struct {
	Name  string
	Check func() error
}

// HealthStatus represents the health response.
type HealthStatus struct {
	Status string            `json:"status"` // "ok" or "degraded"
	Checks map[string]string `json:"checks"`
}

// healthChecker holds registered health checks.
type healthChecker struct {
	mu     sync.RWMutex
	checks []HealthCheck
}

var defaultHealthChecker = &healthChecker{}

// RegisterHealthCheck adds a health check.
func RegisterHealthCheck(name string, check func() error) {
	defaultHealthChecker.mu.Lock()
	defer defaultHealthChecker.mu.Unlock()
	defaultHealthChecker.checks = append(defaultHealthChecker.checks, HealthCheck{
		Name:  name,
		Check: check,
	})
}

// runChecks runs all registered health checks.
func runChecks() HealthStatus {
	defaultHealthChecker.mu.RLock()
	checks := make([]HealthCheck, len(defaultHealthChecker.checks))
	copy(checks, defaultHealthChecker.checks)
	defaultHealthChecker.mu.RUnlock()

	status := HealthStatus{
		Status: "ok",
		Checks: make(map[string]string),
	}

	for _, hc := range checks {
		if err := hc.Check(); err != nil {
			status.Status = "degraded"
			status.Checks[hc.Name] = err.Error()
		} else {
			status.Checks[hc.Name] = "ok"
		}
	}
	return status
}

// HealthzHandler handles GET /healthz requests.
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	status := runChecks()
	w.Header().Set("Content-Type", "application/json")
	if status.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// MetricsServer starts an HTTP server for /metrics and /healthz on the given addr.
// It blocks until the provided stop channel is closed, then shuts down gracefully.
func MetricsServer(addr string, stop <-chan struct{}) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", HealthzHandler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	case err := <-errCh:
		return err
	}
}
