package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsManager holds the client-side Prometheus metrics.
type MetricsManager struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestErrorsTotal *prometheus.CounterVec
	RequestLatency     *prometheus.HistogramVec
	CacheLookupsTotal  *prometheus.CounterVec
	InvalidationsTotal *prometheus.CounterVec
}

// NewMetricsManager initializes and registers the metrics on a private registry,
// so several clients in one process (tests) do not collide.
func NewMetricsManager(namespace string) *MetricsManager {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Total number of backend requests by operation and HTTP status.",
	}, []string{"operation", "status"})
	requestErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_request_errors_total",
		Help:      "Total number of failed backend requests by operation and error type.",
	}, []string{"operation", "error_type"})
	requestLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_latency_seconds",
		Help:      "Latency of backend requests by operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	cacheLookupsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "query_cache_lookups_total",
		Help:      "Query cache lookups by scope and result (hit, miss).",
	}, []string{"scope", "result"})
	invalidationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "query_invalidations_total",
		Help:      "Query scope invalidations triggered by mutations.",
	}, []string{"scope"})

	registry.MustRegister(
		requestsTotal,
		requestErrorsTotal,
		requestLatency,
		cacheLookupsTotal,
		invalidationsTotal,
		prometheus.NewGoCollector(),
	)

	return &MetricsManager{
		Registry:           registry,
		RequestsTotal:      requestsTotal,
		RequestErrorsTotal: requestErrorsTotal,
		RequestLatency:     requestLatency,
		CacheLookupsTotal:  cacheLookupsTotal,
		InvalidationsTotal: invalidationsTotal,
	}
}

// NewMetricsServer returns a server exposing registry on :port/metrics.
func NewMetricsServer(port string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// StartMetricsServer serves until server is shut down. A shutdown is not
// reported as an error.
func StartMetricsServer(server *http.Server, appLogger *logger.Logger) error {
	appLogger.Info("Prometheus metrics server starting", zap.String("addr", server.Addr), zap.String("path", "/metrics"))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
