package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config represents metrics configuration
type Config struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
	Host      string `json:"host" yaml:"host" mapstructure:"host"`
	Port      int    `json:"port" yaml:"port" mapstructure:"port"`
	Path      string `json:"path" yaml:"path" mapstructure:"path"`
}

// Collector manages all metrics for the generator and the bootstrap tool
type Collector struct {
	namespace string
	registry  *prometheus.Registry

	// Generation metrics
	RecordsGenerated   *prometheus.CounterVec
	AnomaliesInjected  *prometheus.CounterVec
	GenerationDuration prometheus.Histogram

	// Output metrics
	SinkErrors *prometheus.CounterVec

	// Bootstrap metrics
	BootstrapAttempts *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	c := &Collector{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
	}

	c.initializeMetrics()
	c.registerMetrics()

	return c
}

func (c *Collector) initializeMetrics() {
	c.RecordsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "records_generated_total",
			Help:      "Total number of synthetic log records written",
		},
		[]string{"record_type"},
	)

	c.AnomaliesInjected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "anomalies_injected_total",
			Help:      "Total number of records whose anomaly branch fired",
		},
		[]string{"record_type", "anomaly"},
	)

	c.GenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall time of a complete generation run",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	c.SinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "sink_errors_total",
			Help:      "Total number of failed sink writes",
		},
		[]string{"sink"},
	)

	c.BootstrapAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "bootstrap_attempts_total",
			Help:      "Search service bootstrap attempts by step and outcome",
		},
		[]string{"step", "outcome"},
	)
}

func (c *Collector) registerMetrics() {
	c.registry.MustRegister(c.RecordsGenerated)
	c.registry.MustRegister(c.AnomaliesInjected)
	c.registry.MustRegister(c.GenerationDuration)
	c.registry.MustRegister(c.SinkErrors)
	c.registry.MustRegister(c.BootstrapAttempts)
}

// RecordGenerated counts one written record
func (c *Collector) RecordGenerated(recordType string) {
	c.RecordsGenerated.WithLabelValues(recordType).Inc()
}

// RecordAnomaly counts one injected anomaly
func (c *Collector) RecordAnomaly(recordType, anomaly string) {
	c.AnomaliesInjected.WithLabelValues(recordType, anomaly).Inc()
}

// RecordSinkError counts one failed sink write
func (c *Collector) RecordSinkError(sink string) {
	c.SinkErrors.WithLabelValues(sink).Inc()
}

// RecordBootstrapAttempt counts one bootstrap step attempt
func (c *Collector) RecordBootstrapAttempt(step, outcome string) {
	c.BootstrapAttempts.WithLabelValues(step, outcome).Inc()
}

// ObserveGeneration records the duration of a generation run
func (c *Collector) ObserveGeneration(duration time.Duration) {
	c.GenerationDuration.Observe(duration.Seconds())
}

// CreateHandler creates an HTTP handler for metrics
func (c *Collector) CreateHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Server represents a metrics server
type Server struct {
	config    Config
	collector *Collector
	server    *http.Server
}

// NewServer creates a new metrics server
func NewServer(config Config, collector *Collector) *Server {
	if !config.Enabled {
		return &Server{config: config}
	}

	mux := http.NewServeMux()
	mux.Handle(config.Path, collector.CreateHandler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		config:    config,
		collector: collector,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves metrics until Stop is called. A disabled server returns immediately.
func (s *Server) Start() error {
	if !s.config.Enabled || s.server == nil {
		return nil
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
