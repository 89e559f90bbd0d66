// Package metrics exposes the Prometheus registries every service starts,
// adapted from the teacher's PrometheusMetrics struct and trimmed to the
// signals this pipeline's components actually produce.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Registry holds the metrics shared by all four services. Each service
// constructs one at startup with its own `service` label value baked into
// the convenience methods below.
type Registry struct {
	MessagesProcessed *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	ProcessingLatency *prometheus.HistogramVec
	ProduceErrors     *prometheus.CounterVec
	ExchangeStatus    *prometheus.GaugeVec
	BufferDepth       *prometheus.GaugeVec
	SinkWriteErrors   *prometheus.CounterVec

	service string
	server  *http.Server
	logger  *zap.Logger
}

// New builds and registers a Registry for the named service
// ("trades"|"candles"|"technical_indicators"|"predictions").
func New(service string, logger *zap.Logger) *Registry {
	r := &Registry{
		service: service,
		logger:  logger,
		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_messages_processed_total",
				Help: "Total number of input records processed.",
			},
			[]string{"service", "pair"},
		),
		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_messages_dropped_total",
				Help: "Total number of input records dropped (malformed or failed validation).",
			},
			[]string{"service", "reason"},
		),
		ProcessingLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_processing_latency_seconds",
				Help:    "Per-record processing latency.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"service"},
		),
		ProduceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_produce_errors_total",
				Help: "Total number of failed Kafka produces.",
			},
			[]string{"service", "topic"},
		),
		ExchangeStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipeline_exchange_connection_status",
				Help: "Exchange connection status (1=connected, 0=disconnected).",
			},
			[]string{"exchange"},
		),
		BufferDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipeline_indicator_buffer_depth",
				Help: "Number of candles currently held in a pair's rolling buffer.",
			},
			[]string{"pair"},
		),
		SinkWriteErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_sink_write_errors_total",
				Help: "Total number of streaming-SQL sink failures (non-fatal).",
			},
			[]string{"sink"},
		),
	}

	prometheus.MustRegister(
		r.MessagesProcessed, r.MessagesDropped, r.ProcessingLatency,
		r.ProduceErrors, r.ExchangeStatus, r.BufferDepth, r.SinkWriteErrors,
	)
	return r
}

// RecordProcessed increments the per-pair processed counter.
func (r *Registry) RecordProcessed(pair string) {
	r.MessagesProcessed.WithLabelValues(r.service, pair).Inc()
}

// RecordDropped increments the dropped counter for reason.
func (r *Registry) RecordDropped(reason string) {
	r.MessagesDropped.WithLabelValues(r.service, reason).Inc()
}

// ObserveLatency records how long one record took to process.
func (r *Registry) ObserveLatency(d time.Duration) {
	r.ProcessingLatency.WithLabelValues(r.service).Observe(d.Seconds())
}

// RecordProduceError increments the produce-error counter for topic.
func (r *Registry) RecordProduceError(topic string) {
	r.ProduceErrors.WithLabelValues(r.service, topic).Inc()
}

// SetExchangeStatus reports WS connection health.
func (r *Registry) SetExchangeStatus(exchange string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	r.ExchangeStatus.WithLabelValues(exchange).Set(v)
}

// SetBufferDepth reports the current buffer length for a pair.
func (r *Registry) SetBufferDepth(pair string, depth int) {
	r.BufferDepth.WithLabelValues(pair).Set(float64(depth))
}

// RecordSinkWriteError increments the sink-write-error counter.
func (r *Registry) RecordSinkWriteError(sink string) {
	r.SinkWriteErrors.WithLabelValues(sink).Inc()
}

// Serve starts the /metrics and /health HTTP server on addr (":9090" etc).
func (r *Registry) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.server = &http.Server{Addr: addr, Handler: mux}
	r.logger.Info("starting metrics server", zap.String("addr", addr))

	go func() {
		if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts down the metrics HTTP server.
func (r *Registry) Stop() error {
	if r.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.server.Shutdown(ctx)
}
