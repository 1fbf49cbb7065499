// Package telemetry provides Prometheus metrics, OpenTelemetry tracing setup,
// and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	FetchCycles     prometheus.Counter
	FetchErrors     prometheus.Counter
	ItemsSkipped    prometheus.Counter
	UnknownItems    prometheus.Counter
	MessagesParsed  *prometheus.CounterVec
	ForwardFailures *prometheus.CounterVec

	// Histograms (seconds)
	FetchDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		FetchCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "bridge_fetch_cycles_total", Help: "Number of live chat poll cycles issued"})
		FetchErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "bridge_fetch_errors_total", Help: "Number of live chat poll cycles that failed (session-fatal)"})
		ItemsSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "bridge_items_skipped_total", Help: "Number of chat items dropped for missing required fields or undecodable bodies"})
		UnknownItems = promauto.NewCounter(prometheus.CounterOpts{Name: "bridge_unknown_items_total", Help: "Number of chat items of an unrecognized kind"})
		MessagesParsed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bridge_messages_parsed_total", Help: "Number of normalized chat messages produced"}, []string{"kind"})
		ForwardFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bridge_forward_failures_total", Help: "Number of sink forwarding failures (swallowed)"}, []string{"sink"})
		FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bridge_fetch_duration_seconds", Help: "Live chat poll request duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// The Count* helpers are nil-safe so library code can record unconditionally;
// before Init they are no-ops.

func CountFetchCycle() {
	if FetchCycles != nil {
		FetchCycles.Inc()
	}
}

func CountFetchError() {
	if FetchErrors != nil {
		FetchErrors.Inc()
	}
}

func CountSkippedItem() {
	if ItemsSkipped != nil {
		ItemsSkipped.Inc()
	}
}

func CountUnknownItem() {
	if UnknownItems != nil {
		UnknownItems.Inc()
	}
}

func CountMessage(kind string) {
	if MessagesParsed != nil {
		MessagesParsed.WithLabelValues(kind).Inc()
	}
}

func CountForwardFailure(sink string) {
	if ForwardFailures != nil {
		ForwardFailures.WithLabelValues(sink).Inc()
	}
}

// ObserveFetchDuration records one poll request duration.
func ObserveFetchDuration(d time.Duration) {
	if FetchDuration != nil {
		FetchDuration.Observe(d.Seconds())
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}
