// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	LinesRead         prometheus.Counter
	BytesRead         prometheus.Counter
	BytesWritten      prometheus.Counter
	ConnectionsOpened prometheus.Counter
	Reconnects        prometheus.Counter
	MessagesParsed    *prometheus.CounterVec // label: kind
	ReadErrors        *prometheus.CounterVec // label: class

	// Histograms (seconds)
	HandshakeDuration prometheus.Observer

	// Gauges
	ConnectionUp     prometheus.Gauge // 1=opened,0=closed
	EventSubscribers prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		LinesRead = promauto.NewCounter(prometheus.CounterOpts{Name: "trirk_lines_read_total", Help: "Complete protocol lines read from the chat server"})
		BytesRead = promauto.NewCounter(prometheus.CounterOpts{Name: "trirk_bytes_read_total", Help: "Bytes read from the chat server, terminators excluded"})
		BytesWritten = promauto.NewCounter(prometheus.CounterOpts{Name: "trirk_bytes_written_total", Help: "Bytes written to the chat server"})
		ConnectionsOpened = promauto.NewCounter(prometheus.CounterOpts{Name: "trirk_connections_opened_total", Help: "Successful connection handshakes"})
		Reconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "trirk_reconnects_total", Help: "Reconnect attempts after a dropped connection"})
		MessagesParsed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "trirk_messages_parsed_total", Help: "Parsed messages by command verb"}, []string{"kind"})
		ReadErrors = promauto.NewCounterVec(prometheus.CounterOpts{Name: "trirk_read_errors_total", Help: "Read failures by error class"}, []string{"class"})
		HandshakeDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "trirk_handshake_duration_seconds", Help: "Dial plus handshake write duration seconds", Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}})
		ConnectionUp = promauto.NewGauge(prometheus.GaugeOpts{Name: "trirk_connection_up", Help: "Chat connection opened=1 closed=0"})
		EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{Name: "trirk_event_subscribers", Help: "Current number of event stream subscribers"})
	})
}

// SetConnectionUp sets the connection gauge to 1 if up else 0.
func SetConnectionUp(up bool) {
	if ConnectionUp == nil {
		return
	}
	if up {
		ConnectionUp.Set(1)
	} else {
		ConnectionUp.Set(0)
	}
}

// RecordLine counts one inbound line of n bytes.
func RecordLine(n int) {
	if LinesRead != nil {
		LinesRead.Inc()
		BytesRead.Add(float64(n))
	}
}

// RecordWrite counts n outbound bytes.
func RecordWrite(n int) {
	if BytesWritten != nil && n > 0 {
		BytesWritten.Add(float64(n))
	}
}

// RecordParsed counts one parsed message by its verb.
func RecordParsed(kind string) {
	if MessagesParsed != nil {
		MessagesParsed.WithLabelValues(kind).Inc()
	}
}

// RecordReadError counts one read failure by class (framing, transport, decoding, unknown).
func RecordReadError(class string) {
	if ReadErrors != nil {
		ReadErrors.WithLabelValues(class).Inc()
	}
}

// IncConnectionsOpened counts one completed handshake.
func IncConnectionsOpened() {
	if ConnectionsOpened != nil {
		ConnectionsOpened.Inc()
	}
}

// IncReconnects counts one reconnect attempt.
func IncReconnects() {
	if Reconnects != nil {
		Reconnects.Inc()
	}
}

// AddEventSubscribers moves the subscriber gauge by delta.
func AddEventSubscribers(delta int) {
	if EventSubscribers != nil {
		EventSubscribers.Add(float64(delta))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
