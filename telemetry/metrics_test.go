package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsInitialized(t *testing.T) {
	Init()
	Init()

	if LinesRead == nil || BytesRead == nil || BytesWritten == nil {
		t.Error("byte/line counters not initialized")
	}
	if MessagesParsed == nil || ReadErrors == nil {
		t.Error("labelled counters not initialized")
	}
	if HandshakeDuration == nil || ConnectionUp == nil || EventSubscribers == nil {
		t.Error("histogram/gauges not initialized")
	}
}

func TestRecordLine(t *testing.T) {
	Init()

	lines := testutil.ToFloat64(LinesRead)
	bytesBefore := testutil.ToFloat64(BytesRead)

	RecordLine(17)
	RecordLine(3)

	if got := testutil.ToFloat64(LinesRead) - lines; got != 2 {
		t.Errorf("lines delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(BytesRead) - bytesBefore; got != 20 {
		t.Errorf("bytes delta = %v, want 20", got)
	}
}

func TestRecordParsedByKind(t *testing.T) {
	Init()

	before := testutil.ToFloat64(MessagesParsed.WithLabelValues("PRIVMSG"))
	RecordParsed("PRIVMSG")
	RecordParsed("PING")

	if got := testutil.ToFloat64(MessagesParsed.WithLabelValues("PRIVMSG")) - before; got != 1 {
		t.Errorf("PRIVMSG delta = %v, want 1", got)
	}
}

func TestRecordReadError(t *testing.T) {
	Init()

	before := testutil.ToFloat64(ReadErrors.WithLabelValues("decoding"))
	RecordReadError("decoding")
	if got := testutil.ToFloat64(ReadErrors.WithLabelValues("decoding")) - before; got != 1 {
		t.Errorf("decoding delta = %v, want 1", got)
	}
}

func TestConnectionGauge(t *testing.T) {
	Init()

	SetConnectionUp(true)
	if got := testutil.ToFloat64(ConnectionUp); got != 1 {
		t.Errorf("ConnectionUp = %v, want 1", got)
	}
	SetConnectionUp(false)
	if got := testutil.ToFloat64(ConnectionUp); got != 0 {
		t.Errorf("ConnectionUp = %v, want 0", got)
	}
}

func TestRecordWriteIgnoresZero(t *testing.T) {
	Init()

	before := testutil.ToFloat64(BytesWritten)
	RecordWrite(0)
	RecordWrite(42)
	if got := testutil.ToFloat64(BytesWritten) - before; got != 42 {
		t.Errorf("written delta = %v, want 42", got)
	}
}

func TestHandshakeDurationObserved(t *testing.T) {
	Init()
	h, ok := HandshakeDuration.(prometheus.Histogram)
	if !ok {
		t.Fatalf("HandshakeDuration is %T, want a histogram", HandshakeDuration)
	}
	before := sampleCount(t, h)
	h.Observe((250 * time.Millisecond).Seconds())
	if got := sampleCount(t, h); got != before+1 {
		t.Errorf("sample count = %d, want %d", got, before+1)
	}
}

func sampleCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	m := &dto.Metric{}
	if err := h.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if GetCorrelation(ctx) != "" {
		t.Error("empty context should have no correlation id")
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation() = %q", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}

func TestStartSpanWithoutProvider(t *testing.T) {
	ctx := WithCorrelation(context.Background(), "corr-1")
	ctx, span := StartSpan(ctx, "test.span")
	defer span.End()

	if ctx == nil {
		t.Fatal("StartSpan returned nil context")
	}
	RecordError(span, nil)
	SetSpanSuccess(span)
	if IsTracingEnabled() {
		t.Error("tracing should be disabled without an exporter endpoint")
	}
}

func TestConfigureLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureLogging(&buf, "debug", "json")
	logger.Debug("hello", "component", "test")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json output not parseable: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "hello" || rec["component"] != "test" {
		t.Errorf("record = %v", rec)
	}
}

func TestConfigureLoggingUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureLogging(&buf, "chatty", "text")
	if !strings.Contains(buf.String(), "unknown LOG_LEVEL") {
		t.Errorf("expected a warning for unknown level, got %q", buf.String())
	}
	buf.Reset()
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug should be filtered at info level, got %q", buf.String())
	}
}
