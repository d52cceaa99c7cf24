package engine

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/metrics"
)

func spanAttr(s sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range s.Attributes() {
		if kv.Key == attribute.Key(key) {
			return kv.Value.AsString()
		}
	}
	return ""
}

func TestTracing_CommandSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	ts := newTestServer(t, WithTracer(tp.Tracer("test")))

	ts.create("Control", "A", "")
	ts.create("Control", "B", "")
	ts.connect("C", "", "A.count", "B.count")
	before := len(sr.Ended())

	ts.setValue("A.count", ir.Int(2))
	ts.try(Set{Path: p("A.value"), Value: ir.Float(7)}, ir.SourceHostAPI)

	spans := sr.Ended()[before:]
	require.Len(t, spans, 3)

	// The nested connection set ends first.
	assert.Equal(t, "patchbay.command", spans[0].Name())
	assert.Equal(t, "connection", spanAttr(spans[0], "source"))
	assert.Equal(t, "B.count", spanAttr(spans[0], "path"))
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())

	assert.Equal(t, "set", spanAttr(spans[1], "command"))
	assert.Equal(t, "SUCCESS", spanAttr(spans[1], "code"))
	assert.Equal(t, codes.Unset, spans[1].Status().Code)

	assert.Equal(t, "CONSTRAINT_ERROR", spanAttr(spans[2], "code"))
	assert.Equal(t, codes.Error, spans[2].Status().Code)
}

func TestMetrics_Commands(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts := newTestServer(t, WithMetrics(metrics.New(reg)))

	ts.create("Oscillator", "Osc", "")
	ts.create("Script", "S", "")
	ts.setValue("S.text", ir.String(`patchbay.set("S.trigger")`))
	ts.setValue("S.trigger", nil)
	ts.try(Set{Path: p("Osc.gain"), Value: ir.Int(11)}, ir.SourceHostAPI)

	expected := `
# HELP patchbay_nodes Live nodes in the tree.
# TYPE patchbay_nodes gauge
patchbay_nodes 2
# HELP patchbay_reentrance_rejections_total Set commands rejected because the endpoint was already being set.
# TYPE patchbay_reentrance_rejections_total counter
patchbay_reentrance_rejections_total 1
# HELP patchbay_host_sends_total Messages forwarded to the execution host, by kind.
# TYPE patchbay_host_sends_total counter
patchbay_host_sends_total{kind="add"} 1
patchbay_host_sends_total{kind="value"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"patchbay_nodes", "patchbay_reentrance_rejections_total", "patchbay_host_sends_total"))

	count, err := testutil.GatherAndCount(reg, "patchbay_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 5, count, "one series per command/source/code")
}

func TestLogging_RejectedCommands(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ts := newTestServer(t, WithLogger(logger))
	ts.create("Oscillator", "Osc", "")
	buf.Reset()

	ts.try(Set{Path: p("Osc.gain"), Value: ir.Int(11)}, ir.SourceHostAPI)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="command rejected"`)
	assert.Contains(t, out, "code=CONSTRAINT_ERROR")
	assert.Contains(t, out, "path=Osc.gain")
}
