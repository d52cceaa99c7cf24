package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCommand("set", "host_api", "SUCCESS", time.Millisecond)
		m.HostSend("value")
		m.SetNodes(3)
		m.ReentranceRejected()
	})
}

func TestObserveCommand(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCommand("set", "host_api", "SUCCESS", time.Millisecond)
	m.ObserveCommand("set", "host_api", "SUCCESS", time.Millisecond)
	m.ObserveCommand("set", "script", "REENTRANCE_ERROR", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("set", "host_api", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("set", "script", "REENTRANCE_ERROR")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestGaugesAndCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetNodes(4)
	m.HostSend("value")
	m.HostSend("add")
	m.ReentranceRejected()

	expected := `
# HELP patchbay_nodes Live nodes in the tree.
# TYPE patchbay_nodes gauge
patchbay_nodes 4
# HELP patchbay_reentrance_rejections_total Set commands rejected because the endpoint was already being set.
# TYPE patchbay_reentrance_rejections_total counter
patchbay_reentrance_rejections_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"patchbay_nodes", "patchbay_reentrance_rejections_total"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hostSends.WithLabelValues("add")))
}

func TestNewWithoutRegistry(t *testing.T) {
	m := New(nil)
	m.SetNodes(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nodes))
}
