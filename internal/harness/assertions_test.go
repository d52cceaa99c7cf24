package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// fakeState answers queries from fixed maps.
type fakeState struct {
	values map[string]ir.Value
	nodes  map[string]bool
}

func (f fakeState) Get(path ir.Path) (ir.Value, bool) {
	v, ok := f.values[path.String()]
	return v, ok
}

func (f fakeState) Node(path ir.Path) (engine.NodeInfo, bool) {
	if f.nodes[path.String()] {
		return engine.NodeInfo{}, true
	}
	return engine.NodeInfo{}, false
}

func testResult() *Result {
	r := NewResult()
	r.AddStep(TraceEvent{Step: 1, Command: "new", Source: "host_api", Code: "SUCCESS"})
	r.Notifications = []string{"new Osc (host_api)", "set Osc.gain = 7 (host_api)"}
	r.Host = []string{"add Osc", "send Osc.gain=5", "send Osc.gain=7", "remove Osc"}
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	state := fakeState{
		values: map[string]ir.Value{
			"Osc.gain":      ir.Int(7),
			"Osc.frequency": ir.Float(880),
			"Osc.waveform":  ir.String("saw"),
			"Osc.reset":     nil,
		},
		nodes: map[string]bool{"Osc": true},
	}

	tests := []struct {
		name      string
		assertion Assertion
		failMsg   string
	}{
		{"int value", Assertion{Type: AssertValue, Path: "Osc.gain", Value: 7}, ""},
		{"float written as int", Assertion{Type: AssertValue, Path: "Osc.frequency", Value: 880}, ""},
		{"string value", Assertion{Type: AssertValue, Path: "Osc.waveform", Value: "saw"}, ""},
		{"bang value", Assertion{Type: AssertValue, Path: "Osc.reset"}, ""},
		{"wrong value", Assertion{Type: AssertValue, Path: "Osc.gain", Value: 8}, "Actual: Osc.gain = 7"},
		{"string is not a number", Assertion{Type: AssertValue, Path: "Osc.gain", Value: "7"}, `Expected: Osc.gain = "7"`},
		{"missing endpoint", Assertion{Type: AssertValue, Path: "Osc.pitch", Value: 1}, "no such endpoint"},
		{"node exists", Assertion{Type: AssertNodeExists, Path: "Osc"}, ""},
		{"node missing", Assertion{Type: AssertNodeExists, Path: "Lfo"}, "Expected: node at Lfo"},
		{"node absent", Assertion{Type: AssertNodeAbsent, Path: "Lfo"}, ""},
		{"node present", Assertion{Type: AssertNodeAbsent, Path: "Osc"}, "Actual: node exists"},
		{
			"host sends",
			Assertion{Type: AssertHostSends, Sends: []string{"Osc.gain=5", "Osc.gain=7"}},
			"",
		},
		{
			"host sends differ",
			Assertion{Type: AssertHostSends, Sends: []string{"Osc.gain=7"}},
			"Assertion failed: host_sends",
		},
		{
			"notifications",
			Assertion{Type: AssertNotifications, Lines: []string{"new Osc (host_api)", "set Osc.gain = 7 (host_api)"}},
			"",
		},
		{
			"no notifications expected",
			Assertion{Type: AssertNotifications},
			"Assertion failed: notifications",
		},
		{"count", Assertion{Type: AssertNotificationCount, Count: 2}, ""},
		{"wrong count", Assertion{Type: AssertNotificationCount, Count: 3}, "Expected: 3 notifications"},
		{"unknown type", Assertion{Type: "vibes"}, `unknown assertion type "vibes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(state, testResult(), []Assertion{tt.assertion})
			if tt.failMsg == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.failMsg)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertValue,
		Expected: "Osc.gain = 6",
		Actual:   "Osc.gain = 5",
		Trace:    testResult().Trace,
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: value")
	assert.Contains(t, msg, "Steps:\n  1 new <root> (host_api) -> SUCCESS\n")
}

func TestSendsOf(t *testing.T) {
	assert.Equal(t, []string{"Osc.gain=5", "Osc.gain=7"}, sendsOf(testResult().Host))
	assert.Equal(t, []string{}, sendsOf(nil))
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(nil, nil))
	assert.False(t, valuesEqual(nil, ir.Int(0)))
	assert.True(t, valuesEqual(ir.Int(3), ir.Float(3)))
	assert.False(t, valuesEqual(ir.Float(3.5), ir.Int(3)))
	assert.True(t, valuesEqual(ir.String("a"), ir.String("a")))
	assert.False(t, valuesEqual(ir.String("3"), ir.Int(3)))
}
