package harness

import (
	"fmt"
	"strings"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Command string `json:"command"`
	Target  string `json:"target"`
	Source  string `json:"source"`
	Code    string `json:"code"`
}

func (e TraceEvent) String() string {
	target := e.Target
	if target == "" {
		target = "<root>"
	}
	return fmt.Sprintf("%d %s %s (%s) -> %s", e.Step, e.Command, target, e.Source, e.Code)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step returned its expected code and every
	// assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Notifications and Host are the rendered sink and host calls, in
	// order.
	Notifications []string `json:"notifications"`
	Host          []string `json:"host"`

	// State is the final PrintState dump.
	State string `json:"state"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Trace:         []TraceEvent{},
		Notifications: []string{},
		Host:          []string{},
		Errors:        []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step to the trace.
func (r *Result) AddStep(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// Dump renders the result as the text stored in golden files.
func (r *Result) Dump(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	b.WriteString("steps:\n")
	for _, ev := range r.Trace {
		fmt.Fprintf(&b, "  %s\n", ev)
	}
	b.WriteString("notifications:\n")
	for _, n := range r.Notifications {
		fmt.Fprintf(&b, "  %s\n", n)
	}
	b.WriteString("host:\n")
	for _, h := range r.Host {
		fmt.Fprintf(&b, "  %s\n", h)
	}
	b.WriteString("state:\n")
	for _, line := range strings.Split(strings.TrimRight(r.State, "\n"), "\n") {
		if line == "" {
			continue
		}
		fmt.Fprintf(&b, "  %s\n", line)
	}
	return b.String()
}
