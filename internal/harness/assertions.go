package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the step trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nSteps:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", ev)
	}
	return buf.String()
}

// Queryable is the read side of the Server that assertions need.
type Queryable interface {
	Get(path ir.Path) (ir.Value, bool)
	Node(path ir.Path) (engine.NodeInfo, bool)
}

// EvaluateAssertions checks every assertion and returns the messages of
// those that failed.
func EvaluateAssertions(q Queryable, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertValue:
			err = assertValue(q, result, a)
		case AssertNodeExists, AssertNodeAbsent:
			err = assertNode(q, result, a)
		case AssertHostSends:
			err = assertLines(a.Type, sendsOf(result.Host), a.Sends, result)
		case AssertNotifications:
			err = assertLines(a.Type, result.Notifications, a.Lines, result)
		case AssertNotificationCount:
			err = assertNotificationCount(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertValue(q Queryable, result *Result, a Assertion) error {
	want, err := toValue(a.Value)
	if err != nil {
		return err
	}
	path, err := ir.ParsePath(a.Path)
	if err != nil {
		return err
	}
	got, ok := q.Get(path)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %s", a.Path, describe(want)),
			Actual:   "no such endpoint",
			Trace:    result.Trace,
		}
	}
	if !valuesEqual(want, got) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %s", a.Path, describe(want)),
			Actual:   fmt.Sprintf("%s = %s", a.Path, describe(got)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// valuesEqual compares numbers by magnitude, so a scenario may write 880
// for a Float endpoint. Strings and bangs must match exactly.
func valuesEqual(want, got ir.Value) bool {
	if want == nil || got == nil {
		return want == nil && got == nil
	}
	if want.Type().IsNumeric() && got.Type().IsNumeric() {
		return toFloat(want) == toFloat(got)
	}
	return want == got
}

func toFloat(v ir.Value) float64 {
	switch n := v.(type) {
	case ir.Int:
		return float64(n)
	case ir.Float:
		return float64(n)
	}
	return 0
}

func assertNode(q Queryable, result *Result, a Assertion) error {
	path, err := ir.ParsePath(a.Path)
	if err != nil {
		return err
	}
	_, exists := q.Node(path)
	want := a.Type == AssertNodeExists
	if exists == want {
		return nil
	}
	expected, actual := "node at "+a.Path, "none"
	if !want {
		expected, actual = "no node at "+a.Path, "node exists"
	}
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: result.Trace}
}

// sendsOf keeps the value sends of rendered host calls, without the
// "send " prefix.
func sendsOf(host []string) []string {
	out := []string{}
	for _, h := range host {
		if s, ok := strings.CutPrefix(h, "send "); ok {
			out = append(out, s)
		}
	}
	return out
}

func assertLines(typ string, got, want []string, result *Result) error {
	if want == nil {
		want = []string{}
	}
	if strings.Join(got, "\n") == strings.Join(want, "\n") && len(got) == len(want) {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%q", want),
		Actual:   fmt.Sprintf("%q", got),
		Trace:    result.Trace,
	}
}

func assertNotificationCount(result *Result, a Assertion) error {
	if len(result.Notifications) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d notifications", a.Count),
		Actual:   fmt.Sprintf("%d notifications", len(result.Notifications)),
		Trace:    result.Trace,
	}
}
