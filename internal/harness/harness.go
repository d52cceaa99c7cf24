package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/logging"
	"github.com/roach88/patchbay/internal/module"
	"github.com/roach88/patchbay/internal/testutil"
)

// Harness holds the Server and recorders of one scenario run.
type Harness struct {
	server   *engine.Server
	registry *module.Registry
	sink     *engine.RecordingSink
	host     *engine.RecordingHost
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh Server with its own registry, so
// scenarios are isolated from each other. An error is returned only when
// the scenario cannot run at all (its modules do not load); step and
// assertion failures are reported in the Result.
//
// Execution flow:
// 1. Load the scenario's modules (or the built-in fixtures)
// 2. Execute the steps, checking each result code
// 3. Capture notifications, host calls and the final state
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}
	defer h.registry.Close()

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		h.executeStep(ctx, i+1, step, result)
	}

	for _, n := range h.sink.Events() {
		result.Notifications = append(result.Notifications, n.String())
	}
	for _, c := range h.host.Calls() {
		result.Host = append(result.Host, formatHostCall(c))
	}

	var state bytes.Buffer
	if err := h.server.PrintState(&state); err != nil {
		return nil, fmt.Errorf("print state: %w", err)
	}
	result.State = state.String()

	if err := h.server.CheckInvariants(); err != nil {
		result.AddError(fmt.Sprintf("invariant violated: %v", err))
	}

	for _, msg := range EvaluateAssertions(h.server, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	var registry *module.Registry
	if scenario.Modules == nil {
		registry = module.NewRegistry(testutil.Definitions()...)
	} else {
		registry = module.NewRegistry()
		if errs := registry.LoadDirs(scenario.Modules.System, scenario.Modules.ThirdParty); len(errs) > 0 {
			registry.Close()
			return nil, fmt.Errorf("failed to load modules: %w", errors.Join(errs...))
		}
	}

	h := &Harness{
		registry: registry,
		sink:     &engine.RecordingSink{},
		host:     &engine.RecordingHost{},
		logger:   logging.NewNop(),
	}
	clock := testutil.NewDeterministicClock()
	h.server = engine.NewServer(registry,
		engine.WithSink(h.sink),
		engine.WithHost(h.host),
		engine.WithSnapshotStore(engine.NewMemorySnapshotStore()),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator("snap")),
		engine.WithNow(clock.Now),
		engine.WithLogger(h.logger),
	)
	return h, nil
}

// executeStep runs one step and records it. A step whose code differs
// from its expectation fails the result but does not stop the run.
func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) {
	source := ir.SourceHostAPI
	if step.Source != "" {
		// Validated when the scenario was loaded.
		source, _ = ir.ParseCommandSource(step.Source)
	}
	ev := TraceEvent{Step: n, Command: step.Command, Source: source.String()}

	cmd, err := h.buildCommand(step)
	if err == nil {
		ev.Target = cmd.Target().String()
		_, err = h.server.ProcessCommand(ctx, cmd, source)
	} else {
		ev.Target = step.Path
	}
	ev.Code = string(engine.CodeOf(err))
	result.AddStep(ev)

	want := step.Expect
	if want == "" {
		want = string(engine.CodeSuccess)
	}
	if ev.Code != want {
		msg := fmt.Sprintf("step %d (%s %s): expected %s, got %s", n, step.Command, ev.Target, want, ev.Code)
		if err != nil {
			msg += ": " + err.Error()
		}
		result.AddError(msg)
	}
}

// buildCommand converts a step to a command. Malformed paths and unknown
// modules are reported with the code the server would give them.
func (h *Harness) buildCommand(step Step) (engine.Command, error) {
	path, err := parsePath(step.Path)
	if err != nil {
		return nil, err
	}

	switch step.Command {
	case "set":
		v, err := toValue(step.Value)
		if err != nil {
			return nil, engine.NewInputError("%v", err)
		}
		return engine.Set{Path: path, Value: v}, nil
	case "new":
		id, err := h.moduleID(step.Module)
		if err != nil {
			return nil, err
		}
		parent, err := parsePath(step.Parent)
		if err != nil {
			return nil, err
		}
		return engine.New{ModuleID: id, Name: step.Name, Parent: parent}, nil
	case "delete":
		return engine.Delete{Path: path}, nil
	case "move":
		parent, err := parsePath(step.NewParent)
		if err != nil {
			return nil, err
		}
		return engine.Move{Path: path, NewParent: parent}, nil
	case "rename":
		return engine.Rename{Path: path, NewName: step.NewName}, nil
	case "save":
		return engine.Save{Path: path, Name: step.Name}, nil
	case "load":
		parent, err := parsePath(step.Parent)
		if err != nil {
			return nil, err
		}
		return engine.Load{Name: step.Name, Parent: parent}, nil
	default:
		return nil, engine.NewInputError("unknown command %q", step.Command)
	}
}

// moduleID resolves an interface name or a module id string.
func (h *Harness) moduleID(ref string) (uuid.UUID, error) {
	if def, ok := h.registry.LookupName(ref); ok {
		return def.ModuleID, nil
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, engine.NewInputError("unknown module %q", ref)
	}
	return id, nil
}

func parsePath(s string) (ir.Path, error) {
	p, err := ir.ParsePath(s)
	if err != nil {
		return ir.Path{}, &engine.CommandError{Code: engine.CodePathError, Message: err.Error()}
	}
	return p, nil
}

func formatHostCall(c engine.HostCall) string {
	switch c.Op {
	case "send":
		return fmt.Sprintf("send %s=%s", c.Path, describe(c.Value))
	default:
		return fmt.Sprintf("%s %s", c.Op, c.Path)
	}
}
