package testutil

import (
	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/ir"
)

// Fixed module ids for the fixture interfaces.
var (
	OscillatorID = uuid.MustParse("0b5c2f64-3c1e-4e8e-9a41-6f1d2a000001")
	ContainerID  = uuid.MustParse("0b5c2f64-3c1e-4e8e-9a41-6f1d2a000002")
	ScriptID     = uuid.MustParse("0b5c2f64-3c1e-4e8e-9a41-6f1d2a000003")
	ConnectionID = uuid.MustParse("0b5c2f64-3c1e-4e8e-9a41-6f1d2a000004")
	PlayerID     = uuid.MustParse("0b5c2f64-3c1e-4e8e-9a41-6f1d2a000005")
	ControlID    = uuid.MustParse("0b5c2f64-3c1e-4e8e-9a41-6f1d2a000006")
)

// State builds a stateful control endpoint definition.
func State(name string, s ir.StateInfo) ir.EndpointDefinition {
	return ir.EndpointDefinition{
		Name:    name,
		Kind:    ir.EndpointControl,
		Control: &ir.ControlInfo{Kind: ir.ControlState, State: &s},
	}
}

// Bang builds a stateless trigger endpoint definition.
func Bang(name string) ir.EndpointDefinition {
	return ir.EndpointDefinition{
		Name:    name,
		Kind:    ir.EndpointControl,
		Control: &ir.ControlInfo{Kind: ir.ControlBang},
	}
}

// Stream builds an audio stream endpoint definition.
func Stream(name string, dir ir.StreamDirection) ir.EndpointDefinition {
	return ir.EndpointDefinition{
		Name:   name,
		Kind:   ir.EndpointStream,
		Stream: &ir.StreamInfo{Type: "audio", Direction: dir},
	}
}

func rangeOf(lo, hi ir.Value) ir.Constraint {
	return ir.Constraint{Range: &ir.Range{Min: lo, Max: hi}}
}

// OscillatorInterface has an implementation and one endpoint of each kind:
//
//	frequency float [20, 20000] = 440    sent to host
//	waveform  string {sine,square,saw}   sent to host
//	gain      integer [0, 10] = 5        sent to host
//	label     string (no constraint)     not sent to host
//	reset     bang
//	out1      stream output
func OscillatorInterface() *ir.InterfaceDefinition {
	return &ir.InterfaceDefinition{
		ModuleID: OscillatorID,
		OriginID: OscillatorID,
		Info:     ir.InterfaceInfo{Name: "Oscillator", Label: "Oscillator", Tags: []string{"generator"}},
		Source:   ir.ModuleShipped,
		Endpoints: []ir.EndpointDefinition{
			State("frequency", ir.StateInfo{
				Type: ir.TypeFloat, Default: ir.Float(440), Constraint: rangeOf(ir.Float(20), ir.Float(20000)),
				Scale: &ir.ValueScale{Type: ir.ScaleExponential, ExponentRoot: 2}, IsSavedToFile: true, CanBeSource: true, CanBeTarget: true, IsSentToHost: true,
			}),
			State("waveform", ir.StateInfo{
				Type: ir.TypeString, Default: ir.String("sine"),
				Constraint:    ir.Constraint{Allowed: []ir.Value{ir.String("sine"), ir.String("square"), ir.String("saw")}},
				IsSavedToFile: true, CanBeTarget: true, IsSentToHost: true,
			}),
			State("gain", ir.StateInfo{
				Type: ir.TypeInteger, Default: ir.Int(5), Constraint: rangeOf(ir.Int(0), ir.Int(10)),
				IsSavedToFile: true, CanBeSource: true, CanBeTarget: true, IsSentToHost: true,
			}),
			State("label", ir.StateInfo{Type: ir.TypeString, Default: ir.String(""), IsSavedToFile: true}),
			Bang("reset"),
			Stream("out1", ir.StreamOutput),
		},
		Implementation: &ir.ImplementationInfo{Checksum: "oscillator-v1"},
	}
}

// ContainerInterface groups nodes; "active" gates its descendants.
func ContainerInterface() *ir.InterfaceDefinition {
	return &ir.InterfaceDefinition{
		ModuleID: ContainerID,
		OriginID: ContainerID,
		Info:     ir.InterfaceInfo{Name: "Container", SystemClass: ir.ClassContainer, ImplementedInCore: true},
		Source:   ir.ModuleShipped,
		Endpoints: []ir.EndpointDefinition{
			State("active", ir.StateInfo{Type: ir.TypeInteger, Default: ir.Int(1), Constraint: rangeOf(ir.Int(0), ir.Int(1)), IsSavedToFile: true, CanBeTarget: true}),
		},
	}
}

// ScriptInterface runs its text when triggered.
func ScriptInterface() *ir.InterfaceDefinition {
	return &ir.InterfaceDefinition{
		ModuleID: ScriptID,
		OriginID: ScriptID,
		Info:     ir.InterfaceInfo{Name: "Script", SystemClass: ir.ClassScript, ImplementedInCore: true},
		Source:   ir.ModuleShipped,
		Endpoints: []ir.EndpointDefinition{
			Bang("trigger"),
			State("text", ir.StateInfo{Type: ir.TypeString, Default: ir.String(""), IsSavedToFile: true}),
			State("info", ir.StateInfo{Type: ir.TypeString, Default: ir.String("")}),
		},
	}
}

// ConnectionInterface forwards values from sourcePath to targetPath.
func ConnectionInterface() *ir.InterfaceDefinition {
	return &ir.InterfaceDefinition{
		ModuleID: ConnectionID,
		OriginID: ConnectionID,
		Info:     ir.InterfaceInfo{Name: "Connection", SystemClass: ir.ClassConnection, ImplementedInCore: true},
		Source:   ir.ModuleShipped,
		Endpoints: []ir.EndpointDefinition{
			State("sourcePath", ir.StateInfo{Type: ir.TypeString, Default: ir.String(""), IsSavedToFile: true}),
			State("targetPath", ir.StateInfo{Type: ir.TypeString, Default: ir.String(""), IsSavedToFile: true}),
		},
	}
}

// PlayerInterface has an input-file endpoint.
func PlayerInterface() *ir.InterfaceDefinition {
	return &ir.InterfaceDefinition{
		ModuleID: PlayerID,
		OriginID: PlayerID,
		Info:     ir.InterfaceInfo{Name: "Player"},
		Source:   ir.ModuleThirdParty,
		Endpoints: []ir.EndpointDefinition{
			State("file", ir.StateInfo{Type: ir.TypeString, Default: ir.String(""), IsInputFile: true, IsSavedToFile: true, IsSentToHost: true}),
			Bang("play"),
			Stream("out1", ir.StreamOutput),
		},
		Implementation: &ir.ImplementationInfo{Checksum: "player-v1"},
	}
}

// ControlInterface has no host implementation, so nothing it holds is
// ever forwarded to the host.
func ControlInterface() *ir.InterfaceDefinition {
	return &ir.InterfaceDefinition{
		ModuleID: ControlID,
		OriginID: ControlID,
		Info:     ir.InterfaceInfo{Name: "Control"},
		Source:   ir.ModuleInDevelopment,
		Endpoints: []ir.EndpointDefinition{
			State("value", ir.StateInfo{Type: ir.TypeFloat, Default: ir.Float(0), Constraint: rangeOf(ir.Float(0), ir.Float(1)), IsSavedToFile: true, CanBeSource: true, CanBeTarget: true, IsSentToHost: true}),
			State("count", ir.StateInfo{Type: ir.TypeInteger, Default: ir.Int(0), IsSavedToFile: true, CanBeSource: true, CanBeTarget: true}),
			Bang("bang"),
		},
	}
}

// Definitions returns every fixture interface.
func Definitions() []*ir.InterfaceDefinition {
	return []*ir.InterfaceDefinition{
		OscillatorInterface(),
		ContainerInterface(),
		ScriptInterface(),
		ConnectionInterface(),
		PlayerInterface(),
		ControlInterface(),
	}
}
