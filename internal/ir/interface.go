package ir

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ModuleSource classifies where an interface definition came from.
type ModuleSource string

const (
	ModuleShipped       ModuleSource = "shipped"
	ModuleThirdParty    ModuleSource = "third_party"
	ModuleEmbedded      ModuleSource = "embedded"
	ModuleInDevelopment ModuleSource = "in_development"
)

// ValidModuleSources defines allowed module sources.
var ValidModuleSources = map[ModuleSource]bool{
	ModuleShipped:       true,
	ModuleThirdParty:    true,
	ModuleEmbedded:      true,
	ModuleInDevelopment: true,
}

// System classes with built-in logic. Any other class (including "")
// gets default logic.
const (
	ClassContainer  = "Container"
	ClassScript     = "Script"
	ClassConnection = "Connection"
)

// InterfaceDefinition describes a module: its identity and its endpoints.
// It is immutable and shared by every node instantiated from it.
type InterfaceDefinition struct {
	ModuleID       uuid.UUID            `json:"module_id"`
	OriginID       uuid.UUID            `json:"origin_id"`
	Info           InterfaceInfo        `json:"info"`
	Source         ModuleSource         `json:"source"`
	Endpoints      []EndpointDefinition `json:"endpoints"`
	Implementation *ImplementationInfo  `json:"implementation,omitempty"`
}

// InterfaceInfo is descriptive metadata.
type InterfaceInfo struct {
	Name              string   `json:"name"`
	Label             string   `json:"label,omitempty"`
	Description       string   `json:"description,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Author            string   `json:"author,omitempty"`
	SystemClass       string   `json:"system_class,omitempty"`
	ImplementedInCore bool     `json:"implemented_in_core"`
}

// ImplementationInfo is present when the interface has a host-side
// rendering implementation.
type ImplementationInfo struct {
	Checksum string `json:"checksum"`
}

// HasImplementation reports whether the host executes this interface.
func (d *InterfaceDefinition) HasImplementation() bool {
	return d.Implementation != nil
}

// Endpoint returns the named endpoint definition.
func (d *InterfaceDefinition) Endpoint(name string) (*EndpointDefinition, bool) {
	for i := range d.Endpoints {
		if d.Endpoints[i].Name == name {
			return &d.Endpoints[i], true
		}
	}
	return nil, false
}

// EndpointKind discriminates control and stream endpoints.
type EndpointKind string

const (
	EndpointControl EndpointKind = "control"
	EndpointStream  EndpointKind = "stream"
)

// ControlKind discriminates stateful controls and stateless bangs.
type ControlKind string

const (
	ControlState ControlKind = "state"
	ControlBang  ControlKind = "bang"
)

// EndpointDefinition describes one endpoint of an interface.
// Exactly one of Control and Stream is set, matching Kind.
type EndpointDefinition struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Kind        EndpointKind `json:"kind"`
	Control     *ControlInfo `json:"control,omitempty"`
	Stream      *StreamInfo  `json:"stream,omitempty"`
}

// ControlInfo describes a control endpoint. State is set iff Kind is ControlState.
type ControlInfo struct {
	Kind  ControlKind `json:"kind"`
	State *StateInfo  `json:"state,omitempty"`
}

// StreamDirection is the direction of a stream endpoint.
type StreamDirection string

const (
	StreamInput  StreamDirection = "input"
	StreamOutput StreamDirection = "output"
)

// StreamInfo describes a stream endpoint.
type StreamInfo struct {
	Type      string          `json:"type"`
	Direction StreamDirection `json:"direction"`
}

// ScaleType is a UI hint for mapping a control's range.
type ScaleType string

const (
	ScaleLinear      ScaleType = "linear"
	ScaleExponential ScaleType = "exponential"
	ScaleDecibel     ScaleType = "decibel"
)

// ValueScale is optional value-scale metadata.
type ValueScale struct {
	Type         ScaleType `json:"type"`
	ExponentRoot int       `json:"exponent_root,omitempty"`
}

// StateLabel names a particular value of a stateful endpoint.
type StateLabel struct {
	Value Value
	Text  string
}

// StateInfo describes a stateful control.
type StateInfo struct {
	Type          ValueType
	Default       Value
	Constraint    Constraint
	Scale         *ValueScale
	StateLabels   []StateLabel
	IsInputFile   bool
	IsSavedToFile bool
	CanBeSource   bool
	CanBeTarget   bool
	IsSentToHost  bool
}

// IsStateful reports whether the endpoint holds a value.
func (e *EndpointDefinition) IsStateful() bool {
	return e.Kind == EndpointControl && e.Control != nil && e.Control.Kind == ControlState
}

// IsBang reports whether the endpoint is a stateless trigger.
func (e *EndpointDefinition) IsBang() bool {
	return e.Kind == EndpointControl && e.Control != nil && e.Control.Kind == ControlBang
}

// IsStream reports whether the endpoint is a stream.
func (e *EndpointDefinition) IsStream() bool {
	return e.Kind == EndpointStream
}

// State returns the state info of a stateful endpoint, or nil.
func (e *EndpointDefinition) State() *StateInfo {
	if !e.IsStateful() {
		return nil
	}
	return e.Control.State
}

// IsSentToHost reports whether committed values go to the execution host.
// Bangs are always sent; streams never are.
func (e *EndpointDefinition) IsSentToHost() bool {
	switch {
	case e.IsBang():
		return true
	case e.IsStateful():
		return e.Control.State.IsSentToHost
	}
	return false
}

// IsInputFile reports whether the endpoint names a file the node reads.
func (e *EndpointDefinition) IsInputFile() bool {
	return e.IsStateful() && e.Control.State.IsInputFile
}

type stateLabelJSON struct {
	Value JSONValue `json:"value"`
	Text  string    `json:"text"`
}

type stateInfoJSON struct {
	Type          string           `json:"type"`
	Default       JSONValue        `json:"default"`
	Constraint    Constraint       `json:"constraint"`
	Scale         *ValueScale      `json:"scale,omitempty"`
	StateLabels   []stateLabelJSON `json:"state_labels,omitempty"`
	IsInputFile   bool             `json:"is_input_file"`
	IsSavedToFile bool             `json:"is_saved_to_file"`
	CanBeSource   bool             `json:"can_be_source"`
	CanBeTarget   bool             `json:"can_be_target"`
	IsSentToHost  bool             `json:"is_sent_to_host"`
}

// MarshalJSON implements json.Marshaler.
func (s StateInfo) MarshalJSON() ([]byte, error) {
	out := stateInfoJSON{
		Type:          s.Type.String(),
		Default:       JSONValue{s.Default},
		Constraint:    s.Constraint,
		Scale:         s.Scale,
		IsInputFile:   s.IsInputFile,
		IsSavedToFile: s.IsSavedToFile,
		CanBeSource:   s.CanBeSource,
		CanBeTarget:   s.CanBeTarget,
		IsSentToHost:  s.IsSentToHost,
	}
	for _, l := range s.StateLabels {
		out.StateLabels = append(out.StateLabels, stateLabelJSON{Value: JSONValue{l.Value}, Text: l.Text})
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StateInfo) UnmarshalJSON(data []byte) error {
	var in stateInfoJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t, err := ParseValueType(in.Type)
	if err != nil {
		return err
	}
	*s = StateInfo{
		Type:          t,
		Default:       in.Default.Value,
		Constraint:    in.Constraint,
		Scale:         in.Scale,
		IsInputFile:   in.IsInputFile,
		IsSavedToFile: in.IsSavedToFile,
		CanBeSource:   in.CanBeSource,
		CanBeTarget:   in.CanBeTarget,
		IsSentToHost:  in.IsSentToHost,
	}
	for _, l := range in.StateLabels {
		s.StateLabels = append(s.StateLabels, StateLabel{Value: l.Value.Value, Text: l.Text})
	}
	return nil
}
