package module

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrMissingModuleID     = "E201" // module_id is nil
	ErrDuplicateModuleID   = "E202" // module_id already registered
	ErrInvalidInterface    = "E203" // interface name is not a valid node name
	ErrInvalidEndpointName = "E204" // endpoint name is not a valid path element
	ErrDuplicateEndpoint   = "E205" // two endpoints share a name
	ErrInvalidEndpointKind = "E206" // kind/control shape is inconsistent
	ErrInvalidValueType    = "E207" // unknown value type
	ErrInvalidConstraint   = "E208" // range and allowed both set, or min > max
	ErrInvalidDefault      = "E209" // default missing, mistyped or outside the constraint
	ErrInvalidStream       = "E210" // stream direction not input/output
	ErrInvalidModuleSource = "E211" // unknown module source
	ErrSystemClassShape    = "E212" // built-in system class lacks its endpoints
)

// ValidationError represents an interface validation error.
type ValidationError struct {
	Interface string `json:"interface"`
	Field     string `json:"field"`
	Message   string `json:"message"`
	Code      string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Interface, e.Field, e.Message)
}

// requiredEndpoints lists what each built-in system class reads.
var requiredEndpoints = map[string]map[string]ir.ValueType{
	ir.ClassContainer:  {"active": ir.TypeInteger},
	ir.ClassScript:     {"text": ir.TypeString, "info": ir.TypeString},
	ir.ClassConnection: {"sourcePath": ir.TypeString, "targetPath": ir.TypeString},
}

// Validate checks an interface definition. Returns all errors found (does
// not fail-fast).
func Validate(def *ir.InterfaceDefinition) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Interface: def.Info.Name,
			Field:     field,
			Message:   fmt.Sprintf(format, args...),
			Code:      code,
		})
	}

	if def.ModuleID == uuid.Nil {
		add("module_id", ErrMissingModuleID, "module_id is required")
	}
	if !ir.ValidName(def.Info.Name) {
		add("name", ErrInvalidInterface, "interface name %q must match [A-Za-z0-9_]+", def.Info.Name)
	}
	if !ir.ValidModuleSources[def.Source] {
		add("source", ErrInvalidModuleSource, "unknown module source %q", def.Source)
	}

	seen := make(map[string]bool)
	for i := range def.Endpoints {
		ep := &def.Endpoints[i]
		field := "endpoint." + ep.Name
		if !ir.ValidName(ep.Name) {
			add(field, ErrInvalidEndpointName, "endpoint name %q must match [A-Za-z0-9_]+", ep.Name)
			continue
		}
		if seen[ep.Name] {
			add(field, ErrDuplicateEndpoint, "duplicate endpoint %q", ep.Name)
			continue
		}
		seen[ep.Name] = true
		errs = append(errs, validateEndpoint(def.Info.Name, field, ep)...)
	}

	if required, ok := requiredEndpoints[def.Info.SystemClass]; ok {
		names := make([]string, 0, len(required))
		for name := range required {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t := required[name]
			ep, found := def.Endpoint(name)
			if !found || !ep.IsStateful() || ep.State().Type != t {
				add("endpoint."+name, ErrSystemClassShape, "system class %s requires a %s endpoint %q", def.Info.SystemClass, t, name)
			}
		}
		if def.Info.SystemClass == ir.ClassScript {
			if ep, found := def.Endpoint("trigger"); !found || !ep.IsBang() {
				add("endpoint.trigger", ErrSystemClassShape, "system class Script requires a bang endpoint \"trigger\"")
			}
		}
	}

	return errs
}

func validateEndpoint(iface, field string, ep *ir.EndpointDefinition) []ValidationError {
	fail := func(code, format string, args ...any) []ValidationError {
		return []ValidationError{{Interface: iface, Field: field, Message: fmt.Sprintf(format, args...), Code: code}}
	}

	switch ep.Kind {
	case ir.EndpointStream:
		if ep.Stream == nil || ep.Control != nil {
			return fail(ErrInvalidEndpointKind, "stream endpoint requires stream info only")
		}
		if ep.Stream.Direction != ir.StreamInput && ep.Stream.Direction != ir.StreamOutput {
			return fail(ErrInvalidStream, "direction must be input or output, got %q", ep.Stream.Direction)
		}
		return nil
	case ir.EndpointControl:
	default:
		return fail(ErrInvalidEndpointKind, "kind must be control or stream, got %q", ep.Kind)
	}

	if ep.Control == nil || ep.Stream != nil {
		return fail(ErrInvalidEndpointKind, "control endpoint requires control info only")
	}
	switch ep.Control.Kind {
	case ir.ControlBang:
		if ep.Control.State != nil {
			return fail(ErrInvalidEndpointKind, "bang cannot carry state")
		}
		return nil
	case ir.ControlState:
	default:
		return fail(ErrInvalidEndpointKind, "control must be state or bang, got %q", ep.Control.Kind)
	}

	s := ep.Control.State
	if s == nil {
		return fail(ErrInvalidEndpointKind, "stateful control requires state info")
	}
	switch s.Type {
	case ir.TypeInteger, ir.TypeFloat, ir.TypeString:
	default:
		return fail(ErrInvalidValueType, "unknown value type %d", int(s.Type))
	}
	if err := s.Constraint.Validate(s.Type); err != nil {
		return fail(ErrInvalidConstraint, "%v", err)
	}
	if s.Default == nil {
		return fail(ErrInvalidDefault, "default value required")
	}
	if !ir.Compatible(s.Default.Type(), s.Type) {
		return fail(ErrInvalidDefault, "default %s is not assignable to %s", s.Default.Type(), s.Type)
	}
	if !s.Constraint.Test(s.Default, s.Type) {
		return fail(ErrInvalidDefault, "default %s violates constraint", s.Default)
	}
	return nil
}
