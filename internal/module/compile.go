package module

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/ir"
)

// CompileInterface parses a CUE value into an InterfaceDefinition.
//
// The CUE value should be the interface struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`interface: Gain: { ... }`)
//	def, err := CompileInterface(v.LookupPath(cue.ParsePath("interface.Gain")), ir.ModuleShipped)
func CompileInterface(v cue.Value, source ir.ModuleSource) (*ir.InterfaceDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.InterfaceDefinition{Source: source}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Info.Name = labels[len(labels)-1].String()
	}

	idVal := v.LookupPath(cue.ParsePath("module_id"))
	if !idVal.Exists() {
		return nil, &CompileError{Field: "module_id", Message: "module_id is required", Pos: v.Pos()}
	}
	id, err := parseUUID(idVal)
	if err != nil {
		return nil, err
	}
	def.ModuleID = id
	def.OriginID = id
	if originVal := v.LookupPath(cue.ParsePath("origin_id")); originVal.Exists() {
		if def.OriginID, err = parseUUID(originVal); err != nil {
			return nil, err
		}
	}

	for _, f := range []struct {
		field string
		dst   *string
	}{
		{"label", &def.Info.Label},
		{"description", &def.Info.Description},
		{"author", &def.Info.Author},
		{"system_class", &def.Info.SystemClass},
	} {
		if *f.dst, err = optionalString(v, f.field); err != nil {
			return nil, err
		}
	}
	if def.Info.ImplementedInCore, err = optionalBool(v, "implemented_in_core", false); err != nil {
		return nil, err
	}
	if tagsVal := v.LookupPath(cue.ParsePath("tags")); tagsVal.Exists() {
		if err := tagsVal.Decode(&def.Info.Tags); err != nil {
			return nil, formatCUEError(err)
		}
	}

	def.Endpoints, err = parseEndpoints(v)
	if err != nil {
		return nil, err
	}

	if implVal := v.LookupPath(cue.ParsePath("implementation")); implVal.Exists() {
		checksum, err := optionalString(implVal, "checksum")
		if err != nil {
			return nil, err
		}
		def.Implementation = &ir.ImplementationInfo{Checksum: checksum}
		if checksum == "" {
			sum, err := ir.ImplementationChecksum(def)
			if err != nil {
				return nil, &CompileError{Field: "implementation", Message: err.Error(), Pos: implVal.Pos()}
			}
			def.Implementation.Checksum = sum
		}
	}

	return def, nil
}

func parseUUID(v cue.Value) (uuid.UUID, error) {
	str, err := v.String()
	if err != nil {
		return uuid.Nil, formatCUEError(err)
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, &CompileError{Field: "module_id", Message: fmt.Sprintf("invalid uuid %q", str), Pos: v.Pos()}
	}
	return id, nil
}

// parseEndpoints extracts endpoint definitions in declaration order.
func parseEndpoints(v cue.Value) ([]ir.EndpointDefinition, error) {
	var endpoints []ir.EndpointDefinition

	epVal := v.LookupPath(cue.ParsePath("endpoint"))
	if !epVal.Exists() {
		return endpoints, nil
	}

	iter, err := epVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		ep, err := parseEndpoint(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

func parseEndpoint(name string, v cue.Value) (ir.EndpointDefinition, error) {
	ep := ir.EndpointDefinition{Name: name}

	desc, err := optionalString(v, "description")
	if err != nil {
		return ep, err
	}
	ep.Description = desc

	kind, err := optionalString(v, "kind")
	if err != nil {
		return ep, err
	}
	if kind == "" {
		kind = string(ir.EndpointControl)
	}
	ep.Kind = ir.EndpointKind(kind)

	switch ep.Kind {
	case ir.EndpointStream:
		streamType, err := optionalString(v, "stream_type")
		if err != nil {
			return ep, err
		}
		if streamType == "" {
			streamType = "audio"
		}
		dir, err := optionalString(v, "direction")
		if err != nil {
			return ep, err
		}
		ep.Stream = &ir.StreamInfo{Type: streamType, Direction: ir.StreamDirection(dir)}
		return ep, nil

	case ir.EndpointControl:
		control, err := optionalString(v, "control")
		if err != nil {
			return ep, err
		}
		if control == "" {
			control = string(ir.ControlState)
		}
		ep.Control = &ir.ControlInfo{Kind: ir.ControlKind(control)}
		if ep.Control.Kind == ir.ControlState {
			state, err := parseState(name, v)
			if err != nil {
				return ep, err
			}
			ep.Control.State = state
		}
		return ep, nil

	default:
		return ep, &CompileError{
			Field:   "kind",
			Message: fmt.Sprintf("endpoint %s: kind must be \"control\" or \"stream\", got %q", name, kind),
			Pos:     v.Pos(),
		}
	}
}

// parseState reads a stateful control. Flags default the way module
// authors expect: saved, routable and sent to the host unless disabled.
func parseState(name string, v cue.Value) (*ir.StateInfo, error) {
	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return nil, &CompileError{Field: "type", Message: fmt.Sprintf("endpoint %s: type is required", name), Pos: v.Pos()}
	}
	typeName, err := typeVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	t, err := ir.ParseValueType(typeName)
	if err != nil {
		return nil, &CompileError{Field: "type", Message: fmt.Sprintf("endpoint %s: %v", name, err), Pos: typeVal.Pos()}
	}
	state := &ir.StateInfo{Type: t}

	// Numeric bounds are stored in the endpoint's type; string bounds are
	// lengths and stay integers.
	boundType := t
	if t == ir.TypeString {
		boundType = ir.TypeInteger
	}

	minVal := v.LookupPath(cue.ParsePath("min"))
	maxVal := v.LookupPath(cue.ParsePath("max"))
	if minVal.Exists() || maxVal.Exists() {
		if !minVal.Exists() || !maxVal.Exists() {
			return nil, &CompileError{Field: "constraint", Message: fmt.Sprintf("endpoint %s: min and max must be given together", name), Pos: v.Pos()}
		}
		lo, err := valueAs(minVal, boundType)
		if err != nil {
			return nil, err
		}
		hi, err := valueAs(maxVal, boundType)
		if err != nil {
			return nil, err
		}
		state.Constraint.Range = &ir.Range{Min: lo, Max: hi}
	}
	if allowedVal := v.LookupPath(cue.ParsePath("allowed")); allowedVal.Exists() {
		list, err := allowedVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for list.Next() {
			a, err := valueAs(list.Value(), t)
			if err != nil {
				return nil, err
			}
			state.Constraint.Allowed = append(state.Constraint.Allowed, a)
		}
	}

	if defVal := v.LookupPath(cue.ParsePath("default")); defVal.Exists() {
		if state.Default, err = valueAs(defVal, t); err != nil {
			return nil, err
		}
	} else {
		state.Default = implicitDefault(t, state.Constraint)
	}

	if scaleVal := v.LookupPath(cue.ParsePath("scale")); scaleVal.Exists() {
		scaleType, err := optionalString(scaleVal, "type")
		if err != nil {
			return nil, err
		}
		scale := &ir.ValueScale{Type: ir.ScaleType(scaleType)}
		if rootVal := scaleVal.LookupPath(cue.ParsePath("root")); rootVal.Exists() {
			root, err := rootVal.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			scale.ExponentRoot = int(root)
		}
		state.Scale = scale
	}

	if labelsVal := v.LookupPath(cue.ParsePath("labels")); labelsVal.Exists() {
		list, err := labelsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for list.Next() {
			lv, err := valueAs(list.Value().LookupPath(cue.ParsePath("value")), t)
			if err != nil {
				return nil, err
			}
			text, err := optionalString(list.Value(), "text")
			if err != nil {
				return nil, err
			}
			state.StateLabels = append(state.StateLabels, ir.StateLabel{Value: lv, Text: text})
		}
	}

	flags := []struct {
		field string
		dst   *bool
		def   bool
	}{
		{"input_file", &state.IsInputFile, false},
		{"saved_to_file", &state.IsSavedToFile, true},
		{"can_be_source", &state.CanBeSource, true},
		{"can_be_target", &state.CanBeTarget, true},
		{"sent_to_host", &state.IsSentToHost, true},
	}
	for _, f := range flags {
		if *f.dst, err = optionalBool(v, f.field, f.def); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// implicitDefault picks a default that satisfies the constraint when the
// author gave none.
func implicitDefault(t ir.ValueType, c ir.Constraint) ir.Value {
	switch {
	case len(c.Allowed) > 0:
		return c.Allowed[0]
	case c.Range != nil && t != ir.TypeString:
		return c.Range.Min
	default:
		return ir.Zero(t)
	}
}

// valueAs reads a CUE scalar and converts it into t. Integer literals
// are accepted for float endpoints and vice versa.
func valueAs(v cue.Value, t ir.ValueType) (ir.Value, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "value", Message: "value is required", Pos: v.Pos()}
	}
	var raw ir.Value
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		raw = ir.Int(n)
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		raw = ir.Float(f)
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		raw = ir.String(s)
	default:
		return nil, &CompileError{Field: "value", Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()), Pos: v.Pos()}
	}
	out, err := ir.Convert(raw, t)
	if err != nil {
		return nil, &CompileError{Field: "value", Message: fmt.Sprintf("%s is not assignable to %s", raw.Type(), t), Pos: v.Pos()}
	}
	return out, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, field string, def bool) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
