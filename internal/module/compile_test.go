package module

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/ir"
)

func compileOne(t *testing.T, src, name string) (*ir.InterfaceDefinition, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileInterface(v.LookupPath(cue.ParsePath("interface."+name)), ir.ModuleShipped)
}

func TestCompileInterface_Full(t *testing.T) {
	def, err := compileOne(t, `
interface: Gain: {
	module_id: "11111111-2222-4333-8444-555555555555"
	origin_id: "11111111-2222-4333-8444-000000000000"
	label: "Gain"
	description: "Scales a signal"
	tags: ["utility", "level"]
	author: "someone"
	implementation: checksum: "gain-v2"
	endpoint: level: {
		type: "float"
		default: 1
		min: 0
		max: 2
		scale: {type: "decibel"}
	}
	endpoint: mode: {
		type: "int"
		allowed: [1, 2, 4]
		labels: [{value: 1, text: "one"}]
		saved_to_file: false
		sent_to_host: false
	}
	endpoint: in1: {kind: "stream", stream_type: "audio", direction: "input"}
	endpoint: bang: control: "bang"
}`, "Gain")
	require.NoError(t, err)

	assert.Equal(t, "Gain", def.Info.Name)
	assert.Equal(t, uuid.MustParse("11111111-2222-4333-8444-555555555555"), def.ModuleID)
	assert.Equal(t, uuid.MustParse("11111111-2222-4333-8444-000000000000"), def.OriginID)
	assert.Equal(t, []string{"utility", "level"}, def.Info.Tags)
	assert.Equal(t, ir.ModuleShipped, def.Source)
	require.True(t, def.HasImplementation())
	assert.Equal(t, "gain-v2", def.Implementation.Checksum)

	require.Len(t, def.Endpoints, 4)
	assert.Equal(t, []string{"level", "mode", "in1", "bang"},
		[]string{def.Endpoints[0].Name, def.Endpoints[1].Name, def.Endpoints[2].Name, def.Endpoints[3].Name},
		"declaration order is kept")

	level := def.Endpoints[0].State()
	require.NotNil(t, level)
	assert.Equal(t, ir.TypeFloat, level.Type)
	assert.Equal(t, ir.Float(1), level.Default, "integer literal converted to the endpoint type")
	assert.Equal(t, &ir.Range{Min: ir.Float(0), Max: ir.Float(2)}, level.Constraint.Range)
	assert.Equal(t, ir.ScaleDecibel, level.Scale.Type)
	assert.True(t, level.IsSavedToFile)
	assert.True(t, level.IsSentToHost)
	assert.True(t, level.CanBeSource)

	mode := def.Endpoints[1].State()
	require.NotNil(t, mode)
	assert.Equal(t, []ir.Value{ir.Int(1), ir.Int(2), ir.Int(4)}, mode.Constraint.Allowed)
	assert.Equal(t, ir.Int(1), mode.Default, "first allowed value is the implicit default")
	assert.Equal(t, []ir.StateLabel{{Value: ir.Int(1), Text: "one"}}, mode.StateLabels)
	assert.False(t, mode.IsSavedToFile)
	assert.False(t, mode.IsSentToHost)

	assert.True(t, def.Endpoints[2].IsStream())
	assert.Equal(t, ir.StreamInput, def.Endpoints[2].Stream.Direction)
	assert.True(t, def.Endpoints[3].IsBang())

	assert.Empty(t, Validate(def))
}

func TestCompileInterface_OriginDefaultsToModuleID(t *testing.T) {
	def, err := compileOne(t, `
interface: X: {
	module_id: "11111111-2222-4333-8444-555555555555"
	endpoint: v: {type: "int", min: 3, max: 9}
}`, "X")
	require.NoError(t, err)
	assert.Equal(t, def.ModuleID, def.OriginID)
	assert.Equal(t, ir.Int(3), def.Endpoints[0].State().Default, "range minimum is the implicit default")
	assert.False(t, def.HasImplementation())
}

func TestCompileInterface_DerivedChecksum(t *testing.T) {
	def, err := compileOne(t, `
interface: X: {
	module_id: "11111111-2222-4333-8444-555555555555"
	implementation: {}
	endpoint: v: {type: "int"}
}`, "X")
	require.NoError(t, err)
	require.True(t, def.HasImplementation())
	assert.Equal(t, ir.MustImplementationChecksum(def), def.Implementation.Checksum)
}

func TestCompileInterface_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing module id", `interface: X: { endpoint: v: {type: "int"} }`, "module_id"},
		{"bad uuid", `interface: X: { module_id: "nope" }`, "module_id"},
		{"missing type", `interface: X: { module_id: "11111111-2222-4333-8444-555555555555", endpoint: v: {default: 1} }`, "type"},
		{"unknown type", `interface: X: { module_id: "11111111-2222-4333-8444-555555555555", endpoint: v: {type: "bool"} }`, "type"},
		{"bad kind", `interface: X: { module_id: "11111111-2222-4333-8444-555555555555", endpoint: v: {kind: "midi"} }`, "kind"},
		{"half range", `interface: X: { module_id: "11111111-2222-4333-8444-555555555555", endpoint: v: {type: "int", min: 1} }`, "constraint"},
		{"string default on int", `interface: X: { module_id: "11111111-2222-4333-8444-555555555555", endpoint: v: {type: "int", default: "a"} }`, "value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileOne(t, tt.src, "X")
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}
