package module

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/testutil"
)

func TestRegistry_AddAndLookup(t *testing.T) {
	r := NewRegistry(testutil.Definitions()...)
	assert.Equal(t, 6, r.Len())

	def, ok := r.Lookup(testutil.OscillatorID)
	require.True(t, ok)
	assert.Equal(t, "Oscillator", def.Info.Name)

	_, ok = r.Lookup(uuid.New())
	assert.False(t, ok)

	byName, ok := r.LookupName("Script")
	require.True(t, ok)
	assert.Equal(t, testutil.ScriptID, byName.ModuleID)

	assert.Equal(t, "Oscillator", r.Interfaces()[0].Info.Name, "registration order")
	assert.Equal(t, []string{"Connection", "Container", "Control", "Oscillator", "Player", "Script"}, r.Names())
}

func TestRegistry_RejectsDuplicateAndInvalid(t *testing.T) {
	r := NewRegistry(testutil.OscillatorInterface())

	err := r.Add(testutil.OscillatorInterface())
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ErrDuplicateModuleID, ve.Code)

	bad := testutil.ControlInterface()
	bad.Info.Name = ""
	require.ErrorAs(t, r.Add(bad), &ve)
	assert.Equal(t, ErrInvalidInterface, ve.Code)

	assert.Panics(t, func() { NewRegistry(bad) })
}

func TestRegistry_LoadDirs(t *testing.T) {
	r := NewRegistry()
	errs := r.LoadDirs("testdata/modules/system", "testdata/modules/thirdparty")
	require.Empty(t, errs)
	assert.Equal(t, 5, r.Len())

	player, ok := r.Lookup(testutil.PlayerID)
	require.True(t, ok)
	assert.Equal(t, ir.ModuleThirdParty, player.Source)
	osc, _ := r.Lookup(testutil.OscillatorID)
	assert.Equal(t, ir.ModuleShipped, osc.Source)
}

func TestRegistry_LoadDirsSkipsEmptyAndReportsDuplicates(t *testing.T) {
	r := NewRegistry(testutil.OscillatorInterface())
	errs := r.LoadDirs("testdata/modules/system", "")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrDuplicateModuleID)
	assert.Equal(t, 4, r.Len())
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(testutil.OscillatorInterface())
	r.Close()

	_, ok := r.Lookup(testutil.OscillatorID)
	assert.False(t, ok)
	assert.ErrorIs(t, r.Add(testutil.ControlInterface()), ErrRegistryClosed)
}
