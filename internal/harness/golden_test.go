package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario in testdata/scenarios against its
// golden file. Regenerate with:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestCheckGolden(t *testing.T) {
	scenario := &Scenario{
		Name:        "check",
		Description: "golden check outside go test",
		Steps:       []Step{{Command: "new", Module: "Control", Name: "K"}},
	}
	result, err := Run(scenario)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "golden")

	_, err = CheckGolden(dir, "check", result, false)
	require.Error(t, err, "missing golden file")

	ok, err := CheckGolden(dir, "check", result, true)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := os.ReadFile(filepath.Join(dir, "check.golden"))
	require.NoError(t, err)
	assert.Equal(t, result.Dump("check"), string(data))

	ok, err = CheckGolden(dir, "check", result, false)
	require.NoError(t, err)
	assert.True(t, ok)

	result.Notifications = append(result.Notifications, "extra")
	ok, err = CheckGolden(dir, "check", result, false)
	require.NoError(t, err)
	assert.False(t, ok)
}
