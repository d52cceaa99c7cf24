package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/patchbay/internal/ir"
)

// Scenario is a sequence of commands with expected result codes and
// assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Modules selects interface directories. When nil the built-in
	// fixture interfaces are used.
	Modules *ModuleDirs `yaml:"modules,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ModuleDirs are resolved relative to the scenario file.
type ModuleDirs struct {
	System     string `yaml:"system,omitempty"`
	ThirdParty string `yaml:"third_party,omitempty"`
}

// Step is one command. Which fields apply depends on Command.
type Step struct {
	// Command is set, new, delete, move, rename, save or load.
	Command string `yaml:"command"`

	Path      string `yaml:"path,omitempty"`
	Value     any    `yaml:"value,omitempty"`
	Module    string `yaml:"module,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Parent    string `yaml:"parent,omitempty"`
	NewParent string `yaml:"new_parent,omitempty"`
	NewName   string `yaml:"new_name,omitempty"`

	// Source defaults to host_api.
	Source string `yaml:"source,omitempty"`

	// Expect is the expected result code. Defaults to SUCCESS.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is value, node_exists, node_absent, host_sends, notifications
	// or notification_count.
	Type string `yaml:"type"`

	Path  string   `yaml:"path,omitempty"`
	Value any      `yaml:"value,omitempty"`
	Sends []string `yaml:"sends,omitempty"`
	Lines []string `yaml:"lines,omitempty"`
	Count int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertValue             = "value"
	AssertNodeExists        = "node_exists"
	AssertNodeAbsent        = "node_absent"
	AssertHostSends         = "host_sends"
	AssertNotifications     = "notifications"
	AssertNotificationCount = "notification_count"
)

var commands = map[string]bool{
	"set": true, "new": true, "delete": true, "move": true,
	"rename": true, "save": true, "load": true,
}

var codes = map[string]bool{
	"SUCCESS": true, "PATH_ERROR": true, "TYPE_ERROR": true, "CONSTRAINT_ERROR": true,
	"REENTRANCE_ERROR": true, "INPUT_ERROR": true, "FAILED": true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Module directories are resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if m := scenario.Modules; m != nil {
		base := filepath.Dir(path)
		m.System = resolve(base, m.System)
		m.ThirdParty = resolve(base, m.ThirdParty)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name. It stops at the first invalid file.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	scenarios := make([]*Scenario, 0, len(files))
	for _, f := range files {
		s, err := LoadScenario(filepath.Join(dir, f))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if m := s.Modules; m != nil {
		if m.System == "" && m.ThirdParty == "" {
			return fmt.Errorf("modules: at least one of system, third_party is required")
		}
		for _, dir := range []string{m.System, m.ThirdParty} {
			if dir == "" {
				continue
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("module directory not found: %s", dir)
			}
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	if !commands[s.Command] {
		return fmt.Errorf("steps[%d]: unknown command %q", index, s.Command)
	}
	if s.Expect != "" && !codes[s.Expect] {
		return fmt.Errorf("steps[%d]: unknown result code %q", index, s.Expect)
	}
	if s.Source != "" {
		if _, err := ir.ParseCommandSource(s.Source); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	if _, err := toValue(s.Value); err != nil {
		return fmt.Errorf("steps[%d]: %w", index, err)
	}

	switch s.Command {
	case "new":
		if s.Module == "" {
			return fmt.Errorf("steps[%d]: module is required for new", index)
		}
	case "save", "load":
		if s.Name == "" {
			return fmt.Errorf("steps[%d]: name is required for %s", index, s.Command)
		}
	case "rename":
		if s.NewName == "" {
			return fmt.Errorf("steps[%d]: new_name is required for rename", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertValue, AssertNodeExists, AssertNodeAbsent:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
		if _, err := toValue(a.Value); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertHostSends, AssertNotifications:
	case AssertNotificationCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// toValue converts a YAML scalar to a Value. nil is a bang.
func toValue(v any) (ir.Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case int:
		return ir.Int(val), nil
	case int64:
		return ir.Int(val), nil
	case float64:
		return ir.Float(val), nil
	case string:
		return ir.String(val), nil
	default:
		return nil, fmt.Errorf("unsupported value %v (%T): use an integer, number, string or null", v, v)
	}
}

// describe renders a Value the way assertion messages show it.
func describe(v ir.Value) string {
	if v == nil {
		return "<bang>"
	}
	if s, ok := v.(ir.String); ok {
		return fmt.Sprintf("%q", string(s))
	}
	return strings.TrimSpace(v.String())
}
