package ir

import "fmt"

// CommandSource classifies where a command came from. It gates host
// echo suppression and lets logic distinguish user edits from feedback.
type CommandSource int

const (
	// SourceInitialization is used while a new node's defaults are applied.
	SourceInitialization CommandSource = iota + 1
	// SourceConnection is a value forwarded by a Connection node.
	SourceConnection
	// SourceScript is a command issued from a Script node.
	SourceScript
	// SourceHostAPI is the external client API.
	SourceHostAPI
	// SourceModuleImplementation is feedback from the execution host.
	SourceModuleImplementation
	// SourceLoad is a bulk restore from a snapshot.
	SourceLoad
	// SourceSystem is a command issued by the server's own logic.
	SourceSystem
)

var sourceNames = map[CommandSource]string{
	SourceInitialization:       "initialization",
	SourceConnection:           "connection",
	SourceScript:               "script",
	SourceHostAPI:              "host_api",
	SourceModuleImplementation: "module_implementation",
	SourceLoad:                 "load",
	SourceSystem:               "system",
}

func (s CommandSource) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CommandSource(%d)", int(s))
}

// ParseCommandSource parses the wire name of a source.
func ParseCommandSource(name string) (CommandSource, error) {
	for s, n := range sourceNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown command source %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s CommandSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *CommandSource) UnmarshalText(b []byte) error {
	parsed, err := ParseCommandSource(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsInternal reports whether the source is internal logic rather than an
// external client, the host or a bulk load.
func (s CommandSource) IsInternal() bool {
	switch s {
	case SourceConnection, SourceScript, SourceSystem, SourceInitialization:
		return true
	}
	return false
}
