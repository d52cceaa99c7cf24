package ir

// Version constants for the wire model and server.
const (
	// SchemaVersion is the snapshot schema version.
	SchemaVersion = "1"

	// ServerVersion is the patchbay server version reported by system.version.
	ServerVersion = "0.4.0"
)
