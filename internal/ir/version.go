package ir

// Version constants for the IR schema and engine.
const (
	// IRVersion is the IR schema version recorded with every run.
	IRVersion = "1"

	// EngineVersion is the storyboard engine version.
	EngineVersion = "0.3.0"
)
