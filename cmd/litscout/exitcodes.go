package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no project, invalid litscout.toml)
	ExitDataError   = 3 // Data error (malformed papers.jsonl, validation failure)
)
