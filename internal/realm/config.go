package realm

import "time"

// Config limits what scripts in a realm can do.
type Config struct {
	Timeout          time.Duration // Eval deadline, zero for none
	MaxCallStackSize int           // goja call stack limit, zero keeps the default
	EnableConsole    bool          // capture console.* output
}

// DefaultConfig returns the limits used by the scenario runner.
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		MaxCallStackSize: 1024,
		EnableConsole:    true,
	}
}

// LogEntry is one captured console call.
type LogEntry struct {
	Realm   string    `json:"realm"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}
