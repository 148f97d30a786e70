package logger

// noopLogger discards everything. Used in tests and as a safe default.
type noopLogger struct{}

// NewNop returns a Logger that discards all output.
func NewNop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...Field)        {}
func (noopLogger) Info(string, ...Field)         {}
func (noopLogger) Warn(string, ...Field)         {}
func (noopLogger) Error(string, error, ...Field) {}

func (n noopLogger) WithComponent(string) Logger { return n }
func (n noopLogger) WithFields(...Field) Logger  { return n }
