package main

import (
	"fmt"
	"os"
)

// stderrLogger writes pipeline log lines to stderr. Debug lines are
// dropped unless verbose mode is on.
type stderrLogger struct {
	verbose bool
}

func newStderrLogger(verbose bool) *stderrLogger {
	return &stderrLogger{verbose: verbose}
}

func (l *stderrLogger) Debug(msg string, keysAndValues ...interface{}) {
	if l.verbose {
		l.write("debug", msg, keysAndValues)
	}
}

func (l *stderrLogger) Info(msg string, keysAndValues ...interface{}) {
	l.write("info", msg, keysAndValues)
}

func (l *stderrLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.write("warn", msg, keysAndValues)
}

func (l *stderrLogger) Error(msg string, keysAndValues ...interface{}) {
	l.write("error", msg, keysAndValues)
}

func (l *stderrLogger) write(level, msg string, keysAndValues []interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] %s", level, msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(os.Stderr, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	fmt.Fprintln(os.Stderr)
}
