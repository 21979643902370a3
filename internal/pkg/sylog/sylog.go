// Package sylog is the leveled logger shared by every uprocd binary. It
// writes to stderr and is gated by the UPROCD_LOGLEVEL environment variable
// (an integer, higher is more verbose) rather than a third-party logging
// framework, matching the small call-site surface (Debugf/Verbosef/
// Infof/Warningf/Errorf/Fatalf) used across the daemon, driver and
// cgroup-move helper.
package sylog

import (
	"fmt"
	"os"
	"strconv"
)

type Level int

const (
	FatalLevel Level = iota - 1
	ErrorLevel
	WarnLevel
	InfoLevel
	VerboseLevel
	DebugLevel
)

var currentLevel = InfoLevel

func init() {
	if v := os.Getenv("UPROCD_LOGLEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			currentLevel = Level(n)
		}
	}
}

// SetLevel overrides the level derived from UPROCD_LOGLEVEL. Primarily
// useful for -d/-v command line flags on the CLI binaries.
func SetLevel(l Level) {
	currentLevel = l
}

func logf(level Level, prefix, format string, a ...interface{}) {
	if level > currentLevel {
		return
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", a...)
}

func Debugf(format string, a ...interface{})   { logf(DebugLevel, "DEBUG: ", format, a...) }
func Verbosef(format string, a ...interface{}) { logf(VerboseLevel, "VERBOSE: ", format, a...) }
func Infof(format string, a ...interface{})    { logf(InfoLevel, "INFO: ", format, a...) }
func Warningf(format string, a ...interface{}) { logf(WarnLevel, "WARNING: ", format, a...) }
func Errorf(format string, a ...interface{})   { logf(ErrorLevel, "ERROR: ", format, a...) }

// Fatalf logs at the fatal level (always shown) and exits the process with
// status 1. It never returns.
func Fatalf(format string, a ...interface{}) {
	logf(FatalLevel, "FATAL: ", format, a...)
	os.Exit(1)
}

// Critf logs a structural failure prefixed the way the service manager's
// journal expects (sd_notify STATUS= lines are handled by the callers that
// have a systemd daemon handle; this just guarantees the message is never
// filtered regardless of level).
func Critf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "CRITICAL: "+format+"\n", a...)
}
