package internal

import (
	"strconv"
	"strings"
	"sync/atomic"
)

var (
	quietMode   atomic.Bool  // Indicates whether quiet mode is enabled.
	debugMode   atomic.Bool  // Indicates whether debug logging is enabled.
	verboseMode atomic.Bool  // Indicates whether verbose logging is enabled.
	logFormat   atomic.Value // Holds the selected log format as a string.
)

// Parses the linker flags into usable runtime variables.
//
// The rawQuiet, rawDebug, rawVerbose and rawLogFormat variables may be set via
// ldflags during the build process.
func init() {
	if v, err := strconv.ParseBool(rawQuiet); err == nil {
		quietMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawDebug); err == nil {
		debugMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawVerbose); err == nil {
		verboseMode.Store(v)
	}
	SetLogFormat(rawLogFormat)
}

// Enables or disables quiet mode.
func SetQuiet(enabled bool) {
	quietMode.Store(enabled)
}

// Returns true if quiet mode is enabled.
func IsQuiet() bool {
	return quietMode.Load()
}

// Enables or disables debug mode.
func SetDebug(enabled bool) {
	debugMode.Store(enabled)
}

// Returns true if debug mode is enabled.
func IsDebug() bool {
	return debugMode.Load()
}

// Enables or disables verbose logging.
func SetVerbose(enabled bool) {
	verboseMode.Store(enabled)
}

// Returns true if verbose logging is enabled.
func IsVerbose() bool {
	return verboseMode.Load()
}

// Sets the log format. Unknown values fall back to "text".
func SetLogFormat(format string) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "json", "logfmt", "text":
		logFormat.Store(f)
	default:
		logFormat.Store("text")
	}
}

// Returns the selected log format.
func LogFormat() string {
	if f, ok := logFormat.Load().(string); ok {
		return f
	}
	return "text"
}
