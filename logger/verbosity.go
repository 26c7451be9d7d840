package logger

import "go.uber.org/zap/zapcore"

// Verbosity levels for the CLI's repeated -v flag.
const (
	VerbosityQuiet = 0 // results and errors only
	VerbosityInfo  = 1 // -v: + pipeline progress and summaries
	VerbosityDebug = 2 // -vv: + per-fragment coercion notes
)

// VerbosityToLevel maps a -v count to a zap level.
//
//	0 (none) -> WarnLevel
//	1 (-v)   -> InfoLevel
//	2+ (-vv) -> DebugLevel
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityQuiet:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// LevelName returns the zap level name for a -v count, usable with Initialize.
func LevelName(verbosity int) string {
	return VerbosityToLevel(verbosity).String()
}
