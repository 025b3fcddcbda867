package ai

import "sync/atomic"

// debugLoggingEnabled gates per-tick debug logs so the hot path pays a single
// atomic load when debug output is off.
var debugLoggingEnabled atomic.Bool

// EnableDebugLogging toggles per-tick debug logging for agents and the tick manager.
// Called from main after the log level is parsed.
func EnableDebugLogging(enabled bool) {
	debugLoggingEnabled.Store(enabled)
}

// IsDebugEnabled reports whether per-tick debug logging is on.
// Guard expensive debug calls with it:
//
//	if ai.IsDebugEnabled() {
//	    slog.Debug("agent tick", "path", agent.Path())
//	}
func IsDebugEnabled() bool {
	return debugLoggingEnabled.Load()
}
