package galileo

import (
	"fmt"
	"io"
	"os"
)

// debugOut is where diagnostics go when a component has Debug enabled.
// Tests swap it to capture output.
var debugOut io.Writer = os.Stderr

// debugf writes a "[galileo]" prefixed line to debugOut when enabled is true.
// Missing staggered targets, unknown animation ids and dropped sync callbacks
// are reported this way; none of them is an error.
func debugf(enabled bool, format string, args ...any) {
	if !enabled {
		return
	}
	_, _ = fmt.Fprintf(debugOut, "[galileo] "+format+"\n", args...)
}

// debugCheckSpring panics with a descriptive message when a spring is built
// with a non-positive mass. Only called in debug mode; in release mode the
// resulting NaN/Inf values propagate silently.
func debugCheckSpring(cfg SpringConfig) {
	if cfg.Mass <= 0 {
		panic(fmt.Sprintf("galileo debug: spring mass must be positive, got %v", cfg.Mass))
	}
}

// stageStats holds per-frame counters. Only populated when Stage debug is on.
type stageStats struct {
	particles  int
	movers     int
	layouts    int
	timers     int
	animations int
}

// debugLog prints per-frame counters to debugOut.
func (s *Stage) debugLog(stats stageStats) {
	if !s.debug {
		return
	}
	debugf(true, "particles: %d | movers: %d | layouts: %d | timers: %d | animations: %d",
		stats.particles, stats.movers, stats.layouts, stats.timers, stats.animations)
}
