// Package debug provides global debug trace flags
package debug

import (
	"fmt"
	"io"
	"os"
)

// Enabled controls whether debug tracing is active
var Enabled bool

// Frames controls whether per-frame traces are shown (frame numbers, skips,
// key polls). Very verbose at 30 fps; use --debug to enable.
var Frames bool

// Output is where traces are written.
var Output io.Writer = os.Stderr

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Fprintf(Output, format, args...)
	}
}

// Logln prints a message with newline only if debug mode is enabled
func Logln(msg string) {
	if Enabled {
		fmt.Fprintln(Output, msg)
	}
}

// FrameLog prints a message only if frame tracing is enabled
func FrameLog(format string, args ...interface{}) {
	if Frames {
		fmt.Fprintf(Output, format, args...)
	}
}
