// Package obs carries the library's ambient logging and metrics: silent by
// default, opt-in for a host that wants visibility into compile failures
// and match/process activity.
package obs

import "github.com/rs/zerolog"

var logger = zerolog.Nop()

// SetLogger configures the package-level logger used for diagnostics such
// as selector compile failures. The default is a no-op logger so the
// library stays silent until a host wires one in.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// Logger returns the currently configured logger.
func Logger() zerolog.Logger {
	return logger
}
