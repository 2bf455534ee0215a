package syncer

import "github.com/decred/slog"

// swapLog is the package-level logger for the syncer task registry and
// per-swap syncer state, replaced by UseLogger once the daemon's root
// logger is ready.
var swapLog = slog.Disabled

// UseLogger sets the package-level logger used by this package.
// Shouldn't be called concurrently with the package's freestanding
// functions.
func UseLogger(logger slog.Logger) {
	swapLog = logger
}
