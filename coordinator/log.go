package coordinator

import "github.com/decred/slog"

var log = slog.Disabled

// UseLogger sets the subsystem logger used by the coordinator package.
func UseLogger(logger slog.Logger) {
	log = logger
}
