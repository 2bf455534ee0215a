package dcrwallet

import (
	"decred.org/dcrwallet/v2/p2p"
	"decred.org/dcrwallet/v2/spv"
	base "decred.org/dcrwallet/v2/wallet"
	"github.com/decred/dcrswap/build"
	"github.com/decred/slog"
)

var dcrwLog slog.Logger

func init() {
	UseLogger(build.NewSubLogger("DCRW", nil))
}

// UseLogger uses a specified Logger to output package logging info, and
// propagates it into the upstream wallet/sync packages this backend wraps.
func UseLogger(logger slog.Logger) {
	dcrwLog = logger
	base.UseLogger(logger)
	spv.UseLogger(logger)
	p2p.UseLogger(logger)
}
