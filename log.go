package dcrswap

import (
	"github.com/decred/dcrswap/build"
	"github.com/decred/dcrswap/checkpoint"
	"github.com/decred/dcrswap/coordinator"
	"github.com/decred/dcrswap/swapindex"
	"github.com/decred/dcrswap/syncer"
	"github.com/decred/dcrswap/wallet/dcrwallet"
	"github.com/decred/slog"
)

// replaceableLogger is a thin wrapper around a logger that is used so the
// logger can be replaced easily without some black pointer magic.
type replaceableLogger struct {
	slog.Logger
	subsystem string
}

var (
	// pkgLoggers is the list of package-level loggers registered here,
	// tracked so they can be replaced once SetupLoggers runs with the
	// final root logger.
	pkgLoggers []*replaceableLogger

	addPkgLogger = func(subsystem string) *replaceableLogger {
		l := &replaceableLogger{
			Logger:    build.NewSubLogger(subsystem, nil),
			subsystem: subsystem,
		}
		pkgLoggers = append(pkgLoggers, l)
		return l
	}

	// swpdLog is the top-level daemon logger.
	swpdLog = addPkgLogger("SWPD")
)

// SetupLoggers initializes all package-level logger variables given the
// final root logger, mirroring the teacher daemon's SetupLoggers.
func SetupLoggers(root *build.RotatingLogWriter) {
	for _, l := range pkgLoggers {
		l.Logger = build.NewSubLogger(l.subsystem, root.GenSubLogger)
		SetSubLogger(root, l.subsystem, l.Logger)
	}

	AddSubLogger(root, "CORD", coordinator.UseLogger)
	AddSubLogger(root, "SYNC", syncer.UseLogger)
	AddSubLogger(root, "CKPT", checkpoint.UseLogger)
	AddSubLogger(root, "SWIX", swapindex.UseLogger)
	AddSubLogger(root, "DCRW", dcrwallet.UseLogger)
}

// AddSubLogger is a helper method to conveniently create and register the
// logger of one or more sub systems.
func AddSubLogger(root *build.RotatingLogWriter, subsystem string,
	useLoggers ...func(slog.Logger)) {

	logger := build.NewSubLogger(subsystem, root.GenSubLogger)
	SetSubLogger(root, subsystem, logger, useLoggers...)
}

// SetSubLogger is a helper method to conveniently register the logger of a
// sub system.
func SetSubLogger(root *build.RotatingLogWriter, subsystem string,
	logger slog.Logger, useLoggers ...func(slog.Logger)) {

	root.RegisterSubLogger(subsystem, logger)
	for _, useLogger := range useLoggers {
		useLogger(logger)
	}
}

// logClosure is used to provide a closure over expensive logging
// operations so they aren't performed when the logging level doesn't
// warrant it.
type logClosure func() string

func (c logClosure) String() string {
	return c()
}

func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
