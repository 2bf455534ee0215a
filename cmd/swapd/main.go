// Command swapd is the daemon entrypoint: it loads configuration,
// wires up logging, creates the checkpoint directory, opens the
// swap-index store, serves Prometheus metrics, and logs how many active
// swaps the index lists, mirroring the teacher daemon's
// main()/lndMain() split. It does not construct or start a coordinator
// for those swaps.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/decred/dcrswap"
	"github.com/decred/dcrswap/build"
	"github.com/decred/dcrswap/config"
	"github.com/decred/dcrswap/metrics"
	"github.com/decred/dcrswap/swapindex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = build.NewSubLogger("SWPD", nil)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("swapd: loading config: %w", err)
	}

	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return fmt.Errorf("swapd: creating log directory: %w", err)
	}
	logWriter := build.NewRotatingLogWriter()
	if err := logWriter.InitLogRotator(cfg.LogFilePath(), cfg.MaxLogFileSize, cfg.MaxLogFiles); err != nil {
		return fmt.Errorf("swapd: initializing log rotation: %w", err)
	}
	defer logWriter.Close()
	dcrswap.SetupLoggers(logWriter)

	if err := os.MkdirAll(cfg.CheckpointDir(), 0700); err != nil {
		return fmt.Errorf("swapd: creating checkpoint directory: %w", err)
	}

	index, err := swapindex.Open(cfg.SwapIndexDir())
	if err != nil {
		return fmt.Errorf("swapd: opening swap index: %w", err)
	}
	defer index.Close()

	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)
	if cfg.PrometheusAddr != "" {
		go serveMetrics(cfg.PrometheusAddr, registry)
	}

	active, err := index.ListActive()
	if err != nil {
		return fmt.Errorf("swapd: listing active swaps: %w", err)
	}
	log.Infof("resuming %d active swap(s) from the index", len(active))

	select {}
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Infof("prometheus metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("metrics server stopped: %v", err)
	}
}
