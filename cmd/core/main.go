package main

import (
	"context"
	"flag"
	"log"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"golang.org/x/sync/errgroup"

	"marketdata/internal/app"
	"marketdata/internal/bus"
	"marketdata/internal/obs"
	"marketdata/internal/ops"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON or YAML config")
	workers := flag.Int("workers", 0, "Override broker worker count")
	metricsAddr := flag.String("metrics-addr", "", "Override metrics listen address")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *workers > 0 {
		cfg.Broker.Workers = *workers
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	stop, err := obs.StartProfiler("marketdata.core", cfg.Profiling)
	if err != nil {
		log.Fatalf("profiler start failed: %v", err)
	}
	defer stop()

	b, err := bus.Open(cfg.Bus)
	if err != nil {
		log.Fatalf("bus open failed: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		logs.Info("core shutting down")
		cancel()
	}()

	metrics := obs.NewMetrics()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Core(gctx, cfg, b, metrics)
	})
	g.Go(func() error {
		return app.Metrics(gctx, cfg.MetricsAddr, metrics)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatalf("core stopped: %v", err)
	}
}
