package main

import (
	"context"
	"flag"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"marketdata/internal/app"
	"marketdata/internal/bus"
	"marketdata/internal/obs"
	"marketdata/internal/ops"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON or YAML config")
	listen := flag.String("listen", "", "Override HTTP listen address")
	timeout := flag.Duration("timeout", 0, "Override request timeout")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *timeout > 0 {
		cfg.Gateway.Timeout = *timeout
	}

	stop, err := obs.StartProfiler("marketdata.api", cfg.Profiling)
	if err != nil {
		log.Fatalf("profiler start failed: %v", err)
	}
	defer stop()

	gin.SetMode(gin.ReleaseMode)

	b, err := bus.Open(app.ResponseGroup(cfg.Bus))
	if err != nil {
		log.Fatalf("bus open failed: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		logs.Info("api shutting down")
		cancel()
	}()

	if err := app.API(ctx, cfg, b, obs.NewMetrics()); err != nil && ctx.Err() == nil {
		log.Fatalf("api stopped: %v", err)
	}
}

