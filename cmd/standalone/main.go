// Command standalone runs the core and the api in one process over the in-memory bus.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"golang.org/x/sync/errgroup"

	"marketdata/internal/app"
	"marketdata/internal/bus"
	"marketdata/internal/obs"
	"marketdata/internal/ops"
	"marketdata/pkg/conn"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON or YAML config")
	listen := flag.String("listen", "", "Override HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path (default in-memory)")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	cfg.Bus.Driver = bus.DriverMemory
	if *configPath == "" || *dbPath != "" {
		cfg.Store.Driver = conn.DriverSQLite
		cfg.Store.Path = *dbPath
	}

	gin.SetMode(gin.ReleaseMode)

	b, err := bus.Open(cfg.Bus)
	if err != nil {
		log.Fatalf("bus open failed: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		logs.Info("standalone shutting down")
		cancel()
	}()

	metrics := obs.NewMetrics()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Core(gctx, cfg, b, metrics)
	})
	g.Go(func() error {
		return app.API(gctx, cfg, b, metrics)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatalf("standalone stopped: %v", err)
	}
}
