// Package app assembles the core and api processes from a resolved configuration.
package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"marketdata/internal/api"
	"marketdata/internal/broker"
	"marketdata/internal/bus"
	"marketdata/internal/engine"
	"marketdata/internal/gateway"
	"marketdata/internal/obs"
	"marketdata/internal/ops"
	"marketdata/internal/store"
	"marketdata/pkg/conn"
)

const shutdownTimeout = 5 * time.Second

// Core runs the broker and engine on b until ctx is done.
func Core(ctx context.Context, cfg ops.Loaded, b bus.Bus, metrics *obs.Metrics) error {
	client, err := conn.New(cfg.Store)
	if err != nil {
		return err
	}
	defer client.Close()

	st := store.NewGorm(client.DB())
	if err := st.EnsureTable(ctx); err != nil {
		return err
	}

	eng := engine.New(st, engine.WithMetrics(metrics))
	return broker.New(b, eng, cfg.Broker, metrics).Run(ctx)
}

// API runs the gateway and the HTTP edge on b until ctx is done.
func API(ctx context.Context, cfg ops.Loaded, b bus.Bus, metrics *obs.Metrics) error {
	gw := gateway.New(b, cfg.Gateway, metrics)
	router := api.NewRouter(api.NewHandler(gw), obs.Registry(metrics))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gw.Run(gctx)
	})
	g.Go(func() error {
		return serve(gctx, cfg.Listen, router)
	})
	return g.Wait()
}

// Metrics serves /metrics for m on addr until ctx is done.
func Metrics(ctx context.Context, addr string, m *obs.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(obs.Registry(m), promhttp.HandlerOpts{}))
	return serve(ctx, addr, mux)
}

// ResponseGroup derives a consumer group unique to this api instance: every instance
// must see every response to find the ones it is waiting for.
func ResponseGroup(cfg bus.Config) bus.Config {
	if !strings.EqualFold(strings.TrimSpace(cfg.Driver), bus.DriverKafka) {
		return cfg
	}
	cfg.GroupID = cfg.GroupID + "-" + uuid.NewString()
	cfg.FromLatest = true
	return cfg
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logs.Infof("http listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
