package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdata/internal/bus"
	"marketdata/internal/gateway"
	"marketdata/internal/model"
	"marketdata/internal/model/enum"
	"marketdata/internal/obs"
	"marketdata/internal/ops"
	"marketdata/pkg/conn"
)

func TestResponseGroupIsUniquePerInstance(t *testing.T) {
	cfg := bus.Config{Driver: "Kafka", GroupID: "marketdata"}

	a := ResponseGroup(cfg)
	b := ResponseGroup(cfg)

	assert.NotEqual(t, a.GroupID, b.GroupID)
	assert.Contains(t, a.GroupID, "marketdata-")
	assert.True(t, a.FromLatest)
	assert.Equal(t, "marketdata", cfg.GroupID)
}

func TestResponseGroupLeavesOtherDrivers(t *testing.T) {
	cfg := bus.Config{Driver: bus.DriverRedis, GroupID: "marketdata"}
	assert.Equal(t, cfg, ResponseGroup(cfg))
}

func TestCoreServesGatewayOverMemoryBus(t *testing.T) {
	cfg := ops.Default()
	cfg.Store = conn.Option{Driver: conn.DriverSQLite, Path: "file:app_core?mode=memory&cache=shared"}

	ctx, cancel := context.WithCancel(context.Background())
	b := bus.NewMemory(64)
	defer b.Close()

	done := make(chan error, 1)
	go func() { done <- Core(ctx, cfg, b, obs.NewMetrics()) }()
	require.Eventually(t, func() bool {
		return b.Subscribers(enum.OperationUpdate.Topic()) == 1
	}, 2*time.Second, time.Millisecond)

	gw := gateway.New(b, gateway.Config{Timeout: time.Second}, nil)
	go func() { _ = gw.Run(ctx) }()
	require.Eventually(t, func() bool {
		return b.Subscribers(enum.TopicResponse) == 1
	}, time.Second, time.Millisecond)

	res, err := gw.Save(ctx, model.Fields{Symbol: "AAPL", Source: "NASDAQ", LastTradedPrice: model.Float(150)})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	rec, err := gw.GetConsolidated(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, model.SourceConsolidated, rec.Source)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("core did not stop")
	}
}

func TestCoreRejectsUnknownStore(t *testing.T) {
	cfg := ops.Default()
	cfg.Store = conn.Option{Driver: "oracle"}

	err := Core(context.Background(), cfg, bus.NewMemory(1), nil)
	assert.Error(t, err)
}
