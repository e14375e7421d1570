package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdata/internal/bus"
	"marketdata/internal/engine"
	"marketdata/internal/gateway"
	"marketdata/internal/model"
	"marketdata/internal/model/enum"
	"marketdata/internal/obs"
	"marketdata/internal/schema"
	"marketdata/internal/store"
	"marketdata/pkg/conn"
	"marketdata/pkg/exception"
)

type fakeEngine struct {
	saved   []model.Fields
	readErr error
}

func (f *fakeEngine) Save(_ context.Context, fields model.Fields) schema.Result {
	f.saved = append(f.saved, fields)
	return schema.Result{Success: true, Message: engine.MsgSaved}
}

func (f *fakeEngine) Delete(context.Context, string, string) schema.Result {
	return schema.Result{Message: engine.MsgNotExist, Kind: string(exception.KindNotFound)}
}

func (f *fakeEngine) GetSpecific(_ context.Context, symbol, source string) (*model.MarketRecord, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return &model.MarketRecord{Symbol: symbol, Source: source}, nil
}

func (f *fakeEngine) GetConsolidated(context.Context, string) (*model.MarketRecord, error) {
	return nil, f.readErr
}

func (f *fakeEngine) GetBatch(_ context.Context, symbols []*string) ([]*model.MarketRecord, error) {
	return make([]*model.MarketRecord, len(symbols)), f.readErr
}

func TestHandleShapesResponses(t *testing.T) {
	fe := &fakeEngine{}
	b := New(bus.NewMemory(1), fe, Config{}, nil)
	ctx := context.Background()

	resp := b.Handle(ctx, schema.NewUpdate("t1", 0, model.Fields{Symbol: "AAPL", Source: "NYSE"}))
	assert.Equal(t, "t1", resp.Token)
	assert.Equal(t, enum.OperationUpdate, resp.Op)
	require.NotNil(t, resp.Status)
	assert.True(t, resp.Status.Success)
	require.Len(t, fe.saved, 1)

	resp = b.Handle(ctx, schema.Command{Header: schema.NewHeader("t2", enum.OperationUpdate, 0)})
	require.NotNil(t, resp.Status)
	assert.Equal(t, string(exception.KindValidation), resp.Status.Kind)
	assert.Len(t, fe.saved, 1)

	resp = b.Handle(ctx, schema.NewDelete("t3", 0, "AAPL", "NYSE"))
	assert.Equal(t, engine.MsgNotExist, resp.Status.Message)

	resp = b.Handle(ctx, schema.NewQuerySpecific("t4", 0, "AAPL", "NYSE"))
	assert.Nil(t, resp.Status)
	require.NotNil(t, resp.Record)
	assert.Equal(t, "NYSE", resp.Record.Source)

	resp = b.Handle(ctx, schema.NewQueryConsolidated("t5", 0, "AAPL"))
	assert.Nil(t, resp.Status)
	assert.Nil(t, resp.Record)

	resp = b.Handle(ctx, schema.NewQueryBatch("t6", 0, []*string{nil, nil}))
	assert.Len(t, resp.Batch, 2)

	resp = b.Handle(ctx, schema.Command{Header: schema.NewHeader("t7", enum.Operation(42), 0)})
	assert.Equal(t, "t7", resp.Token)
	assert.Equal(t, string(exception.KindValidation), resp.Status.Kind)

	fe.readErr = errors.New("db gone")
	resp = b.Handle(ctx, schema.NewQuerySpecific("t8", 0, "AAPL", "NYSE"))
	require.NotNil(t, resp.Status)
	assert.False(t, resp.Status.Success)
	assert.Equal(t, string(exception.KindPersistence), resp.Status.Kind)
	assert.Equal(t, engine.MsgReadFailed, resp.Status.Message)
}

func TestShardKeepsSymbolOnOneWorker(t *testing.T) {
	a := schema.NewUpdate("tok-a", 0, model.Fields{Symbol: "AAPL", Source: "NYSE"})
	d := schema.NewDelete("tok-b", 0, "AAPL", "LSE")
	for n := 1; n <= 16; n++ {
		assert.Equal(t, shard(a, n), shard(d, n))
		assert.Less(t, shard(a, n), n)
	}

	seen := make(map[int]struct{})
	for _, tok := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		seen[shard(schema.NewQueryConsolidated(tok, 0, "AAPL"), 8)] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

type stack struct {
	gateway *gateway.Gateway
	bus     *bus.Memory
	metrics *obs.Metrics
}

func newStack(ctx context.Context, t *testing.T) stack {
	t.Helper()
	c, err := conn.New(conn.Option{Driver: conn.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	s := store.NewGorm(c.DB())
	require.NoError(t, s.EnsureTable(ctx))

	metrics := obs.NewMetrics()
	b := bus.NewMemory(256)
	t.Cleanup(func() { _ = b.Close() })

	br := New(b, engine.New(s, engine.WithMetrics(metrics)), Config{Workers: 4}, metrics)
	go func() { _ = br.Run(ctx) }()

	g := gateway.New(b, gateway.Config{Timeout: 5 * time.Second}, metrics)
	go func() { _ = g.Run(ctx) }()

	require.Eventually(t, func() bool {
		if b.Subscribers(enum.TopicResponse) == 0 {
			return false
		}
		for _, topic := range enum.CommandTopics() {
			if b.Subscribers(topic) == 0 {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond)

	return stack{gateway: g, bus: b, metrics: metrics}
}

func TestSaveThenDeleteOverTheBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := newStack(ctx, t)
	g := st.gateway

	res, err := g.Save(ctx, model.Fields{Symbol: "AAPL", Source: "NASDAQ", LastTradedPrice: model.Float(150)})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	res, err = g.Save(ctx, model.Fields{Symbol: "BOND", Source: "OTC", DependsOnSymbol: model.String("AAPL"), Volatility: model.Float(0.1)})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	src, err := g.GetSpecific(ctx, "AAPL", "NASDAQ")
	require.NoError(t, err)
	assert.Equal(t, 150.0, *src.LastTradedPrice)

	cons, err := g.GetConsolidated(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 150.0, *cons.LastTradedPrice)

	batch, err := g.GetBatch(ctx, []*string{model.String("AAPL"), model.String("AAPL")})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, cons, *batch[0])
	assert.Equal(t, *batch[0], *batch[1])

	res, err = g.Delete(ctx, "AAPL", "NASDAQ")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, engine.MsgDeleted, res.Message)

	_, err = g.GetConsolidated(ctx, "AAPL")
	assert.ErrorIs(t, err, exception.ErrNotFound)

	dep, err := g.GetSpecific(ctx, "BOND", "OTC")
	require.NoError(t, err)
	assert.Nil(t, dep.DependsOnSymbol)
	assert.Zero(t, dep.TheoreticalPrice)

	res, err = g.Delete(ctx, "AAPL", "NASDAQ")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, engine.MsgNotExist, res.Message)

	batch, err = g.GetBatch(ctx, []*string{model.String("AAPL"), model.String("AAPL")})
	require.NoError(t, err)
	assert.Equal(t, []*model.MarketRecord{nil, nil}, batch)
}

func TestUndecodableCommandIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := newStack(ctx, t)

	require.NoError(t, st.bus.Publish(ctx, bus.Message{Topic: enum.OperationUpdate.Topic(), Value: []byte("garbage")}))
	require.Eventually(t, func() bool { return st.metrics.Snapshot().Undecodable == 1 }, time.Second, time.Millisecond)

	res, err := st.gateway.Save(ctx, model.Fields{Symbol: "AAPL", Source: "NYSE"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := bus.NewMemory(4)
	br := New(b, &fakeEngine{}, Config{Workers: 2}, nil)

	done := make(chan error, 1)
	go func() { done <- br.Run(ctx) }()
	require.Eventually(t, func() bool { return b.Subscribers(enum.OperationUpdate.Topic()) == 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("broker did not stop")
	}
}

func TestDuplicatedDeliveryIsHarmless(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := conn.New(conn.Option{Driver: conn.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	defer c.Close()
	s := store.NewGorm(c.DB())
	require.NoError(t, s.EnsureTable(ctx))

	inner := bus.NewMemory(256)
	defer inner.Close()
	b, err := bus.NewChaos(inner, bus.ChaosConfig{Seed: 7, DuplicateRate: 1})
	require.NoError(t, err)

	metrics := obs.NewMetrics()
	br := New(b, engine.New(s), Config{Workers: 2}, metrics)
	go func() { _ = br.Run(ctx) }()
	g := gateway.New(b, gateway.Config{Timeout: 5 * time.Second}, metrics)
	go func() { _ = g.Run(ctx) }()
	require.Eventually(t, func() bool {
		return inner.Subscribers(enum.TopicResponse) == 1 && inner.Subscribers(enum.OperationUpdate.Topic()) == 1
	}, time.Second, time.Millisecond)

	res, err := g.Save(ctx, model.Fields{Symbol: "AAPL", Source: "NYSE", LastTradedPrice: model.Float(10)})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	rec, err := g.GetConsolidated(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10.0, *rec.LastTradedPrice)

	require.Eventually(t, func() bool { return metrics.Snapshot().LateResponses >= 2 }, time.Second, time.Millisecond)
	assert.Zero(t, g.Pending())
}
