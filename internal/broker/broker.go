/*
Package broker is the core side of the bus.

It consumes every command channel, hands each command to a worker chosen by hashing the
symbol (mutations) or the token (reads), runs it against the engine and publishes the
response on the shared response channel. Commands of one symbol therefore run in arrival
order on one worker. The hand-off blocks instead of dropping: a dropped command would
leave its caller waiting for the full timeout. The bus acknowledges a command at hand-off,
so commands still queued on a worker when the process dies are lost and their callers
time out.
*/
package broker

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"marketdata/internal/bus"
	"marketdata/internal/codec"
	"marketdata/internal/engine"
	"marketdata/internal/model"
	"marketdata/internal/model/enum"
	"marketdata/internal/obs"
	"marketdata/internal/schema"
	"marketdata/pkg/exception"
)

// Engine is the set of operations the broker serves.
type Engine interface {
	Save(ctx context.Context, f model.Fields) schema.Result
	Delete(ctx context.Context, symbol, source string) schema.Result
	GetSpecific(ctx context.Context, symbol, source string) (*model.MarketRecord, error)
	GetConsolidated(ctx context.Context, symbol string) (*model.MarketRecord, error)
	GetBatch(ctx context.Context, symbols []*string) ([]*model.MarketRecord, error)
}

// Config controls the worker pool.
type Config struct {
	Workers   int `json:"workers" yaml:"workers"`
	QueueSize int `json:"queueSize" yaml:"queueSize"`
}

// DefaultConfig returns the default worker pool settings.
func DefaultConfig() Config {
	return Config{Workers: 8, QueueSize: 128}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	return c
}

// Broker connects a bus to an engine.
type Broker struct {
	cfg     Config
	bus     bus.Bus
	engine  Engine
	metrics *obs.Metrics
}

// New creates a broker. metrics may be nil.
func New(b bus.Bus, e Engine, cfg Config, metrics *obs.Metrics) *Broker {
	return &Broker{
		cfg:     cfg.withDefaults(),
		bus:     b,
		engine:  e,
		metrics: metrics,
	}
}

// Run serves commands until ctx is done. Commands already handed to a worker are
// finished and answered before Run returns.
func (b *Broker) Run(ctx context.Context) error {
	workers := make([]chan schema.Command, b.cfg.Workers)
	for i := range workers {
		workers[i] = make(chan schema.Command, b.cfg.QueueSize)
	}

	g, gctx := errgroup.WithContext(ctx)
	drainCtx := context.WithoutCancel(ctx)
	for i := range workers {
		ch := workers[i]
		g.Go(func() error {
			for cmd := range ch {
				b.serve(drainCtx, cmd)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range workers {
				close(ch)
			}
		}()
		logs.Infof("broker started, workers: %d, topics: %v", len(workers), enum.CommandTopics())
		return b.bus.Subscribe(gctx, enum.CommandTopics(), func(ctx context.Context, m bus.Message) {
			cmd, err := codec.DecodeCommand(m.Value)
			if err != nil {
				b.metrics.IncUndecodable()
				logs.Errorf("drop undecodable command on %s, err: %+v", m.Topic, err)
				return
			}
			select {
			case workers[shard(cmd, len(workers))] <- cmd:
			case <-ctx.Done():
			}
		})
	})

	return g.Wait()
}

// Handle runs cmd against the engine and builds its response.
func (b *Broker) Handle(ctx context.Context, cmd schema.Command) schema.Response {
	resp := schema.Response{Header: cmd.Reply(time.Now().UnixMilli())}

	switch cmd.Op {
	case enum.OperationUpdate:
		if cmd.Fields == nil {
			resp.Status = invalid()
			break
		}
		res := b.engine.Save(ctx, *cmd.Fields)
		resp.Status = &res
	case enum.OperationDelete:
		res := b.engine.Delete(ctx, cmd.Symbol, cmd.Source)
		resp.Status = &res
	case enum.OperationQuerySpecific:
		rec, err := b.engine.GetSpecific(ctx, cmd.Symbol, cmd.Source)
		resp.Record, resp.Status = rec, readStatus(cmd.Op, err)
	case enum.OperationQueryConsolidated:
		rec, err := b.engine.GetConsolidated(ctx, cmd.Symbol)
		resp.Record, resp.Status = rec, readStatus(cmd.Op, err)
	case enum.OperationQueryBatch:
		batch, err := b.engine.GetBatch(ctx, cmd.Symbols)
		resp.Batch, resp.Status = batch, readStatus(cmd.Op, err)
	default:
		resp.Status = invalid()
	}

	b.metrics.IncHandled(cmd.Op)
	return resp
}

func (b *Broker) serve(ctx context.Context, cmd schema.Command) {
	resp := b.Handle(ctx, cmd)
	payload, err := codec.EncodeResponse(resp)
	if err != nil {
		logs.Errorf("encode response of %s, token: %s, err: %+v", cmd.Op, cmd.Token, err)
		return
	}
	if err := b.bus.Publish(ctx, bus.Message{
		Topic: enum.TopicResponse,
		Key:   []byte(cmd.Token),
		Value: payload,
	}); err != nil {
		logs.Errorf("publish response of %s, token: %s, err: %+v", cmd.Op, cmd.Token, err)
	}
}

func shard(cmd schema.Command, n int) int {
	key := cmd.Token
	if cmd.Op.IsMutation() {
		key = cmd.Key()
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

func invalid() *schema.Result {
	return &schema.Result{Message: engine.MsgInvalid, Kind: string(exception.KindValidation)}
}

func readStatus(op enum.Operation, err error) *schema.Result {
	if err == nil {
		return nil
	}
	res := engine.ReadFailure(op.String(), err)
	return &res
}
