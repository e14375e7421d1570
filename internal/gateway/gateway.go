/*
Package gateway turns fire-and-forget bus messages into awaitable calls.

Each dispatch gets a random correlation token and a one-shot result slot. The command is
published on the channel of its operation and the caller waits until a response carrying
the same token arrives on the shared response channel, the timeout elapses or its context
ends. A slot is resolved at most once and removed on every exit path; responses for tokens
that are no longer pending are dropped.
*/
package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"marketdata/internal/bus"
	"marketdata/internal/codec"
	"marketdata/internal/model/enum"
	"marketdata/internal/obs"
	"marketdata/internal/schema"
	"marketdata/pkg/exception"
)

const defaultTimeout = 5 * time.Second

// Config controls dispatch behavior.
type Config struct {
	Timeout time.Duration
}

// DefaultConfig returns the default gateway settings.
func DefaultConfig() Config {
	return Config{Timeout: defaultTimeout}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Gateway is the caller side of the request/response protocol.
type Gateway struct {
	cfg     Config
	bus     bus.Bus
	pending *pendingTable
	metrics *obs.Metrics

	now      func() time.Time
	newToken func() string
}

// New creates a gateway publishing on b. metrics may be nil.
func New(b bus.Bus, cfg Config, metrics *obs.Metrics) *Gateway {
	return &Gateway{
		cfg:      cfg.withDefaults(),
		bus:      b,
		pending:  newPendingTable(),
		metrics:  metrics,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

// Run consumes the response channel until ctx is done.
func (g *Gateway) Run(ctx context.Context) error {
	logs.Infof("gateway listening on %s, timeout: %s", enum.TopicResponse, g.cfg.Timeout)
	return g.bus.Subscribe(ctx, []string{enum.TopicResponse}, func(_ context.Context, m bus.Message) {
		resp, err := codec.DecodeResponse(m.Value)
		if err != nil {
			g.metrics.IncUndecodable()
			logs.Errorf("drop undecodable response, err: %+v", err)
			return
		}
		g.Resolve(resp)
	})
}

// Pending returns the number of in-flight dispatches.
func (g *Gateway) Pending() int {
	return g.pending.len()
}

// Resolve delivers resp to the caller waiting on its token. It reports false when no
// caller is waiting: the token is unknown, already resolved, timed out or cancelled.
func (g *Gateway) Resolve(resp schema.Response) bool {
	s, ok := g.pending.take(resp.Token)
	if !ok {
		g.metrics.IncLateResponse()
		return false
	}
	s.ch <- resp
	g.metrics.ObserveResolved(g.now().Sub(s.createdAt))
	return true
}

// Dispatch publishes cmd under a fresh token and waits for its response.
//
// The returned error wraps exception.ErrPublish when the command never left,
// exception.ErrTimeout when no response arrived in time, and exception.ErrTransport
// for everything else on the wire.
func (g *Gateway) Dispatch(ctx context.Context, cmd schema.Command) (schema.Response, error) {
	if !cmd.Op.IsAvailable() {
		return schema.Response{}, errors.Wrapf(exception.ErrInvalidArgument, "unknown operation: %d", cmd.Op)
	}

	now := g.now()
	cmd.Header = schema.NewHeader(g.newToken(), cmd.Op, now.UnixMilli())

	s, ok := g.pending.add(cmd.Token, now)
	if !ok {
		return schema.Response{}, errors.Wrapf(exception.ErrTransport, "duplicate token: %s", cmd.Token)
	}
	defer g.pending.remove(cmd.Token)

	payload, err := codec.EncodeCommand(cmd)
	if err != nil {
		return schema.Response{}, errors.Wrap(exception.ErrTransport, err.Error())
	}

	if err := g.bus.Publish(ctx, bus.Message{
		Topic: cmd.Op.Topic(),
		Key:   []byte(cmd.Key()),
		Value: payload,
	}); err != nil {
		g.metrics.IncPublishFailure()
		return schema.Response{}, errors.Wrapf(exception.ErrPublish, "%s: %v", cmd.Op, err)
	}
	g.metrics.IncDispatched(cmd.Op)

	timer := time.NewTimer(g.cfg.Timeout)
	defer timer.Stop()

	select {
	case resp := <-s.ch:
		return resp, nil
	case <-timer.C:
		g.metrics.IncTimeout()
		return schema.Response{}, errors.Wrapf(exception.ErrTimeout, "%s after %s, token: %s", cmd.Op, g.cfg.Timeout, cmd.Token)
	case <-ctx.Done():
		return schema.Response{}, errors.Wrapf(exception.ErrTransport, "%s: %v", cmd.Op, ctx.Err())
	}
}
