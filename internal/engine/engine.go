/*
Package engine is the sole reader and writer of the record store.

Every symbol S holds any number of per-source records plus one CONSOLIDATED record
aggregating them. The CONSOLIDATED record exists exactly while at least one per-source
record of S does. Derived fields of every record are recomputed whenever the record or
the CONSOLIDATED record it depends on changes, inside the same transaction.

Mutations of one symbol are serialized three times over: callers shard by symbol, the
engine holds a striped mutex per symbol and the store takes a symbol lock inside the
transaction. Reads go straight to committed data.
*/
package engine

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"marketdata/internal/model"
	"marketdata/internal/obs"
	"marketdata/internal/schema"
	"marketdata/internal/store"
	"marketdata/pkg/exception"
)

const (
	MsgSaved        = "Market data saved successfully."
	MsgDeleted      = "Market data deleted successfully."
	MsgNotExist     = "Market data does not exist."
	MsgInvalid      = "Invalid market data."
	MsgSaveFailed   = "Error saving market data."
	MsgDeleteFailed = "Error deleting market data."
	MsgReadFailed   = "Error reading market data."
)

const lockStripes = 64

// Engine applies saves and deletes atomically and answers reads.
type Engine struct {
	store   store.Store
	metrics *obs.Metrics
	now     func() time.Time

	locks [lockStripes]sync.Mutex
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the clock used for "today" in derived fields.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMetrics records commits and rollbacks in m.
func WithMetrics(m *obs.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine over s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{store: s, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) lock(symbol string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return &e.locks[h.Sum32()%lockStripes]
}

// inTx runs fn as one atomic unit scoped to symbol. Any error or panic rolls back.
func (e *Engine) inTx(ctx context.Context, symbol string, fn func(tx store.Tx) error) (err error) {
	mu := e.lock(symbol)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(exception.ErrPersistence, "panic in transaction of %s: %v", symbol, r)
		}
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			logs.Errorf("rollback %s, err: %+v", symbol, rbErr)
		}
		e.metrics.IncRollback()
	}()

	if err = tx.LockSymbol(symbol); err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	e.metrics.ObserveCommit(time.Since(start))
	return nil
}

func validateKey(symbol, source string) error {
	if symbol == "" {
		return errors.Wrap(exception.ErrValidation, "symbol is required")
	}
	if source == "" {
		return errors.Wrap(exception.ErrValidation, "source is required")
	}
	if strings.EqualFold(source, model.SourceConsolidated) {
		return errors.Wrapf(exception.ErrValidation, "source %s is reserved", model.SourceConsolidated)
	}
	return nil
}

// toResult folds err into a Result. Failure details are logged, not returned.
func toResult(op string, err error, ok, failed string) schema.Result {
	if err == nil {
		return schema.Result{Success: true, Message: ok}
	}

	kind := exception.KindOf(err)
	switch kind {
	case exception.KindValidation:
		return schema.Result{Message: MsgInvalid, Kind: string(kind)}
	case exception.KindNotFound:
		return schema.Result{Message: MsgNotExist, Kind: string(kind)}
	default:
		logs.Errorf("%s failed, err: %+v", op, err)
		return schema.Result{Message: failed, Kind: string(kind)}
	}
}

// ReadFailure folds a read error into the Result carried by a read response.
func ReadFailure(op string, err error) schema.Result {
	return toResult(op, err, "", MsgReadFailed)
}
