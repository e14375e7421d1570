package gateway

import (
	"context"

	"github.com/yanun0323/errors"

	"marketdata/internal/model"
	"marketdata/internal/schema"
	"marketdata/pkg/exception"
)

// Save stores f. A false Result is a domain failure, not an error.
func (g *Gateway) Save(ctx context.Context, f model.Fields) (schema.Result, error) {
	resp, err := g.call(ctx, schema.NewUpdate("", 0, f))
	if err != nil {
		return schema.Result{}, err
	}
	return statusOf(resp)
}

// Delete removes the record at (symbol, source).
func (g *Gateway) Delete(ctx context.Context, symbol, source string) (schema.Result, error) {
	resp, err := g.call(ctx, schema.NewDelete("", 0, symbol, source))
	if err != nil {
		return schema.Result{}, err
	}
	return statusOf(resp)
}

// GetSpecific returns the record at (symbol, source) or an error wrapping exception.ErrNotFound.
func (g *Gateway) GetSpecific(ctx context.Context, symbol, source string) (model.MarketRecord, error) {
	resp, err := g.call(ctx, schema.NewQuerySpecific("", 0, symbol, source))
	if err != nil {
		return model.MarketRecord{}, err
	}
	return recordOf(resp, symbol, source)
}

// GetConsolidated returns the consolidated record of symbol or an error wrapping exception.ErrNotFound.
func (g *Gateway) GetConsolidated(ctx context.Context, symbol string) (model.MarketRecord, error) {
	resp, err := g.call(ctx, schema.NewQueryConsolidated("", 0, symbol))
	if err != nil {
		return model.MarketRecord{}, err
	}
	return recordOf(resp, symbol, model.SourceConsolidated)
}

// GetBatch returns one consolidated record per entry of symbols, in order. Entries that
// are nil or unmatched come back as nil.
func (g *Gateway) GetBatch(ctx context.Context, symbols []*string) ([]*model.MarketRecord, error) {
	resp, err := g.call(ctx, schema.NewQueryBatch("", 0, symbols))
	if err != nil {
		return nil, err
	}
	if err := failureOf(resp); err != nil {
		return nil, err
	}
	if len(resp.Batch) != len(symbols) {
		return nil, errors.Wrapf(exception.ErrTransport, "batch size mismatch, want: %d, got: %d", len(symbols), len(resp.Batch))
	}
	if resp.Batch == nil {
		return []*model.MarketRecord{}, nil
	}
	return resp.Batch, nil
}

func (g *Gateway) call(ctx context.Context, cmd schema.Command) (schema.Response, error) {
	resp, err := g.Dispatch(ctx, cmd)
	if err != nil {
		return schema.Response{}, err
	}
	if resp.Op != cmd.Op {
		return schema.Response{}, errors.Wrapf(exception.ErrTransport, "response op mismatch, want: %s, got: %s", cmd.Op, resp.Op)
	}
	return resp, nil
}

func statusOf(resp schema.Response) (schema.Result, error) {
	if resp.Status == nil {
		return schema.Result{}, errors.Wrapf(exception.ErrTransport, "%s response without status", resp.Op)
	}
	return *resp.Status, nil
}

// failureOf turns a failed status carried by a read response into an error.
func failureOf(resp schema.Response) error {
	if resp.Status == nil || resp.Status.Success {
		return nil
	}
	kind := exception.Kind(resp.Status.Kind)
	if kind == exception.KindNone {
		kind = exception.KindPersistence
	}
	return errors.Wrap(kind.Err(), resp.Status.Message)
}

func recordOf(resp schema.Response, symbol, source string) (model.MarketRecord, error) {
	if err := failureOf(resp); err != nil {
		return model.MarketRecord{}, err
	}
	if resp.Record == nil {
		return model.MarketRecord{}, errors.Wrapf(exception.ErrNotFound, "symbol: %s, source: %s", symbol, source)
	}
	return *resp.Record, nil
}

