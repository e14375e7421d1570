package engine

import (
	"context"
	"strings"

	"github.com/yanun0323/errors"

	"marketdata/internal/model"
	"marketdata/pkg/exception"
)

// GetSpecific returns the record at (symbol, source), or nil when there is none.
func (e *Engine) GetSpecific(ctx context.Context, symbol, source string) (*model.MarketRecord, error) {
	symbol, source = strings.TrimSpace(symbol), strings.TrimSpace(source)
	if symbol == "" || source == "" {
		return nil, errors.Wrap(exception.ErrValidation, "symbol and source are required")
	}
	return e.find(ctx, symbol, source)
}

// GetConsolidated returns the consolidated record of symbol, or nil when there is none.
func (e *Engine) GetConsolidated(ctx context.Context, symbol string) (*model.MarketRecord, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, errors.Wrap(exception.ErrValidation, "symbol is required")
	}
	return e.find(ctx, symbol, model.SourceConsolidated)
}

// GetBatch looks up the consolidated record of each entry independently. The result has
// one slot per entry in input order; nil, blank and unmatched entries yield nil.
func (e *Engine) GetBatch(ctx context.Context, symbols []*string) ([]*model.MarketRecord, error) {
	out := make([]*model.MarketRecord, len(symbols))
	for i, s := range symbols {
		if s == nil {
			continue
		}
		symbol := strings.TrimSpace(*s)
		if symbol == "" {
			continue
		}
		rec, err := e.find(ctx, symbol, model.SourceConsolidated)
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

func (e *Engine) find(ctx context.Context, symbol, source string) (*model.MarketRecord, error) {
	rec, ok, err := e.store.Find(ctx, symbol, source)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
