package engine

import (
	"context"
	"strings"
	"time"

	"github.com/yanun0323/errors"

	"marketdata/internal/model"
	"marketdata/internal/schema"
	"marketdata/internal/store"
	"marketdata/pkg/exception"
)

// Save merges f into the record at (f.Symbol, f.Source) and into the consolidated record
// of f.Symbol, creating either when absent.
func (e *Engine) Save(ctx context.Context, f model.Fields) schema.Result {
	f.Normalize()
	if err := validateKey(f.Symbol, f.Source); err != nil {
		return toResult("save", err, MsgSaved, MsgSaveFailed)
	}

	err := e.inTx(ctx, f.Symbol, func(tx store.Tx) error {
		return e.save(tx, f, e.now())
	})
	return toResult("save "+f.Symbol+"/"+f.Source, err, MsgSaved, MsgSaveFailed)
}

func (e *Engine) save(tx store.Tx, f model.Fields, now time.Time) error {
	rec, existed, err := tx.Find(f.Symbol, f.Source)
	if err != nil {
		return err
	}
	if existed {
		rec.Merge(f)
	} else {
		rec = model.NewRecord(f, f.Source)
	}
	if err := e.derive(tx, &rec, now); err != nil {
		return err
	}
	if err := tx.Save(&rec); err != nil {
		return err
	}

	cons, ok, err := tx.Find(f.Symbol, model.SourceConsolidated)
	if err != nil {
		return err
	}
	switch {
	case ok:
		cons.Merge(f)
	case existed:
		return errors.Wrapf(exception.ErrConflict, "consolidated record of %s is missing while %s exists", f.Symbol, f.Source)
	default:
		cons = model.NewRecord(f, model.SourceConsolidated)
	}
	if err := e.derive(tx, &cons, now); err != nil {
		return err
	}
	if err := tx.Save(&cons); err != nil {
		return err
	}

	return e.propagate(tx, cons)
}

// Delete removes the record at (symbol, source). Removing the last per-source record of
// symbol removes its consolidated record and detaches every record depending on it;
// otherwise the consolidated record is rebuilt from the remaining sources.
func (e *Engine) Delete(ctx context.Context, symbol, source string) schema.Result {
	symbol, source = strings.TrimSpace(symbol), strings.TrimSpace(source)
	if err := validateKey(symbol, source); err != nil {
		return toResult("delete", err, MsgDeleted, MsgDeleteFailed)
	}

	err := e.inTx(ctx, symbol, func(tx store.Tx) error {
		return e.delete(tx, symbol, source, e.now())
	})
	return toResult("delete "+symbol+"/"+source, err, MsgDeleted, MsgDeleteFailed)
}

func (e *Engine) delete(tx store.Tx, symbol, source string, now time.Time) error {
	exists, err := tx.Exists(symbol, source)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Wrapf(exception.ErrNotFound, "%s/%s", symbol, source)
	}
	if _, err := tx.Delete(symbol, source); err != nil {
		return err
	}

	rest, err := tx.FindOtherSourcesByRecency(symbol)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		if _, err := tx.Delete(symbol, model.SourceConsolidated); err != nil {
			return err
		}
		return e.cascade(tx, symbol)
	}

	return e.reconsolidate(tx, symbol, rest, now)
}

// reconsolidate overwrites the consolidated record of symbol with the fold of ordered.
func (e *Engine) reconsolidate(tx store.Tx, symbol string, ordered []model.MarketRecord, now time.Time) error {
	agg := model.Reconsolidate(symbol, ordered)

	cur, ok, err := tx.Find(symbol, model.SourceConsolidated)
	if err != nil {
		return err
	}
	if ok {
		agg.ID = cur.ID
	}
	if err := e.derive(tx, &agg, now); err != nil {
		return err
	}
	if err := tx.Save(&agg); err != nil {
		return err
	}

	return e.propagate(tx, agg)
}

// cascade detaches every record that depended on the removed consolidated record of symbol.
func (e *Engine) cascade(tx store.Tx, symbol string) error {
	has, err := tx.ExistsDependents(symbol)
	if err != nil || !has {
		return err
	}

	deps, err := tx.FindDependents(symbol)
	if err != nil {
		return err
	}
	for i := range deps {
		deps[i].DependsOnSymbol = nil
		deps[i].TheoreticalPrice = 0
		if err := tx.Save(&deps[i]); err != nil {
			return err
		}
	}
	return nil
}

// propagate recomputes the theoretical price of every record depending on cons.
func (e *Engine) propagate(tx store.Tx, cons model.MarketRecord) error {
	deps, err := tx.FindDependents(cons.Symbol)
	if err != nil {
		return err
	}
	for i := range deps {
		tp := model.TheoreticalPrice(&cons, deps[i].Volatility)
		if deps[i].TheoreticalPrice == tp {
			continue
		}
		deps[i].TheoreticalPrice = tp
		if err := tx.Save(&deps[i]); err != nil {
			return err
		}
	}
	return nil
}

// derive recomputes the derived fields of r against the current consolidated record of
// its dependency.
func (e *Engine) derive(tx store.Tx, r *model.MarketRecord, now time.Time) error {
	var dep *model.MarketRecord
	if r.DependsOnSymbol != nil {
		d, ok, err := tx.FindConsolidated(*r.DependsOnSymbol)
		if err != nil {
			return err
		}
		if ok {
			dep = &d
		}
	}
	r.Derive(dep, now)
	return nil
}
