// Package store persists market records and scopes every engine mutation in a transaction.
package store

import (
	"context"

	"marketdata/internal/model"
)

// Store is the record store seen by the engine.
type Store interface {
	// Begin starts a transaction. The caller must Commit or Rollback it.
	Begin(ctx context.Context) (Tx, error)
	// Find reads committed data outside any transaction.
	Find(ctx context.Context, symbol, source string) (model.MarketRecord, bool, error)
}

// Tx is one atomic unit of work. Reads inside a Tx lock the rows they return.
type Tx interface {
	// LockSymbol serializes every transaction touching symbol until this one ends.
	LockSymbol(symbol string) error

	Exists(symbol, source string) (bool, error)
	Find(symbol, source string) (model.MarketRecord, bool, error)
	// FindConsolidated reads the consolidated record of symbol under a shared lock, so it
	// cannot change until this transaction ends.
	FindConsolidated(symbol string) (model.MarketRecord, bool, error)
	// Save inserts r when r.ID is zero and overwrites every column of row r.ID otherwise.
	Save(r *model.MarketRecord) error
	// Delete reports whether a row was removed.
	Delete(symbol, source string) (bool, error)

	// FindOtherSourcesByRecency returns the non-consolidated records of symbol ordered by
	// marketTimestamp descending, missing timestamps last, ties by insertion order.
	FindOtherSourcesByRecency(symbol string) ([]model.MarketRecord, error)
	// FindDependents returns every record whose dependsOnSymbol is symbol.
	FindDependents(symbol string) ([]model.MarketRecord, error)
	ExistsDependents(symbol string) (bool, error)

	Commit() error
	Rollback() error
}
