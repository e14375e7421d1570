package store

import (
	"context"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketdata/internal/model"
	"marketdata/pkg/exception"
)

const orderByRecency = "market_timestamp IS NULL, market_timestamp DESC, id ASC"

// Gorm is a Store over a gorm connection.
type Gorm struct {
	db *gorm.DB
}

var _ Store = (*Gorm)(nil)

// NewGorm wraps db.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// EnsureTable creates the record table and its indexes when missing. Existing tables are left untouched.
func (s *Gorm) EnsureTable(ctx context.Context) error {
	m := s.db.WithContext(ctx).Migrator()
	if m.HasTable(&model.MarketRecord{}) {
		return nil
	}
	if err := m.CreateTable(&model.MarketRecord{}); err != nil {
		return persistence(err, "create table")
	}
	return nil
}

func (s *Gorm) Begin(ctx context.Context) (Tx, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, persistence(tx.Error, "begin")
	}
	return &gormTx{tx: tx}, nil
}

func (s *Gorm) Find(ctx context.Context, symbol, source string) (model.MarketRecord, bool, error) {
	return find(s.db.WithContext(ctx), symbol, source)
}

type gormTx struct {
	tx *gorm.DB
}

func (t *gormTx) LockSymbol(symbol string) error {
	if t.tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := t.tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", symbol).Error; err != nil {
		return persistence(err, "lock symbol %s", symbol)
	}
	return nil
}

func (t *gormTx) Exists(symbol, source string) (bool, error) {
	var n int64
	if err := t.tx.Model(&model.MarketRecord{}).
		Where("symbol = ? AND source = ?", symbol, source).
		Count(&n).Error; err != nil {
		return false, persistence(err, "exists %s/%s", symbol, source)
	}
	return n > 0, nil
}

func (t *gormTx) Find(symbol, source string) (model.MarketRecord, bool, error) {
	return find(t.tx.Clauses(clause.Locking{Strength: "UPDATE"}), symbol, source)
}

func (t *gormTx) FindConsolidated(symbol string) (model.MarketRecord, bool, error) {
	return find(t.tx.Clauses(clause.Locking{Strength: "SHARE"}), symbol, model.SourceConsolidated)
}

func (t *gormTx) Save(r *model.MarketRecord) error {
	if err := t.tx.Save(r).Error; err != nil {
		return persistence(err, "save %s/%s", r.Symbol, r.Source)
	}
	return nil
}

func (t *gormTx) Delete(symbol, source string) (bool, error) {
	res := t.tx.Where("symbol = ? AND source = ?", symbol, source).Delete(&model.MarketRecord{})
	if res.Error != nil {
		return false, persistence(res.Error, "delete %s/%s", symbol, source)
	}
	return res.RowsAffected > 0, nil
}

func (t *gormTx) FindOtherSourcesByRecency(symbol string) ([]model.MarketRecord, error) {
	var out []model.MarketRecord
	if err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("symbol = ? AND source <> ?", symbol, model.SourceConsolidated).
		Order(orderByRecency).
		Find(&out).Error; err != nil {
		return nil, persistence(err, "find other sources by recency of %s", symbol)
	}
	return out, nil
}

func (t *gormTx) FindDependents(symbol string) ([]model.MarketRecord, error) {
	var out []model.MarketRecord
	if err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("depends_on_symbol = ?", symbol).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, persistence(err, "find dependents of %s", symbol)
	}
	return out, nil
}

func (t *gormTx) ExistsDependents(symbol string) (bool, error) {
	var n int64
	if err := t.tx.Model(&model.MarketRecord{}).
		Where("depends_on_symbol = ?", symbol).
		Count(&n).Error; err != nil {
		return false, persistence(err, "exists dependents of %s", symbol)
	}
	return n > 0, nil
}

func (t *gormTx) Commit() error {
	if err := t.tx.Commit().Error; err != nil {
		return persistence(err, "commit")
	}
	return nil
}

func (t *gormTx) Rollback() error {
	if err := t.tx.Rollback().Error; err != nil {
		return persistence(err, "rollback")
	}
	return nil
}

func find(db *gorm.DB, symbol, source string) (model.MarketRecord, bool, error) {
	var rec model.MarketRecord
	res := db.Where("symbol = ? AND source = ?", symbol, source).Limit(1).Find(&rec)
	if res.Error != nil {
		return model.MarketRecord{}, false, persistence(res.Error, "find %s/%s", symbol, source)
	}
	return rec, res.RowsAffected > 0, nil
}

func persistence(err error, format string, args ...any) error {
	return errors.Wrapf(exception.ErrPersistence, format+": %v", append(args, err)...)
}
