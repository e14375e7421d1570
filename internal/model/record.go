package model

// SourceConsolidated is the reserved source of the derived per-symbol aggregate.
const SourceConsolidated = "CONSOLIDATED"

// MarketRecord is one row of the reference-data store keyed by (Symbol, Source).
type MarketRecord struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	Symbol string `gorm:"size:64;not null;uniqueIndex:idx_market_data_symbol_source,priority:1" json:"symbol"`
	Source string `gorm:"size:64;not null;uniqueIndex:idx_market_data_symbol_source,priority:2" json:"source"`

	LastTradedPrice *float64 `json:"lastTradedPrice"`
	BidPrice        *float64 `json:"bidPrice"`
	MidPrice        *float64 `json:"midPrice"`
	AskPrice        *float64 `json:"askPrice"`
	MarketTimestamp *int64   `gorm:"index" json:"marketTimestamp"`
	DependsOnSymbol *string  `gorm:"size:64;index" json:"dependsOnSymbol"`
	LastCouponDate  *Date    `gorm:"type:date" json:"lastCouponDate"`
	InterestRate    *float64 `json:"interestRate"`
	Volatility      *float64 `json:"volatility"`

	AccruedInterest  float64 `gorm:"not null;default:0" json:"accruedInterest"`
	TheoreticalPrice float64 `gorm:"not null;default:0" json:"theoreticalPrice"`
}

// TableName pins the table name shared with existing deployments.
func (MarketRecord) TableName() string {
	return "market_data"
}

// NewRecord builds a record at (f.Symbol, source) holding the input fields of f.
func NewRecord(f Fields, source string) MarketRecord {
	r := MarketRecord{Symbol: f.Symbol, Source: source}
	r.Merge(f)
	return r
}

// Merge copies every non-nil input field of f into r. Derived fields are untouched.
func (r *MarketRecord) Merge(f Fields) {
	if f.LastTradedPrice != nil {
		r.LastTradedPrice = cloneFloat(f.LastTradedPrice)
	}
	if f.BidPrice != nil {
		r.BidPrice = cloneFloat(f.BidPrice)
	}
	if f.MidPrice != nil {
		r.MidPrice = cloneFloat(f.MidPrice)
	}
	if f.AskPrice != nil {
		r.AskPrice = cloneFloat(f.AskPrice)
	}
	if f.MarketTimestamp != nil {
		ts := *f.MarketTimestamp
		r.MarketTimestamp = &ts
	}
	if f.DependsOnSymbol != nil {
		dep := *f.DependsOnSymbol
		r.DependsOnSymbol = &dep
	}
	if f.LastCouponDate != nil {
		d := *f.LastCouponDate
		r.LastCouponDate = &d
	}
	if f.InterestRate != nil {
		r.InterestRate = cloneFloat(f.InterestRate)
	}
	if f.Volatility != nil {
		r.Volatility = cloneFloat(f.Volatility)
	}
}

// Fields returns the input fields of r as an update payload.
func (r MarketRecord) Fields() Fields {
	return Fields{
		Symbol:          r.Symbol,
		Source:          r.Source,
		LastTradedPrice: r.LastTradedPrice,
		BidPrice:        r.BidPrice,
		MidPrice:        r.MidPrice,
		AskPrice:        r.AskPrice,
		MarketTimestamp: r.MarketTimestamp,
		DependsOnSymbol: r.DependsOnSymbol,
		LastCouponDate:  r.LastCouponDate,
		InterestRate:    r.InterestRate,
		Volatility:      r.Volatility,
	}
}

// Complete reports whether every input field of r is populated.
func (r MarketRecord) Complete() bool {
	return r.LastTradedPrice != nil &&
		r.BidPrice != nil &&
		r.MidPrice != nil &&
		r.AskPrice != nil &&
		r.MarketTimestamp != nil &&
		r.DependsOnSymbol != nil &&
		r.LastCouponDate != nil &&
		r.InterestRate != nil &&
		r.Volatility != nil
}

// Reconsolidate folds ordered into a fresh consolidated record for symbol.
// Each record's non-nil fields overwrite the running aggregate; the fold stops as
// soon as every input field has been populated. Derived fields are left at zero.
func Reconsolidate(symbol string, ordered []MarketRecord) MarketRecord {
	agg := MarketRecord{Symbol: symbol, Source: SourceConsolidated}
	for _, r := range ordered {
		agg.Merge(r.Fields())
		if agg.Complete() {
			break
		}
	}
	return agg
}

func cloneFloat(v *float64) *float64 {
	c := *v
	return &c
}
