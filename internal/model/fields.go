package model

import "strings"

// Fields is an update payload. Nil pointers mean "not provided" and never overwrite.
type Fields struct {
	Symbol string `json:"symbol" binding:"required"`
	Source string `json:"source" binding:"required"`

	LastTradedPrice *float64 `json:"lastTradedPrice,omitempty"`
	BidPrice        *float64 `json:"bidPrice,omitempty"`
	MidPrice        *float64 `json:"midPrice,omitempty"`
	AskPrice        *float64 `json:"askPrice,omitempty"`
	MarketTimestamp *int64   `json:"marketTimestamp,omitempty"`
	DependsOnSymbol *string  `json:"dependsOnSymbol,omitempty"`
	LastCouponDate  *Date    `json:"lastCouponDate,omitempty"`
	InterestRate    *float64 `json:"interestRate,omitempty"`
	Volatility      *float64 `json:"volatility,omitempty"`
}

// Normalize trims the key fields in place and drops inputs that carry no value.
func (f *Fields) Normalize() {
	f.Symbol = strings.TrimSpace(f.Symbol)
	f.Source = strings.TrimSpace(f.Source)
	if f.DependsOnSymbol != nil {
		dep := strings.TrimSpace(*f.DependsOnSymbol)
		if dep == "" {
			f.DependsOnSymbol = nil
		} else {
			f.DependsOnSymbol = &dep
		}
	}
	if f.LastCouponDate != nil && f.LastCouponDate.IsZero() {
		f.LastCouponDate = nil
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int64) *int64 {
	return &v
}

// String returns a pointer to v.
func String(v string) *string {
	return &v
}
