package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccruedInterest computes lastTradedPrice * interestRate / days since the last coupon.
// It returns 0 when any input is missing or the coupon date is today.
func AccruedInterest(lastTradedPrice, interestRate *float64, lastCouponDate *Date, today time.Time) float64 {
	if lastTradedPrice == nil || interestRate == nil || lastCouponDate == nil {
		return 0
	}

	days := lastCouponDate.DaysUntil(DateOf(today))
	if days == 0 {
		return 0
	}

	v, _ := decimal.NewFromFloat(*lastTradedPrice).
		Mul(decimal.NewFromFloat(*interestRate)).
		Div(decimal.NewFromInt(days)).
		Float64()
	return v
}

// TheoreticalPrice computes dependency.lastTradedPrice * volatility.
// It returns 0 when the dependency is missing or either factor is nil.
func TheoreticalPrice(dependency *MarketRecord, volatility *float64) float64 {
	if dependency == nil || dependency.LastTradedPrice == nil || volatility == nil {
		return 0
	}

	v, _ := decimal.NewFromFloat(*dependency.LastTradedPrice).
		Mul(decimal.NewFromFloat(*volatility)).
		Float64()
	return v
}

// Derive recomputes both derived fields of r given its dependency's consolidated record.
func (r *MarketRecord) Derive(dependency *MarketRecord, today time.Time) {
	r.AccruedInterest = AccruedInterest(r.LastTradedPrice, r.InterestRate, r.LastCouponDate, today)
	r.TheoreticalPrice = TheoreticalPrice(dependency, r.Volatility)
}
