package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Proration selects how an amount is billed when its occupancy covers only
// part of a billing period.
type Proration string

const (
	// ProrationTime bills amount x covered/period, rounded to the cent.
	ProrationTime Proration = "time"
	// ProrationNone bills the full amount for any overlap.
	ProrationNone Proration = "none"
)

func (p Proration) Valid() bool { return p == "" || p == ProrationTime || p == ProrationNone }

// Fraction is the share of period covered by occupancy, in [0, 1].
func Fraction(period, occupancy Period) decimal.Decimal {
	full := period.Duration()
	if full <= 0 {
		return decimal.Zero
	}
	covered := period.Overlap(occupancy)
	if covered >= full {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(covered / time.Second)).Div(decimal.NewFromInt(int64(full / time.Second)))
}

// Prorate bills amount for the part of period covered by occupancy.
// A full overlap returns amount unchanged; no overlap returns zero.
func Prorate(amount decimal.Decimal, period, occupancy Period, policy Proration) decimal.Decimal {
	fraction := Fraction(period, occupancy)
	switch {
	case fraction.IsZero():
		return decimal.Zero
	case fraction.Equal(decimal.NewFromInt(1)), policy == ProrationNone:
		return amount
	default:
		return Round2(amount.Mul(fraction))
	}
}
