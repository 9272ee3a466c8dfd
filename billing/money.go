/*
Package billing provides the domain-agnostic core of the rent engine.

PURPOSE:
  Calendar and money primitives shared by every recurring-billing domain:
  laying out billing periods, identifying them, prorating amounts over
  partial periods and rounding to the cent. The package knows nothing about
  leases, properties or tenants.

KEY CONCEPTS:
  - TimePoint: a date (or date and hour) as written on a contract
  - Frequency: the length of one billing period
  - Term: YYYYMMDDHH identifier of a billing period
  - TermBoundary: one generated period, produced by GenerateTerms
  - Money helpers: decimal.Decimal with half-up cent rounding

DESIGN PRINCIPLES:
  1. Pure functions: no clock, no randomness, no I/O
  2. Precision: decimal.Decimal for every amount
  3. Typed errors: every failure carries a Kind (see errors.go)

USAGE:
  begin := billing.MustParseTimePoint("01/01/2023")
  end := billing.MustParseTimePoint("31/12/2023")
  terms, err := billing.GenerateTerms(begin, end, billing.FrequencyMonths, nil)

SEE ALSO:
  - period.go: Frequency, Period and the term sequencer
  - proration.go: Partial-period amounts
  - lease/: Rent computation and the contract ledger built on this package
*/
package billing

import (
	"github.com/shopspring/decimal"
)

var (
	cent    = decimal.New(1, -2)
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// Round2 rounds half-up at the cent: 0.125 -> 0.13, -0.125 -> -0.12.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Mul(hundred).Add(half).Floor().Mul(cent)
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// SumBy adds f(x) over xs.
func SumBy[T any](xs []T, f func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, x := range xs {
		total = total.Add(f(x))
	}
	return total
}

// MustParseDecimal panics on malformed input. Tests and presets only.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Split divides amount into n cent-rounded shares; the last share absorbs the
// rounding remainder so the shares add up to amount exactly.
func Split(amount decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	shares := make([]decimal.Decimal, n)
	share := Round2(amount.Div(decimal.NewFromInt(int64(n))))
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = share
		allocated = allocated.Add(share)
	}
	shares[n-1] = amount.Sub(allocated)
	return shares
}
