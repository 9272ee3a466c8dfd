package lease

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/rent-engine/billing"
)

// =============================================================================
// POLICY - Adjustable billing rules
// =============================================================================

// DiscountAllocation selects how the standing discount reaches a term.
type DiscountAllocation string

const (
	// DiscountPerTerm applies the whole discount once to every billed term.
	DiscountPerTerm DiscountAllocation = "per_term"
	// DiscountPerProperty splits the discount evenly across the contract's
	// allocations; a share is prorated like the property's rent.
	DiscountPerProperty DiscountAllocation = "per_property"
)

// BalanceCarry selects how a term's opening balance is derived.
type BalanceCarry string

const (
	// CarryTermRemainder opens a term with the previous term's grand total
	// minus its payments.
	CarryTermRemainder BalanceCarry = "term_remainder"
	// CarryRunning opens a term with the previous term's new balance, so
	// arrears accumulate over the whole contract.
	CarryRunning BalanceCarry = "running"
)

// Policy holds the billing rules. The zero value is the default policy.
type Policy struct {
	DiscountAllocation DiscountAllocation `json:"discount_allocation,omitempty"`
	Proration          billing.Proration  `json:"proration,omitempty"`
	BalanceCarry       BalanceCarry       `json:"balance_carry,omitempty"`
}

// DefaultPolicy bills the discount once per term, prorates partial
// occupancy by time and carries each term's unpaid remainder.
func DefaultPolicy() Policy {
	return Policy{
		DiscountAllocation: DiscountPerTerm,
		Proration:          billing.ProrationTime,
		BalanceCarry:       CarryTermRemainder,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.DiscountAllocation == "" {
		p.DiscountAllocation = d.DiscountAllocation
	}
	if p.Proration == "" {
		p.Proration = d.Proration
	}
	if p.BalanceCarry == "" {
		p.BalanceCarry = d.BalanceCarry
	}
	return p
}

func (p Policy) Validate() error {
	switch p.DiscountAllocation {
	case "", DiscountPerTerm, DiscountPerProperty:
	default:
		return fmt.Errorf("unknown discount allocation %q", p.DiscountAllocation)
	}
	if !p.Proration.Valid() {
		return fmt.Errorf("unknown proration %q", p.Proration)
	}
	switch p.BalanceCarry {
	case "", CarryTermRemainder, CarryRunning:
	default:
		return fmt.Errorf("unknown balance carry %q", p.BalanceCarry)
	}
	return nil
}

// carry is the opening balance of the term following prev.
func (p Policy) carry(prev *Rent) decimal.Decimal {
	if prev == nil {
		return decimal.Zero
	}
	if p.BalanceCarry == CarryRunning {
		return prev.Total.NewBalance
	}
	return prev.Total.GrandTotal.Sub(prev.Total.Payment)
}
