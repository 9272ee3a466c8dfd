/*
rent.go - Rent computation for one term

PURPOSE:
  Turns a contract snapshot and one billing period into a Rent: which
  properties are billed, for how much, with which discount and VAT, and
  what balance is carried in from the previous term.

FORMULAS:
  preTaxAmount = sum(prorated rents) + sum(prorated expenses)
  taxable      = preTaxAmount + debts - discount
  vat          = round2(taxable * vatRate) + settlement VAT rows
  grandTotal   = round2(taxable * (1 + vatRate)) + settlement VAT rows
  balance      = carry(previous rent)              (see Policy.BalanceCarry)
  newBalance   = balance + grandTotal - payment

  round2 is half-up at the cent. Prorated amounts are already whole cents, so
  grandTotal always equals taxable + vat.

FOLD:
  Terms are computed strictly left to right: each Rent is the "previous"
  input of the next one. fold() makes that threading explicit and rebalance()
  replays it over an existing slice after a posting.

SEE ALSO:
  - billing/proration.go: Partial-period amounts
  - ledger.go: Callers of fold and rebalance
*/
package lease

import (
	"github.com/shopspring/decimal"

	"github.com/warp/rent-engine/billing"
)

// Computer computes rents under a policy. The zero value uses DefaultPolicy.
type Computer struct {
	Policy Policy
}

// ComputeRent computes the rent of the term starting at termDate with the
// default policy. previous is nil for the first term.
func ComputeRent(c Contract, termDate billing.TimePoint, previous *Rent) (Rent, error) {
	if err := billing.ValidateFrequency(c.Frequency); err != nil {
		return Rent{}, err
	}
	boundary := billing.TermBoundary{
		Term:   termDate.Term(),
		Period: billing.PeriodFor(termDate.Start(), c.Frequency),
	}
	return Computer{}.Compute(c, boundary, previous), nil
}

// Compute builds the rent of one term boundary.
func (rc Computer) Compute(c Contract, boundary billing.TermBoundary, previous *Rent) Rent {
	policy := rc.Policy.withDefaults()
	start := boundary.Period.Start

	rent := Rent{
		Term:          boundary.Term,
		Month:         int(start.Month()),
		Year:          start.Year(),
		PreTaxAmounts: []LineItem{},
		Charges:       []LineItem{},
		Discounts:     []Discount{},
		Debts:         []Debt{},
		VATs:          []VAT{},
		Payments:      []Payment{},
	}

	var shares []decimal.Decimal
	if policy.DiscountAllocation == DiscountPerProperty && c.Discount.IsPositive() {
		shares = billing.Split(c.Discount, len(c.Properties))
	}

	billed := 0
	for i, alloc := range c.Properties {
		occupancy := alloc.Occupancy()
		if billing.Fraction(boundary.Period, occupancy).IsZero() {
			continue
		}
		billed++
		name := alloc.Property.Name

		amount := billing.Prorate(alloc.Rent, boundary.Period, occupancy, policy.Proration)
		rent.PreTaxAmounts = append(rent.PreTaxAmounts, LineItem{Property: name, Description: "rent", Amount: amount})
		base := amount

		for _, exp := range alloc.Expenses {
			charge := billing.Prorate(exp.Amount, boundary.Period, occupancy, policy.Proration)
			rent.Charges = append(rent.Charges, LineItem{Property: name, Description: exp.Title, Amount: charge})
			base = base.Add(charge)
		}

		if shares != nil {
			share := billing.Prorate(shares[i], boundary.Period, occupancy, policy.Proration)
			if share.IsPositive() {
				rent.Discounts = append(rent.Discounts, Discount{Origin: OriginContract, Description: name, Amount: share})
				base = base.Sub(share)
			}
		}

		rent.VATs = append(rent.VATs, VAT{
			Origin:      OriginContract,
			Description: name,
			Rate:        c.VATRate,
			Amount:      billing.Round2(base.Mul(c.VATRate)),
		})
	}

	if billed > 0 && shares == nil && c.Discount.IsPositive() {
		rent.Discounts = append(rent.Discounts, Discount{Origin: OriginContract, Description: "contract discount", Amount: c.Discount})
		rent.VATs = append(rent.VATs, VAT{
			Origin:      OriginContract,
			Description: "contract discount",
			Rate:        c.VATRate,
			Amount:      billing.Round2(c.Discount.Mul(c.VATRate)).Neg(),
		})
	}

	settle(&rent, c.VATRate, previous, policy)
	return rent
}

// settle recomputes r.Total from r's rows and the previous term.
func settle(r *Rent, vatRate decimal.Decimal, previous *Rent, policy Policy) {
	rents := billing.SumBy(r.PreTaxAmounts, func(li LineItem) decimal.Decimal { return li.Amount })
	charges := billing.SumBy(r.Charges, func(li LineItem) decimal.Decimal { return li.Amount })
	discount := billing.SumBy(r.Discounts, func(d Discount) decimal.Decimal { return d.Amount })
	debts := billing.SumBy(r.Debts, func(d Debt) decimal.Decimal { return d.Amount })
	adjustments := billing.SumBy(r.VATs, func(v VAT) decimal.Decimal {
		if v.Origin == OriginSettlement {
			return v.Amount
		}
		return decimal.Zero
	})
	payment := billing.SumBy(r.Payments, func(p Payment) decimal.Decimal { return p.Amount })

	preTax := rents.Add(charges)
	taxable := preTax.Add(debts).Sub(discount)

	t := &r.Total
	t.PreTaxAmount = preTax
	t.Charges = charges
	t.Discount = discount
	t.Debts = debts
	t.VAT = billing.Round2(taxable.Mul(vatRate)).Add(adjustments)
	t.GrandTotal = billing.Round2(taxable.Mul(decimal.NewFromInt(1).Add(vatRate))).Add(adjustments)
	t.Payment = payment
	t.Balance = policy.carry(previous)
	t.NewBalance = t.Balance.Add(t.GrandTotal).Sub(t.Payment)
}

// fold computes one rent per boundary, threading each result into the next
// step. seed is the rent preceding the first boundary, nil for a new contract.
func fold(boundaries []billing.TermBoundary, seed *Rent, step func(previous *Rent, b billing.TermBoundary) Rent) []Rent {
	out := make([]Rent, 0, len(boundaries))
	previous := seed
	for _, b := range boundaries {
		out = append(out, step(previous, b))
		previous = &out[len(out)-1]
	}
	return out
}

// rebalance re-settles rents[from:] in order so every opening balance
// reflects the term before it.
func rebalance(rents []Rent, from int, vatRate decimal.Decimal, policy Policy) {
	for i := from; i < len(rents); i++ {
		var previous *Rent
		if i > 0 {
			previous = &rents[i-1]
		}
		settle(&rents[i], vatRate, previous, policy)
	}
}
