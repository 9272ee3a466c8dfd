/*
ledger.go - Contract lifecycle over an ordered list of rents

PURPOSE:
  Implements the lifecycle of a lease contract: Create, Update, Renew,
  Terminate and PayTerm. Each operation takes a Contract value and returns a
  new one, so callers can diff old and new state before persisting.

CRITICAL INVARIANTS:
  1. ALL-OR-NOTHING: an operation either returns a valid Contract or an error;
     the input contract is never modified.
  2. ORDERED: rents are sorted by strictly increasing term id.
  3. CASCADE: whenever a term's amounts change, every later term's opening
     balance is recomputed, left to right.
  4. NO LOST MONEY: payments, settlement discounts, debts and VAT
     adjustments survive Update; an operation that would drop a term holding
     them fails with PaidTermDropped.

EXAMPLE FLOW:
  l := lease.Ledger{}
  c, _ := l.Create(spec)                       // 12 monthly rents
  c, _ = l.PayTerm(c, c.Rents[0].Term, lease.Settlement{Payments: ...})
  c, _ = l.Update(c, lease.Patch{Discount: &d}) // payment kept on term 1
  c, _ = l.Renew(c)                            // 24 rents, Terms still 12
  c, _ = l.Terminate(c, date)                  // rents after date dropped

SEE ALSO:
  - rent.go: Per-term computation and the balance fold
  - billing/period.go: Term sequencer
  - service.go: Load/apply/save with optimistic locking
*/
package lease

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/rent-engine/billing"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger applies lifecycle operations under a billing policy. The zero value
// uses DefaultPolicy.
type Ledger struct {
	Policy Policy
}

func (l Ledger) policy() Policy { return l.Policy.withDefaults() }

func (l Ledger) computer() Computer { return Computer{Policy: l.policy()} }

// Create validates spec and generates every rent of the contract.
func (l Ledger) Create(spec Spec) (Contract, error) {
	if err := validateSpec(spec); err != nil {
		return Contract{}, err
	}
	boundaries, err := billing.GenerateTerms(spec.Begin, spec.End, spec.Frequency, spec.Termination)
	if err != nil {
		return Contract{}, err
	}

	c := Contract{
		Begin:       spec.Begin,
		End:         spec.End,
		Termination: spec.Termination,
		Frequency:   spec.Frequency,
		Discount:    spec.Discount,
		VATRate:     spec.VATRate,
		Properties:  cloneProperties(spec.Properties),
		Terms:       len(boundaries),
	}
	if c.Termination != nil {
		t := *c.Termination
		c.Termination = &t
	}
	c.Rents = l.foldContract(c, boundaries, nil)
	return c, nil
}

// Update merges patch into the contract and regenerates all rents, keeping
// what was posted on each term that still exists.
func (l Ledger) Update(c Contract, patch Patch) (Contract, error) {
	spec := c.Spec()
	if patch.Begin != nil {
		spec.Begin = *patch.Begin
	}
	if patch.End != nil {
		spec.End = *patch.End
	}
	if patch.Termination != nil {
		spec.Termination = patch.Termination
	}
	if patch.Frequency != nil {
		spec.Frequency = *patch.Frequency
	}
	if patch.Discount != nil {
		spec.Discount = *patch.Discount
	}
	if patch.VATRate != nil {
		spec.VATRate = *patch.VATRate
	}
	if patch.Properties != nil {
		spec.Properties = patch.Properties
	}

	next, err := l.Create(spec)
	if err != nil {
		return Contract{}, err
	}
	// Terms is the cycle length; only a new schedule redefines it.
	rescheduled := patch.Begin != nil || patch.End != nil || patch.Frequency != nil || patch.Termination != nil
	if !rescheduled && c.Terms > 0 {
		next.Terms = c.Terms
	}

	fresh := make(map[billing.Term]int, len(next.Rents))
	for i, r := range next.Rents {
		fresh[r.Term] = i
	}
	for _, old := range c.Rents {
		if !old.HasPostedEntries() {
			continue
		}
		i, ok := fresh[old.Term]
		if !ok {
			return Contract{}, billing.NewTermError(billing.KindPaidTermDropped, old.Term,
				"update would drop a term holding payments, discounts or debts")
		}
		reattach(&next.Rents[i], old)
	}
	rebalance(next.Rents, 0, next.VATRate, l.policy())
	return next, nil
}

// reattach copies the entries posted on old onto the freshly computed r.
func reattach(r *Rent, old Rent) {
	r.Payments = append(r.Payments, old.Payments...)
	r.Debts = append(r.Debts, old.Debts...)
	for _, d := range old.Discounts {
		if d.Origin == OriginSettlement {
			r.Discounts = append(r.Discounts, d)
		}
	}
	for _, v := range old.VATs {
		if v.Origin == OriginSettlement {
			r.VATs = append(r.VATs, v)
		}
	}
}

// Renew extends the contract by one more cycle of Terms periods and appends
// the new rents after the existing ones. Terms is unchanged.
func (l Ledger) Renew(c Contract) (Contract, error) {
	if len(c.Rents) == 0 {
		return Contract{}, billing.NewError(billing.KindRentsNotGenerated,
			"cannot renew contract, the rents were not generated")
	}
	if c.Termination != nil {
		return Contract{}, billing.NewError(billing.KindContractTerminated,
			"cannot renew a contract terminated on %s", c.Termination)
	}

	cycle := c.Terms
	if cycle <= 0 {
		cycle = len(c.Rents)
	}
	// Boundaries always count from Begin so renewed terms get the same ids
	// a later Update regenerates.
	end := lastInstant(c.Frequency.Add(c.Begin.Start(), len(c.Rents)+cycle), c.End.Granularity)
	all, err := billing.GenerateTerms(c.Begin, end, c.Frequency, nil)
	if err != nil {
		return Contract{}, err
	}
	last := c.Rents[len(c.Rents)-1].Term
	var boundaries []billing.TermBoundary
	for _, b := range all {
		if b.Term > last {
			boundaries = append(boundaries, b)
		}
	}

	next := c.Clone()
	for i := range next.Properties {
		p := &next.Properties[i]
		if p.ExitDate.AfterOrEqual(c.End) && p.ExitDate.Before(end) {
			p.ExitDate = end
		}
	}
	next.End = end
	next.Rents = append(next.Rents, l.foldContract(next, boundaries, &next.Rents[len(next.Rents)-1])...)
	return next, nil
}

// lastInstant is the inclusive end point just before the exclusive instant t.
func lastInstant(t time.Time, g billing.Granularity) billing.TimePoint {
	if g == billing.GranularityHour {
		return billing.TimePoint{Time: t.Add(-time.Hour), Granularity: g}
	}
	return billing.TimePoint{Time: t.AddDate(0, 0, -1), Granularity: g}
}

// Terminate ends the contract on date. Terms starting after the termination
// day are dropped; the term containing date is kept. Terms becomes the kept
// count, as if the contract had been created with this termination.
func (l Ledger) Terminate(c Contract, date billing.TimePoint) (Contract, error) {
	if len(c.Rents) == 0 {
		return Contract{}, billing.NewError(billing.KindRentsNotGenerated,
			"cannot terminate contract, the rents were not generated")
	}
	if err := billing.ValidateTermination(c.Begin, c.EffectiveEnd(), date); err != nil {
		return Contract{}, err
	}

	limit := date.EndExclusive()
	kept := 0
	for kept < len(c.Rents) && c.Rents[kept].Start().Before(limit) {
		kept++
	}
	for _, dropped := range c.Rents[kept:] {
		if dropped.HasPostedEntries() {
			return Contract{}, billing.NewTermError(billing.KindPaidTermDropped, dropped.Term,
				"termination would drop a term holding payments, discounts or debts")
		}
	}

	next := c.Clone()
	next.Rents = next.Rents[:kept]
	next.Terms = kept
	next.Termination = &date
	return next, nil
}

// PayTerm posts a settlement against one term and cascades the new balance
// to every later term. Entries accumulate over calls.
func (l Ledger) PayTerm(c Contract, term billing.Term, s Settlement) (Contract, error) {
	if len(c.Rents) == 0 {
		return Contract{}, billing.NewError(billing.KindRentsNotGenerated,
			"cannot pay term, the rents were not generated")
	}
	idx := sort.Search(len(c.Rents), func(i int) bool { return c.Rents[i].Term >= term })
	if idx == len(c.Rents) || c.Rents[idx].Term != term {
		return Contract{}, billing.NewTermError(billing.KindTermNotFound, term, "term not found in contract rents")
	}
	if err := validateSettlement(s); err != nil {
		return Contract{}, err
	}

	next := c.Clone()
	r := &next.Rents[idx]
	r.Payments = append(r.Payments, s.Payments...)
	r.Debts = append(r.Debts, s.Debts...)
	for _, d := range s.Discounts {
		if d.Origin == "" {
			d.Origin = OriginSettlement
		}
		r.Discounts = append(r.Discounts, d)
	}
	for _, v := range s.VATs {
		if v.Origin == "" {
			v.Origin = OriginSettlement
		}
		r.VATs = append(r.VATs, v)
	}
	rebalance(next.Rents, idx, next.VATRate, l.policy())
	return next, nil
}

func (l Ledger) foldContract(c Contract, boundaries []billing.TermBoundary, seed *Rent) []Rent {
	rc := l.computer()
	return fold(boundaries, seed, func(previous *Rent, b billing.TermBoundary) Rent {
		return rc.Compute(c, b, previous)
	})
}

// =============================================================================
// VALIDATION
// =============================================================================

var one = decimal.NewFromInt(1)

func validateSpec(spec Spec) error {
	if !spec.End.After(spec.Begin) {
		return billing.NewError(billing.KindInvalidDateRange,
			"contract duration is not correct, check begin/end contract date (%s - %s)", spec.Begin, spec.End)
	}
	if err := billing.ValidateFrequency(spec.Frequency); err != nil {
		return err
	}
	if len(spec.Properties) == 0 {
		return billing.NewError(billing.KindMissingProperties, "properties not defined or empty")
	}
	if spec.Termination != nil {
		if err := billing.ValidateTermination(spec.Begin, spec.End, *spec.Termination); err != nil {
			return err
		}
	}
	if spec.Discount.IsNegative() {
		return billing.NewError(billing.KindInvalidAmount, "discount must not be negative, got %s", spec.Discount)
	}
	if spec.VATRate.IsNegative() || spec.VATRate.GreaterThan(one) {
		return billing.NewError(billing.KindInvalidAmount, "vat rate must be between 0 and 1, got %s", spec.VATRate)
	}
	for _, p := range spec.Properties {
		if p.ExitDate.Before(p.EntryDate) {
			return billing.NewError(billing.KindInvalidDateRange,
				"property %q exits (%s) before it enters (%s)", p.Property.Name, p.ExitDate, p.EntryDate)
		}
		if p.Rent.IsNegative() {
			return billing.NewError(billing.KindInvalidAmount, "property %q rent must not be negative", p.Property.Name)
		}
		for _, e := range p.Expenses {
			if e.Amount.IsNegative() {
				return billing.NewError(billing.KindInvalidAmount,
					"property %q expense %q must not be negative", p.Property.Name, e.Title)
			}
		}
	}
	return nil
}

func validateSettlement(s Settlement) error {
	for _, p := range s.Payments {
		if p.Amount.IsNegative() {
			return billing.NewError(billing.KindInvalidAmount, "payment amount must not be negative, got %s", p.Amount)
		}
	}
	for _, d := range s.Discounts {
		if d.Amount.IsNegative() {
			return billing.NewError(billing.KindInvalidAmount, "discount amount must not be negative, got %s", d.Amount)
		}
	}
	for _, d := range s.Debts {
		if d.Amount.IsNegative() {
			return billing.NewError(billing.KindInvalidAmount, "debt amount must not be negative, got %s", d.Amount)
		}
	}
	return nil
}
