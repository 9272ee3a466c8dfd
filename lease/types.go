/*
Package lease implements rent billing for property lease contracts.

PURPOSE:
  Wraps the billing primitives with lease-specific rules: which properties
  are occupied during a term, how rents, expenses, discounts and VAT make up
  a term's amount, and how a balance is carried from one term to the next.

KEY CONCEPTS IN THIS FILE (types.go):
  - PropertyAllocation: one property's participation in a contract
  - Discount, Debt, VAT, Payment: events posted against a term
  - Rent: one term of the ledger, with its breakdown rows and Total
  - Contract: the aggregate root holding allocations and the ordered rents

INVARIANTS (Contract):
  1. Rents are sorted by strictly increasing Term
  2. Rents[0].Total.Balance is zero
  3. Rents[i].Total.Balance is carried from Rents[i-1] (see Policy.BalanceCarry)
  4. Lifecycle operations return a new Contract; the input is never mutated

SEE ALSO:
  - rent.go: Rent computation
  - ledger.go: Create, Update, Renew, Terminate, PayTerm
  - service.go: Persistence-backed operations with optimistic locking
*/
package lease

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/rent-engine/billing"
)

// =============================================================================
// PROPERTY ALLOCATION
// =============================================================================

type Property struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Expense struct {
	Title  string          `json:"title"`
	Amount decimal.Decimal `json:"amount"`
}

// PropertyAllocation is one property leased under a contract. The exit day
// is billed.
type PropertyAllocation struct {
	EntryDate billing.TimePoint `json:"entryDate"`
	ExitDate  billing.TimePoint `json:"exitDate"`
	Property  Property          `json:"property"`
	Rent      decimal.Decimal   `json:"rent"`
	Expenses  []Expense         `json:"expenses"`
}

// Occupancy is the half-open window the property is billed for.
func (a PropertyAllocation) Occupancy() billing.Period {
	return billing.Occupancy(a.EntryDate, a.ExitDate)
}

// =============================================================================
// TERM EVENTS
// =============================================================================

type Origin string

const (
	OriginContract   Origin = "contract"   // computed from the contract terms
	OriginSettlement Origin = "settlement" // posted against one term
)

type Discount struct {
	Origin      Origin          `json:"origin"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Debt is an extra charge on a term (late fee, repair). It is taxed.
type Debt struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// VAT rows of contract origin are an informational breakdown; settlement
// rows are adjustments added to the term's VAT and grand total.
type VAT struct {
	Origin      Origin          `json:"origin"`
	Description string          `json:"description"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

type PaymentType string

const (
	PaymentCash     PaymentType = "cash"
	PaymentCheck    PaymentType = "check"
	PaymentTransfer PaymentType = "transfer"
	PaymentLevy     PaymentType = "levy"
)

type Payment struct {
	Date      billing.TimePoint `json:"date"`
	Amount    decimal.Decimal   `json:"amount"`
	Type      PaymentType       `json:"type"`
	Reference string            `json:"reference"`
}

// Settlement groups everything posted against a term in one PayTerm call.
type Settlement struct {
	Payments  []Payment  `json:"payments"`
	Discounts []Discount `json:"discounts"`
	Debts     []Debt     `json:"debts"`
	VATs      []VAT      `json:"vats"`
}

// =============================================================================
// RENT - One term of the ledger
// =============================================================================

// LineItem is one row of a rent breakdown.
type LineItem struct {
	Property    string          `json:"property"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type Total struct {
	Balance      decimal.Decimal `json:"balance"`      // carried in from the previous term
	PreTaxAmount decimal.Decimal `json:"preTaxAmount"` // rents + expenses
	Charges      decimal.Decimal `json:"charges"`      // expenses only
	Discount     decimal.Decimal `json:"discount"`
	Debts        decimal.Decimal `json:"debts"`
	VAT          decimal.Decimal `json:"vat"`
	GrandTotal   decimal.Decimal `json:"grandTotal"`
	Payment      decimal.Decimal `json:"payment"`
	NewBalance   decimal.Decimal `json:"newBalance"`
}

type Rent struct {
	Term          billing.Term `json:"term"`
	Month         int          `json:"month"`
	Year          int          `json:"year"`
	PreTaxAmounts []LineItem   `json:"preTaxAmounts"`
	Charges       []LineItem   `json:"charges"`
	Discounts     []Discount   `json:"discounts"`
	Debts         []Debt       `json:"debts"`
	VATs          []VAT        `json:"vats"`
	Payments      []Payment    `json:"payments"`
	Total         Total        `json:"total"`
}

// Start is the first instant of the term.
func (r Rent) Start() time.Time { return r.Term.Time() }

// HasPostedEntries reports whether anything was recorded against the term
// after it was computed.
func (r Rent) HasPostedEntries() bool {
	if len(r.Payments) > 0 || len(r.Debts) > 0 {
		return true
	}
	for _, d := range r.Discounts {
		if d.Origin == OriginSettlement {
			return true
		}
	}
	for _, v := range r.VATs {
		if v.Origin == OriginSettlement {
			return true
		}
	}
	return false
}

func (r Rent) clone() Rent {
	out := r
	out.PreTaxAmounts = slices.Clone(r.PreTaxAmounts)
	out.Charges = slices.Clone(r.Charges)
	out.Discounts = slices.Clone(r.Discounts)
	out.Debts = slices.Clone(r.Debts)
	out.VATs = slices.Clone(r.VATs)
	out.Payments = slices.Clone(r.Payments)
	return out
}

// =============================================================================
// CONTRACT - Aggregate root
// =============================================================================

// Spec is the input of Create.
type Spec struct {
	Begin       billing.TimePoint    `json:"begin"`
	End         billing.TimePoint    `json:"end"`
	Termination *billing.TimePoint   `json:"termination,omitempty"`
	Frequency   billing.Frequency    `json:"frequency"`
	Discount    decimal.Decimal      `json:"discount"`
	VATRate     decimal.Decimal      `json:"vatRate"`
	Properties  []PropertyAllocation `json:"properties"`
}

// Patch lists the fields Update may change. Nil fields are left as they are.
type Patch struct {
	Begin       *billing.TimePoint   `json:"begin,omitempty"`
	End         *billing.TimePoint   `json:"end,omitempty"`
	Termination *billing.TimePoint   `json:"termination,omitempty"`
	Frequency   *billing.Frequency   `json:"frequency,omitempty"`
	Discount    *decimal.Decimal     `json:"discount,omitempty"`
	VATRate     *decimal.Decimal     `json:"vatRate,omitempty"`
	Properties  []PropertyAllocation `json:"properties,omitempty"`
}

type Contract struct {
	Begin       billing.TimePoint    `json:"begin"`
	End         billing.TimePoint    `json:"end"`
	Termination *billing.TimePoint   `json:"termination,omitempty"`
	Frequency   billing.Frequency    `json:"frequency"`
	Discount    decimal.Decimal      `json:"discount"`
	VATRate     decimal.Decimal      `json:"vatRate"`
	Properties  []PropertyAllocation `json:"properties"`
	Terms       int                  `json:"terms"`
	Rents       []Rent               `json:"rents"`
}

// Spec returns the contract's own parameters.
func (c Contract) Spec() Spec {
	return Spec{
		Begin:       c.Begin,
		End:         c.End,
		Termination: c.Termination,
		Frequency:   c.Frequency,
		Discount:    c.Discount,
		VATRate:     c.VATRate,
		Properties:  c.Properties,
	}
}

// EffectiveEnd is the termination date when set, otherwise End.
func (c Contract) EffectiveEnd() billing.TimePoint {
	if c.Termination != nil {
		return *c.Termination
	}
	return c.End
}

// Balance is what the tenant owes after the last term (negative = credit).
func (c Contract) Balance() decimal.Decimal {
	if len(c.Rents) == 0 {
		return decimal.Zero
	}
	return c.Rents[len(c.Rents)-1].Total.NewBalance
}

// Clone deep-copies the contract.
func (c Contract) Clone() Contract {
	out := c
	if c.Termination != nil {
		t := *c.Termination
		out.Termination = &t
	}
	out.Properties = cloneProperties(c.Properties)
	if c.Rents != nil {
		out.Rents = make([]Rent, len(c.Rents))
		for i, r := range c.Rents {
			out.Rents[i] = r.clone()
		}
	}
	return out
}

func cloneProperties(props []PropertyAllocation) []PropertyAllocation {
	if props == nil {
		return nil
	}
	out := make([]PropertyAllocation, len(props))
	for i, p := range props {
		out[i] = p
		out[i].Expenses = slices.Clone(p.Expenses)
	}
	return out
}
