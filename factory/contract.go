/*
Package factory provides JSON to Go conversion for lease documents.

PURPOSE:
  Converts the JSON documents accepted by the API and the CLI into
  lease.Spec, lease.Patch and lease.Settlement values. Dates travel as
  "DD/MM/YYYY" (or "DD/MM/YYYY HH:mm" for hourly contracts) and amounts as
  numbers or decimal strings.

JSON SCHEMA (contract):
  {
    "name": "Office lease",
    "begin": "01/01/2023",
    "end": "31/12/2023",
    "frequency": "months",
    "discount": "0",
    "vatRate": "0.2",
    "properties": [
      {
        "entryDate": "01/01/2023",
        "exitDate": "31/12/2023",
        "property": {"name": "Office Space", "price": 1000},
        "rent": 1000,
        "expenses": [{"title": "Maintenance", "amount": 50}]
      }
    ]
  }

DEFAULTS:
  - A property without entryDate enters on the contract begin
  - A property without exitDate leaves on the contract end
  - A payment without type is a transfer

ERRORS:
  Every malformed document is reported as billing.ErrInvalidDocument with
  the offending field in the message. Business rules (date order, amounts,
  frequency) are left to lease.Ledger.

SEE ALSO:
  - lease/types.go: Domain types built here
  - api/handlers.go: HTTP bodies decoded through this package
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/rent-engine/billing"
	"github.com/warp/rent-engine/lease"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ContractJSON is the JSON representation of a new contract.
type ContractJSON struct {
	Name        string          `json:"name"`
	Begin       string          `json:"begin"`
	End         string          `json:"end"`
	Termination string          `json:"termination,omitempty"`
	Frequency   string          `json:"frequency"`
	Discount    decimal.Decimal `json:"discount"`
	VATRate     decimal.Decimal `json:"vatRate"`
	Properties  []PropertyJSON  `json:"properties"`
}

type PropertyJSON struct {
	EntryDate string          `json:"entryDate,omitempty"`
	ExitDate  string          `json:"exitDate,omitempty"`
	Property  PropertyRefJSON `json:"property"`
	Rent      decimal.Decimal `json:"rent"`
	Expenses  []ExpenseJSON   `json:"expenses,omitempty"`
}

type PropertyRefJSON struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type ExpenseJSON struct {
	Title  string          `json:"title"`
	Amount decimal.Decimal `json:"amount"`
}

// PatchJSON lists the contract fields to change. Absent fields are kept.
type PatchJSON struct {
	Begin       *string          `json:"begin,omitempty"`
	End         *string          `json:"end,omitempty"`
	Termination *string          `json:"termination,omitempty"`
	Frequency   *string          `json:"frequency,omitempty"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	VATRate     *decimal.Decimal `json:"vatRate,omitempty"`
	Properties  []PropertyJSON   `json:"properties,omitempty"`
}

// SettlementJSON is what gets posted against one term.
type SettlementJSON struct {
	Payments  []PaymentJSON    `json:"payments,omitempty"`
	Discounts []AdjustmentJSON `json:"discounts,omitempty"`
	Debts     []AdjustmentJSON `json:"debts,omitempty"`
	VATs      []VATJSON        `json:"vats,omitempty"`
}

type PaymentJSON struct {
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type,omitempty"` // cash, check, transfer, levy
	Reference string          `json:"reference,omitempty"`
}

type AdjustmentJSON struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type VATJSON struct {
	Description string          `json:"description"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseContract decodes a contract document into its name and spec.
func ParseContract(data []byte) (string, lease.Spec, error) {
	var cj ContractJSON
	if err := decode(data, &cj, "contract"); err != nil {
		return "", lease.Spec{}, err
	}
	spec, err := cj.Spec()
	return cj.Name, spec, err
}

// ParsePatch decodes a patch document.
func ParsePatch(data []byte) (lease.Patch, error) {
	var pj PatchJSON
	if err := decode(data, &pj, "patch"); err != nil {
		return lease.Patch{}, err
	}
	return pj.Patch()
}

// ParseSettlement decodes a settlement document.
func ParseSettlement(data []byte) (lease.Settlement, error) {
	var sj SettlementJSON
	if err := decode(data, &sj, "settlement"); err != nil {
		return lease.Settlement{}, err
	}
	return sj.Settlement()
}

func decode(data []byte, v any, what string) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return billing.NewError(billing.KindInvalidDocument, "failed to parse %s JSON: %v", what, err)
	}
	return nil
}

// =============================================================================
// CONVERSION
// =============================================================================

// Spec converts the document to a lease.Spec.
func (cj ContractJSON) Spec() (lease.Spec, error) {
	begin, err := parseDate("begin", cj.Begin)
	if err != nil {
		return lease.Spec{}, err
	}
	end, err := parseDate("end", cj.End)
	if err != nil {
		return lease.Spec{}, err
	}
	spec := lease.Spec{
		Begin:     begin,
		End:       end,
		Frequency: billing.Frequency(cj.Frequency),
		Discount:  cj.Discount,
		VATRate:   cj.VATRate,
	}
	if cj.Termination != "" {
		t, err := parseDate("termination", cj.Termination)
		if err != nil {
			return lease.Spec{}, err
		}
		spec.Termination = &t
	}
	spec.Properties, err = parseProperties(cj.Properties, begin, end)
	if err != nil {
		return lease.Spec{}, err
	}
	return spec, nil
}

// Patch converts the document to a lease.Patch. Properties without dates
// default to the patched contract dates when given, otherwise they must
// carry their own.
func (pj PatchJSON) Patch() (lease.Patch, error) {
	var patch lease.Patch
	dates := []struct {
		field string
		raw   *string
		dst   **billing.TimePoint
	}{
		{"begin", pj.Begin, &patch.Begin},
		{"end", pj.End, &patch.End},
		{"termination", pj.Termination, &patch.Termination},
	}
	for _, d := range dates {
		if d.raw == nil {
			continue
		}
		t, err := parseDate(d.field, *d.raw)
		if err != nil {
			return lease.Patch{}, err
		}
		*d.dst = &t
	}
	if pj.Frequency != nil {
		f := billing.Frequency(*pj.Frequency)
		patch.Frequency = &f
	}
	patch.Discount = pj.Discount
	patch.VATRate = pj.VATRate

	if pj.Properties != nil {
		var begin, end billing.TimePoint
		if patch.Begin != nil {
			begin = *patch.Begin
		}
		if patch.End != nil {
			end = *patch.End
		}
		props, err := parseProperties(pj.Properties, begin, end)
		if err != nil {
			return lease.Patch{}, err
		}
		patch.Properties = props
	}
	return patch, nil
}

// Settlement converts the document to a lease.Settlement.
func (sj SettlementJSON) Settlement() (lease.Settlement, error) {
	s := lease.Settlement{
		Payments:  make([]lease.Payment, 0, len(sj.Payments)),
		Discounts: make([]lease.Discount, 0, len(sj.Discounts)),
		Debts:     make([]lease.Debt, 0, len(sj.Debts)),
		VATs:      make([]lease.VAT, 0, len(sj.VATs)),
	}
	for i, pj := range sj.Payments {
		date, err := parseDate(fmt.Sprintf("payments[%d].date", i), pj.Date)
		if err != nil {
			return lease.Settlement{}, err
		}
		typ, err := parsePaymentType(pj.Type)
		if err != nil {
			return lease.Settlement{}, err
		}
		s.Payments = append(s.Payments, lease.Payment{Date: date, Amount: pj.Amount, Type: typ, Reference: pj.Reference})
	}
	for _, dj := range sj.Discounts {
		s.Discounts = append(s.Discounts, lease.Discount{Origin: lease.OriginSettlement, Description: dj.Description, Amount: dj.Amount})
	}
	for _, dj := range sj.Debts {
		s.Debts = append(s.Debts, lease.Debt{Description: dj.Description, Amount: dj.Amount})
	}
	for _, vj := range sj.VATs {
		s.VATs = append(s.VATs, lease.VAT{Origin: lease.OriginSettlement, Description: vj.Description, Rate: vj.Rate, Amount: vj.Amount})
	}
	return s, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func parseDate(field, raw string) (billing.TimePoint, error) {
	if raw == "" {
		return billing.TimePoint{}, billing.NewError(billing.KindInvalidDocument, "%s is required", field)
	}
	t, err := billing.ParseTimePoint(raw)
	if err != nil {
		return billing.TimePoint{}, billing.NewError(billing.KindInvalidDocument, "%s: %v", field, err)
	}
	return t, nil
}

// parseProperties fills missing entry/exit dates from the contract dates.
// A zero default means the date is required.
func parseProperties(pjs []PropertyJSON, begin, end billing.TimePoint) ([]lease.PropertyAllocation, error) {
	if pjs == nil {
		return nil, nil
	}
	out := make([]lease.PropertyAllocation, 0, len(pjs))
	for i, pj := range pjs {
		entry, err := dateOr(fmt.Sprintf("properties[%d].entryDate", i), pj.EntryDate, begin)
		if err != nil {
			return nil, err
		}
		exit, err := dateOr(fmt.Sprintf("properties[%d].exitDate", i), pj.ExitDate, end)
		if err != nil {
			return nil, err
		}
		if pj.Property.Name == "" {
			return nil, billing.NewError(billing.KindInvalidDocument, "properties[%d].property.name is required", i)
		}
		alloc := lease.PropertyAllocation{
			EntryDate: entry,
			ExitDate:  exit,
			Property:  lease.Property{Name: pj.Property.Name, Price: pj.Property.Price},
			Rent:      pj.Rent,
			Expenses:  make([]lease.Expense, 0, len(pj.Expenses)),
		}
		for _, ej := range pj.Expenses {
			alloc.Expenses = append(alloc.Expenses, lease.Expense{Title: ej.Title, Amount: ej.Amount})
		}
		out = append(out, alloc)
	}
	return out, nil
}

func dateOr(field, raw string, fallback billing.TimePoint) (billing.TimePoint, error) {
	if raw == "" && !fallback.IsZero() {
		return fallback, nil
	}
	return parseDate(field, raw)
}

func parsePaymentType(s string) (lease.PaymentType, error) {
	switch lease.PaymentType(s) {
	case "":
		return lease.PaymentTransfer, nil
	case lease.PaymentCash, lease.PaymentCheck, lease.PaymentTransfer, lease.PaymentLevy:
		return lease.PaymentType(s), nil
	default:
		return "", billing.NewError(billing.KindInvalidDocument,
			"unknown payment type %q, should be one of these cash, check, transfer, levy", s)
	}
}
