package lease_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rent-engine/billing"
	"github.com/warp/rent-engine/lease"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func tp(s string) billing.TimePoint { return billing.MustParseTimePoint(s) }

func tpPtr(s string) *billing.TimePoint {
	d := tp(s)
	return &d
}

func dec(s string) decimal.Decimal { return billing.MustParseDecimal(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// assertMoney compares amounts at cent precision.
func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, dec(want).StringFixed(2), got.StringFixed(2), msgAndArgs...)
}

func allocation(name string, rent string, entry, exit string, expenses ...lease.Expense) lease.PropertyAllocation {
	return lease.PropertyAllocation{
		EntryDate: tp(entry),
		ExitDate:  tp(exit),
		Property:  lease.Property{Name: name, Price: dec(rent)},
		Rent:      dec(rent),
		Expenses:  expenses,
	}
}

func expense(title, amount string) lease.Expense {
	return lease.Expense{Title: title, Amount: dec(amount)}
}

// officeSpec is a monthly 2023 lease: 1000 rent + 50 + 100 expenses, 20% VAT.
func officeSpec() lease.Spec {
	return lease.Spec{
		Begin:     tp("01/01/2023"),
		End:       tp("31/12/2023"),
		Frequency: billing.FrequencyMonths,
		Discount:  decimal.Zero,
		VATRate:   dec("0.2"),
		Properties: []lease.PropertyAllocation{
			allocation("Office Space", "1000", "01/01/2023", "31/12/2023",
				expense("Maintenance", "50"), expense("Utilities", "100")),
		},
	}
}

// retailSpec is a three-month lease billed 2400 per term.
func retailSpec() lease.Spec {
	return lease.Spec{
		Begin:     tp("01/01/2023"),
		End:       tp("31/03/2023"),
		Frequency: billing.FrequencyMonths,
		VATRate:   dec("0.2"),
		Properties: []lease.PropertyAllocation{
			allocation("Retail Space", "1800", "01/01/2023", "31/12/2023", expense("Utilities", "200")),
		},
	}
}

func mustCreate(t *testing.T, spec lease.Spec) lease.Contract {
	t.Helper()
	c, err := lease.Ledger{}.Create(spec)
	require.NoError(t, err)
	return c
}

func payment(amount string) lease.Payment {
	return lease.Payment{Date: tp("15/01/2023"), Amount: dec(amount), Type: lease.PaymentTransfer, Reference: "TRF-" + amount}
}

// assertBalanceChain checks the opening balance of every term against the
// term before it.
func assertBalanceChain(t *testing.T, c lease.Contract) {
	t.Helper()
	require.NotEmpty(t, c.Rents)
	assertMoney(t, "0", c.Rents[0].Total.Balance, "first term opens at zero")
	for i := 1; i < len(c.Rents); i++ {
		prev := c.Rents[i-1].Total
		assertMoney(t, prev.GrandTotal.Sub(prev.Payment).String(), c.Rents[i].Total.Balance, "term %d balance", i)
		assert.Less(t, int64(c.Rents[i-1].Term), int64(c.Rents[i].Term), "terms increase at %d", i)
	}
}
