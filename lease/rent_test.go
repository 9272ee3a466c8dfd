package lease_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rent-engine/billing"
	"github.com/warp/rent-engine/lease"
)

func officeContract() lease.Contract {
	spec := officeSpec()
	return lease.Contract{
		Begin:      spec.Begin,
		End:        spec.End,
		Frequency:  spec.Frequency,
		Discount:   spec.Discount,
		VATRate:    spec.VATRate,
		Properties: spec.Properties,
	}
}

// =============================================================================
// SINGLE PROPERTY
// =============================================================================

func TestComputeRent_TermMonthYear(t *testing.T) {
	r, err := lease.ComputeRent(officeContract(), tp("01/01/2023"), nil)
	require.NoError(t, err)

	assert.Equal(t, billing.Term(2023010100), r.Term)
	assert.Equal(t, 1, r.Month)
	assert.Equal(t, 2023, r.Year)
}

func TestComputeRent_Totals(t *testing.T) {
	r, err := lease.ComputeRent(officeContract(), tp("01/01/2023"), nil)
	require.NoError(t, err)

	assertMoney(t, "1150", r.Total.PreTaxAmount, "rent + expenses")
	assertMoney(t, "150", r.Total.Charges, "expenses only")
	assertMoney(t, "230", r.Total.VAT)
	assertMoney(t, "1380", r.Total.GrandTotal)
	assertMoney(t, "0", r.Total.Balance)
	assertMoney(t, "0", r.Total.Payment)
	assertMoney(t, "1380", r.Total.NewBalance)

	assert.Len(t, r.PreTaxAmounts, 1)
	assert.Len(t, r.Charges, 2)
	assert.Equal(t, "Maintenance", r.Charges[0].Description)
	assert.NotNil(t, r.Payments)
	assert.NotNil(t, r.Debts)
}

func TestComputeRent_ZeroVAT(t *testing.T) {
	c := officeContract()
	c.VATRate = decimal.Zero

	r, err := lease.ComputeRent(c, tp("01/01/2023"), nil)
	require.NoError(t, err)

	assertMoney(t, "0", r.Total.VAT)
	assertMoney(t, "1150", r.Total.GrandTotal)
}

func TestComputeRent_UnsupportedFrequency(t *testing.T) {
	c := officeContract()
	c.Frequency = "fortnights"

	_, err := lease.ComputeRent(c, tp("01/01/2023"), nil)
	assert.ErrorIs(t, err, billing.ErrUnsupportedFrequency)
}

// =============================================================================
// DISCOUNT
// =============================================================================

func TestComputeRent_DiscountBeforeVAT(t *testing.T) {
	c := officeContract()
	c.Discount = dec("100")

	r, err := lease.ComputeRent(c, tp("01/01/2023"), nil)
	require.NoError(t, err)

	assertMoney(t, "1150", r.Total.PreTaxAmount)
	assertMoney(t, "100", r.Total.Discount)
	assertMoney(t, "1260", r.Total.GrandTotal, "(1150-100)*1.2")
	require.Len(t, r.Discounts, 1)
	assert.Equal(t, lease.OriginContract, r.Discounts[0].Origin)
}

func TestComputeRent_MultipleProperties(t *testing.T) {
	c := officeContract()
	c.Discount = dec("50")
	c.Properties = []lease.PropertyAllocation{
		allocation("Office A", "1500", "01/01/2023", "31/12/2023", expense("Maintenance", "75")),
		allocation("Parking Lot", "500", "01/01/2023", "31/12/2023", expense("Security", "25")),
	}

	r, err := lease.ComputeRent(c, tp("01/01/2023"), nil)
	require.NoError(t, err)

	assertMoney(t, "2100", r.Total.PreTaxAmount)
	assertMoney(t, "50", r.Total.Discount, "discount applied once, not per property")
	assertMoney(t, "2460", r.Total.GrandTotal)
	assert.Len(t, r.PreTaxAmounts, 2)
}

func TestComputeRent_DiscountPerProperty(t *testing.T) {
	// GIVEN: Two properties, a 100 discount split per property, the parking
	//        lot leaving at the end of June
	// WHEN: Computing January and July
	// THEN: January gets the whole discount, July only the office's share

	c := officeContract()
	c.VATRate = decimal.Zero
	c.Discount = dec("100")
	c.Properties = []lease.PropertyAllocation{
		allocation("Office", "1000", "01/01/2023", "31/12/2023"),
		allocation("Parking", "500", "01/01/2023", "30/06/2023"),
	}
	rc := lease.Computer{Policy: lease.Policy{DiscountAllocation: lease.DiscountPerProperty}}

	jan := rc.Compute(c, billing.TermBoundary{
		Term:   2023010100,
		Period: billing.PeriodFor(tp("01/01/2023").Start(), billing.FrequencyMonths),
	}, nil)
	jul := rc.Compute(c, billing.TermBoundary{
		Term:   2023070100,
		Period: billing.PeriodFor(tp("01/07/2023").Start(), billing.FrequencyMonths),
	}, nil)

	assertMoney(t, "100", jan.Total.Discount)
	assertMoney(t, "1400", jan.Total.GrandTotal)
	assertMoney(t, "50", jul.Total.Discount)
	assertMoney(t, "950", jul.Total.GrandTotal)
}

// =============================================================================
// OCCUPANCY AND PRORATION
// =============================================================================

func TestComputeRent_PropertyOutsideOccupancyNotBilled(t *testing.T) {
	c := officeContract()
	c.Properties = append(c.Properties, allocation("Annex", "600", "01/07/2023", "31/12/2023"))

	june, err := lease.ComputeRent(c, tp("01/06/2023"), nil)
	require.NoError(t, err)
	assertMoney(t, "1150", june.Total.PreTaxAmount, "annex not billed before entry")

	july, err := lease.ComputeRent(c, tp("01/07/2023"), nil)
	require.NoError(t, err)
	assertMoney(t, "1750", july.Total.PreTaxAmount, "annex billed from entry")
}

func TestComputeRent_MidTermEntryIsProrated(t *testing.T) {
	c := officeContract()
	c.VATRate = decimal.Zero
	c.Properties = []lease.PropertyAllocation{
		allocation("Office", "1000", "01/01/2023", "31/12/2023"),
		allocation("Storage", "600", "16/06/2023", "31/12/2023"),
	}

	june, err := lease.ComputeRent(c, tp("01/06/2023"), nil)
	require.NoError(t, err)

	assertMoney(t, "1300", june.Total.PreTaxAmount, "storage billed 15 of 30 days")
}

func TestComputeRent_NoProrationBillsFullAmount(t *testing.T) {
	c := officeContract()
	c.VATRate = decimal.Zero
	c.Properties = []lease.PropertyAllocation{
		allocation("Storage", "600", "16/06/2023", "31/12/2023"),
	}
	rc := lease.Computer{Policy: lease.Policy{Proration: billing.ProrationNone}}

	june := rc.Compute(c, billing.TermBoundary{
		Term:   2023060100,
		Period: billing.PeriodFor(tp("01/06/2023").Start(), billing.FrequencyMonths),
	}, nil)

	assertMoney(t, "600", june.Total.PreTaxAmount)
}

// =============================================================================
// BALANCE CARRY
// =============================================================================

func TestComputeRent_CarriesPreviousRemainder(t *testing.T) {
	c := officeContract()

	first, err := lease.ComputeRent(c, tp("01/01/2023"), nil)
	require.NoError(t, err)
	second, err := lease.ComputeRent(c, tp("01/02/2023"), &first)
	require.NoError(t, err)

	assertMoney(t, first.Total.GrandTotal.String(), second.Total.Balance)
	assertMoney(t, "2760", second.Total.NewBalance)
}

func TestComputeRent_RunningCarryAccumulates(t *testing.T) {
	c := officeContract()
	rc := lease.Computer{Policy: lease.Policy{BalanceCarry: lease.CarryRunning}}
	boundary := func(date string) billing.TermBoundary {
		start := tp(date)
		return billing.TermBoundary{Term: start.Term(), Period: billing.PeriodFor(start.Start(), billing.FrequencyMonths)}
	}

	r1 := rc.Compute(c, boundary("01/01/2023"), nil)
	r2 := rc.Compute(c, boundary("01/02/2023"), &r1)
	r3 := rc.Compute(c, boundary("01/03/2023"), &r2)

	assertMoney(t, "1380", r2.Total.Balance)
	assertMoney(t, "2760", r3.Total.Balance)
	assert.True(t, r3.Total.NewBalance.GreaterThan(r2.Total.NewBalance))
}
