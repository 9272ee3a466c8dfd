package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rent-engine/billing"
	"github.com/warp/rent-engine/lease"
)

func TestParseContract_FullDocument(t *testing.T) {
	doc := `{
		"name": "Office lease",
		"begin": "01/01/2023",
		"end": "31/12/2023",
		"frequency": "months",
		"discount": "100",
		"vatRate": 0.2,
		"properties": [{
			"entryDate": "01/01/2023",
			"exitDate": "31/12/2023",
			"property": {"name": "Office Space", "price": 1000},
			"rent": 1000,
			"expenses": [{"title": "Maintenance", "amount": "50"}]
		}]
	}`

	name, spec, err := ParseContract([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "Office lease", name)
	assert.Equal(t, billing.FrequencyMonths, spec.Frequency)
	assert.True(t, spec.Begin.Equal(billing.MustParseTimePoint("01/01/2023")))
	assert.Equal(t, "100", spec.Discount.String())
	assert.Equal(t, "0.2", spec.VATRate.String())
	require.Len(t, spec.Properties, 1)
	assert.Equal(t, "Office Space", spec.Properties[0].Property.Name)
	require.Len(t, spec.Properties[0].Expenses, 1)
	assert.Equal(t, "50", spec.Properties[0].Expenses[0].Amount.String())
	assert.Nil(t, spec.Termination)
}

func TestParseContract_PropertyDatesDefaultToContract(t *testing.T) {
	_, spec, err := ParseContract([]byte(MonthlyLeaseJSON("Shop", "01/03/2023", "29/02/2024", "Shop", 800, 0.2)))
	require.NoError(t, err)

	require.Len(t, spec.Properties, 1)
	assert.True(t, spec.Properties[0].EntryDate.Equal(spec.Begin))
	assert.True(t, spec.Properties[0].ExitDate.Equal(spec.End))
}

func TestParseContract_HourlyDates(t *testing.T) {
	_, spec, err := ParseContract([]byte(ParkingHourlyJSON("Parking", "01/01/2023", 2.5)))
	require.NoError(t, err)

	assert.Equal(t, billing.GranularityHour, spec.Begin.Granularity)
	assert.Equal(t, billing.FrequencyHours, spec.Frequency)

	c, err := lease.Ledger{}.Create(spec)
	require.NoError(t, err)
	assert.Len(t, c.Rents, 24)
}

func TestParseContract_ServicedOfficeMatchesReference(t *testing.T) {
	_, spec, err := ParseContract([]byte(ServicedOfficeJSON("HQ", "01/01/2023", "31/12/2023", 1000, 50, 100, 0)))
	require.NoError(t, err)

	c, err := lease.Ledger{}.Create(spec)
	require.NoError(t, err)
	require.Len(t, c.Rents, 12)
	assert.Equal(t, "1380.00", c.Rents[0].Total.GrandTotal.StringFixed(2))
}

func TestParseContract_InvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"not json", `{`, "failed to parse contract JSON"},
		{"unknown field", `{"begin": "01/01/2023", "colour": "red"}`, "colour"},
		{"bad date", `{"begin": "2023-01-01", "end": "31/12/2023"}`, "begin"},
		{"missing end", `{"begin": "01/01/2023"}`, "end is required"},
		{"bad termination", `{"begin": "01/01/2023", "end": "31/12/2023", "termination": "soon"}`, "termination"},
		{
			"nameless property",
			`{"begin": "01/01/2023", "end": "31/12/2023", "properties": [{"rent": 1}]}`,
			"properties[0].property.name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseContract([]byte(tt.doc))

			require.Error(t, err)
			assert.ErrorIs(t, err, billing.ErrInvalidDocument)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseContract_BusinessRulesLeftToLedger(t *testing.T) {
	_, spec, err := ParseContract([]byte(`{"begin": "01/01/2023", "end": "31/12/2023", "frequency": "decades"}`))
	require.NoError(t, err)

	_, err = lease.Ledger{}.Create(spec)
	assert.ErrorIs(t, err, billing.ErrUnsupportedFrequency)
}

func TestParsePatch(t *testing.T) {
	patch, err := ParsePatch([]byte(`{"end": "30/06/2023", "discount": 25}`))
	require.NoError(t, err)

	require.NotNil(t, patch.End)
	assert.True(t, patch.End.Equal(billing.MustParseTimePoint("30/06/2023")))
	require.NotNil(t, patch.Discount)
	assert.Equal(t, "25", patch.Discount.String())
	assert.Nil(t, patch.Begin)
	assert.Nil(t, patch.Frequency)
	assert.Nil(t, patch.Properties)
}

func TestParsePatch_PropertiesNeedDatesWithoutPatchedRange(t *testing.T) {
	_, err := ParsePatch([]byte(`{"properties": [{"property": {"name": "Annex"}, "rent": 100}]}`))

	assert.ErrorIs(t, err, billing.ErrInvalidDocument)
}

func TestParseSettlement(t *testing.T) {
	doc := `{
		"payments": [
			{"date": "15/01/2023", "amount": 500, "type": "check", "reference": "CHK-1"},
			{"date": "20/01/2023", "amount": "1000"}
		],
		"discounts": [{"description": "goodwill", "amount": 10}],
		"debts": [{"description": "late fee", "amount": 20}],
		"vats": [{"description": "correction", "rate": 0.2, "amount": -2}]
	}`

	s, err := ParseSettlement([]byte(doc))
	require.NoError(t, err)

	require.Len(t, s.Payments, 2)
	assert.Equal(t, lease.PaymentCheck, s.Payments[0].Type)
	assert.Equal(t, lease.PaymentTransfer, s.Payments[1].Type, "default type")
	assert.Equal(t, lease.OriginSettlement, s.Discounts[0].Origin)
	assert.Equal(t, "20", s.Debts[0].Amount.String())
	assert.Equal(t, "-2", s.VATs[0].Amount.String())
}

func TestParseSettlement_Invalid(t *testing.T) {
	_, err := ParseSettlement([]byte(`{"payments": [{"date": "15/01/2023", "amount": 1, "type": "bitcoin"}]}`))
	assert.ErrorIs(t, err, billing.ErrInvalidDocument)

	_, err = ParseSettlement([]byte(`{"payments": [{"amount": 1}]}`))
	require.ErrorIs(t, err, billing.ErrInvalidDocument)
	assert.Contains(t, err.Error(), "payments[0].date")
}
