package billing_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/warp/rent-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func tp(s string) billing.TimePoint { return billing.MustParseTimePoint(s) }

func generate(t *testing.T, begin, end string, f billing.Frequency, termination string) []billing.TermBoundary {
	t.Helper()
	var term *billing.TimePoint
	if termination != "" {
		d := tp(termination)
		term = &d
	}
	terms, err := billing.GenerateTerms(tp(begin), tp(end), f, term)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return terms
}

// =============================================================================
// TERM COUNTS PER FREQUENCY
// =============================================================================

func TestGenerateTerms_Counts(t *testing.T) {
	cases := []struct {
		name  string
		begin string
		end   string
		freq  billing.Frequency
		want  int
	}{
		{"monthly full year", "01/01/2023", "31/12/2023", billing.FrequencyMonths, 12},
		{"monthly end on anniversary", "01/01/2023", "01/01/2024", billing.FrequencyMonths, 12},
		{"yearly", "01/01/2023", "31/12/2025", billing.FrequencyYears, 3},
		{"weekly january", "01/01/2023", "31/01/2023", billing.FrequencyWeeks, 4},
		{"daily ten days", "01/01/2023", "10/01/2023", billing.FrequencyDays, 10},
		{"hourly one day", "01/01/2023 00:00", "01/01/2023 23:00", billing.FrequencyHours, 24},
		{"shorter than one period", "01/01/2023", "10/01/2023", billing.FrequencyMonths, 1},
		{"partial trailing month not billed", "01/01/2023", "15/12/2023", billing.FrequencyMonths, 11},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			terms := generate(t, tc.begin, tc.end, tc.freq, "")
			if len(terms) != tc.want {
				t.Errorf("expected %d terms, got %d", tc.want, len(terms))
			}
		})
	}
}

func TestGenerateTerms_IdentifiersIncreaseAndEncodeStart(t *testing.T) {
	terms := generate(t, "01/01/2023", "31/03/2023", billing.FrequencyMonths, "")

	want := []billing.Term{2023010100, 2023020100, 2023030100}
	if len(terms) != len(want) {
		t.Fatalf("expected %d terms, got %d", len(want), len(terms))
	}
	for i, b := range terms {
		if b.Term != want[i] {
			t.Errorf("term %d: expected %d, got %d", i, want[i], b.Term)
		}
		if i > 0 && terms[i-1].Term >= b.Term {
			t.Errorf("terms not strictly increasing at %d", i)
		}
	}
}

func TestGenerateTerms_MonthEndDoesNotDrift(t *testing.T) {
	// GIVEN: A contract starting on the 31st
	// WHEN: Generating monthly terms
	// THEN: Short months clamp to their last day and later months return to the 31st

	terms := generate(t, "31/01/2023", "30/04/2023", billing.FrequencyMonths, "")

	want := []billing.Term{2023013100, 2023022800, 2023033100}
	if len(terms) != len(want) {
		t.Fatalf("expected %d terms, got %d", len(want), len(terms))
	}
	for i, b := range terms {
		if b.Term != want[i] {
			t.Errorf("term %d: expected %d, got %d", i, want[i], b.Term)
		}
	}
}

func TestGenerateTerms_HourlyIdentifiersCarryHour(t *testing.T) {
	terms := generate(t, "01/01/2023 08:00", "01/01/2023 10:00", billing.FrequencyHours, "")

	if len(terms) != 3 {
		t.Fatalf("expected 3 terms, got %d", len(terms))
	}
	if terms[2].Term != 2023010110 {
		t.Errorf("expected last term 2023010110, got %d", terms[2].Term)
	}
}

// =============================================================================
// TERMINATION
// =============================================================================

func TestGenerateTerms_TerminationTruncates(t *testing.T) {
	terms := generate(t, "01/01/2023", "31/12/2023", billing.FrequencyMonths, "30/06/2023")
	if len(terms) != 6 {
		t.Fatalf("expected 6 terms, got %d", len(terms))
	}
	if terms[5].Term != 2023060100 {
		t.Errorf("expected June to be the last term, got %d", terms[5].Term)
	}
}

func TestGenerateTerms_TerminationMidPeriodBillsContainingTerm(t *testing.T) {
	terms := generate(t, "01/01/2023", "31/12/2023", billing.FrequencyMonths, "15/03/2023")
	if len(terms) != 3 {
		t.Errorf("expected 3 terms (March contains the termination), got %d", len(terms))
	}
}

func TestGenerateTerms_TerminationOutOfRange(t *testing.T) {
	for _, termination := range []string{"01/12/2022", "31/01/2024"} {
		d := tp(termination)
		_, err := billing.GenerateTerms(tp("01/01/2023"), tp("31/12/2023"), billing.FrequencyMonths, &d)
		if !errors.Is(err, billing.ErrTerminationOutOfRange) {
			t.Errorf("%s: expected TerminationOutOfRange, got %v", termination, err)
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestGenerateTerms_UnsupportedFrequency(t *testing.T) {
	_, err := billing.GenerateTerms(tp("01/01/2023"), tp("31/12/2023"), "decades", nil)

	if billing.KindOf(err) != billing.KindUnsupportedFrequency {
		t.Fatalf("expected UnsupportedFrequency, got %v", err)
	}
	if !strings.Contains(err.Error(), "hours, days, weeks, months, years") {
		t.Errorf("message should name the allowed set, got %q", err.Error())
	}
}

func TestGenerateTerms_InvalidDateRange(t *testing.T) {
	for _, dates := range [][2]string{{"31/12/2023", "01/01/2023"}, {"01/01/2023", "01/01/2023"}} {
		_, err := billing.GenerateTerms(tp(dates[0]), tp(dates[1]), billing.FrequencyMonths, nil)
		if !errors.Is(err, billing.ErrInvalidDateRange) {
			t.Errorf("%v: expected InvalidDateRange, got %v", dates, err)
		}
	}
}

func TestGenerateTerms_IsPure(t *testing.T) {
	a := generate(t, "01/01/2023", "31/12/2023", billing.FrequencyWeeks, "")
	b := generate(t, "01/01/2023", "31/12/2023", billing.FrequencyWeeks, "")

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("boundary %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

// =============================================================================
// TIME POINTS AND TERMS
// =============================================================================

func TestTermOf_TruncatesToHour(t *testing.T) {
	a := billing.TermOf(time.Date(2023, time.June, 1, 10, 5, 0, 0, time.UTC))
	b := billing.TermOf(time.Date(2023, time.June, 1, 10, 45, 30, 0, time.UTC))

	if a != b {
		t.Errorf("same hour should give the same term: %d vs %d", a, b)
	}
	if a != 2023060110 {
		t.Errorf("expected 2023060110, got %d", a)
	}
	if !a.Time().Equal(time.Date(2023, time.June, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("round trip failed: %v", a.Time())
	}
}

func TestParseTimePoint(t *testing.T) {
	day := tp("31/12/2023")
	if day.Granularity != billing.GranularityDay || day.String() != "31/12/2023" {
		t.Errorf("unexpected day point %v", day)
	}

	hour := tp("01/06/2023 15:30")
	if hour.Granularity != billing.GranularityHour || hour.Term() != 2023060115 {
		t.Errorf("unexpected hour point %v (term %d)", hour, hour.Term())
	}

	if _, err := billing.ParseTimePoint("31/06/2023"); err == nil {
		t.Error("expected error for a day out of range")
	}
	if _, err := billing.ParseTimePoint("2023-01-01"); err == nil {
		t.Error("expected error for ISO layout")
	}
}

func TestTimePoint_JSONRoundTrip(t *testing.T) {
	in := tp("01/01/2023 09:00")
	data, err := in.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"01/01/2023 09:00"` {
		t.Errorf("unexpected JSON %s", data)
	}

	var out billing.TimePoint
	if err := out.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Equal(in) || out.Granularity != in.Granularity {
		t.Errorf("round trip changed the value: %v", out)
	}
}
