package billing

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// FREQUENCY - Length of one billing period
// =============================================================================

type Frequency string

const (
	FrequencyHours  Frequency = "hours"
	FrequencyDays   Frequency = "days"
	FrequencyWeeks  Frequency = "weeks"
	FrequencyMonths Frequency = "months"
	FrequencyYears  Frequency = "years"
)

// Frequencies lists the supported units in ascending length.
var Frequencies = []Frequency{FrequencyHours, FrequencyDays, FrequencyWeeks, FrequencyMonths, FrequencyYears}

func (f Frequency) Valid() bool {
	for _, known := range Frequencies {
		if f == known {
			return true
		}
	}
	return false
}

// ValidateFrequency returns an UnsupportedFrequency error naming the allowed set.
func ValidateFrequency(f Frequency) error {
	if f.Valid() {
		return nil
	}
	names := make([]string, len(Frequencies))
	for i, known := range Frequencies {
		names[i] = string(known)
	}
	return newError(KindUnsupportedFrequency,
		fmt.Sprintf("unsupported frequency %q, should be one of these %s", f, strings.Join(names, ", ")))
}

// Add moves t forward by n units. Months and years clamp to the last day of
// the target month, so 31/01 + 1 month is 28/02 (or 29/02), not 03/03.
func (f Frequency) Add(t time.Time, n int) time.Time {
	switch f {
	case FrequencyHours:
		return t.Add(time.Duration(n) * time.Hour)
	case FrequencyDays:
		return t.AddDate(0, 0, n)
	case FrequencyWeeks:
		return t.AddDate(0, 0, 7*n)
	case FrequencyMonths:
		return addMonthsClamped(t, n)
	case FrequencyYears:
		return addMonthsClamped(t, 12*n)
	default:
		return t
	}
}

// Granularity is the finest calendar unit a boundary of this frequency needs.
func (f Frequency) Granularity() Granularity {
	if f == FrequencyHours {
		return GranularityHour
	}
	return GranularityDay
}

func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// =============================================================================
// PERIOD - Half-open time window
// =============================================================================

// Period is the window [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) Duration() time.Duration { return p.End.Sub(p.Start) }

// Contains reports whether t falls inside [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Overlap returns how much of p is covered by other.
func (p Period) Overlap(other Period) time.Duration {
	start := p.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := p.End
	if other.End.Before(end) {
		end = other.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

func (p Period) String() string {
	return "[" + p.Start.Format(HourLayout) + ", " + p.End.Format(HourLayout) + ")"
}

// PeriodFor returns the billing period starting at start.
func PeriodFor(start time.Time, f Frequency) Period {
	return Period{Start: start, End: f.Add(start, 1)}
}

// Occupancy converts an inclusive [from, to] date range into a half-open Period.
func Occupancy(from, to TimePoint) Period {
	return Period{Start: from.Start(), End: to.EndExclusive()}
}

// =============================================================================
// TERM SEQUENCER
// =============================================================================

// TermBoundary is one generated billing period.
type TermBoundary struct {
	Term   Term
	Period Period
}

// Date returns the boundary start at the frequency's granularity.
func (b TermBoundary) Date(f Frequency) TimePoint {
	return TimePoint{Time: b.Period.Start, Granularity: f.Granularity()}
}

// GenerateTerms lays out the billing periods of a contract.
//
// Boundaries are begin + k units. The end date is inclusive at its own
// granularity and a boundary is kept while its whole period fits before it;
// the first boundary is always kept. With a termination date, periods that
// start after the termination day are not billed.
func GenerateTerms(begin, end TimePoint, f Frequency, termination *TimePoint) ([]TermBoundary, error) {
	if err := ValidateFrequency(f); err != nil {
		return nil, err
	}
	if !end.After(begin) {
		return nil, newError(KindInvalidDateRange,
			fmt.Sprintf("contract duration is not correct, check begin/end contract date (%s - %s)", begin, end))
	}
	if termination != nil {
		if err := ValidateTermination(begin, end, *termination); err != nil {
			return nil, err
		}
	}

	start := begin.Start()
	limit := end.EndExclusive()

	var boundaries []TermBoundary
	for k := 0; ; k++ {
		periodStart := f.Add(start, k)
		if !periodStart.Before(limit) {
			break
		}
		period := Period{Start: periodStart, End: f.Add(start, k+1)}
		if k > 0 && period.End.After(limit) {
			break
		}
		if termination != nil && !periodStart.Before(termination.EndExclusive()) {
			break
		}
		boundaries = append(boundaries, TermBoundary{Term: TermOf(periodStart), Period: period})
	}
	return boundaries, nil
}

// ValidateTermination checks begin <= termination <= end.
func ValidateTermination(begin, end, termination TimePoint) error {
	if termination.Before(begin) || termination.After(end) {
		return newError(KindTerminationOutOfRange,
			fmt.Sprintf("termination date is out of the contract time frame (%s not in %s - %s)", termination, begin, end))
	}
	return nil
}
