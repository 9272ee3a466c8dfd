package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// TIME POINT - Calendar moment with a billing granularity
// =============================================================================

// TimePoint is a UTC moment plus the granularity it was expressed in.
// Contract dates are usually whole days ("31/12/2023"); hourly contracts
// carry an hour ("01/01/2023 10:00").
type TimePoint struct {
	Time        time.Time
	Granularity Granularity
}

type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityHour
)

// Textual layouts used on the wire.
const (
	DayLayout  = "02/01/2006"
	HourLayout = "02/01/2006 15:04"
)

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Granularity: GranularityDay}
}

func NewTimePointWithHour(year int, month time.Month, day, hour int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, hour, 0, 0, 0, time.UTC), Granularity: GranularityHour}
}

// ParseTimePoint accepts "DD/MM/YYYY" or "DD/MM/YYYY HH:mm".
func ParseTimePoint(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(HourLayout, s, time.UTC); err == nil {
		return TimePoint{Time: t, Granularity: GranularityHour}, nil
	}
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return TimePoint{}, fmt.Errorf("invalid date %q, expected DD/MM/YYYY or DD/MM/YYYY HH:mm", s)
	}
	return TimePoint{Time: t, Granularity: GranularityDay}, nil
}

// MustParseTimePoint panics on malformed input. Tests and presets only.
func MustParseTimePoint(s string) TimePoint {
	tp, err := ParseTimePoint(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	t := tp.Time.UTC()
	switch tp.Granularity {
	case GranularityHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Start is the first instant covered by the point.
func (tp TimePoint) Start() time.Time { return tp.normalize() }

// EndExclusive is the first instant after the point: midnight of the next day
// for a day, the next hour for an hour.
func (tp TimePoint) EndExclusive() time.Time {
	if tp.Granularity == GranularityHour {
		return tp.normalize().Add(time.Hour)
	}
	return tp.normalize().AddDate(0, 0, 1)
}

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

// Term returns the YYYYMMDDHH identifier of the point.
func (tp TimePoint) Term() Term { return TermOf(tp.Time) }

func (tp TimePoint) String() string {
	if tp.Granularity == GranularityHour {
		return tp.Time.Format(HourLayout)
	}
	return tp.Time.Format(DayLayout)
}

func (tp TimePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(tp.String())
}

func (tp *TimePoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimePoint(s)
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// =============================================================================
// TERM - Numeric identifier of a billing period
// =============================================================================

// Term identifies a billing period as YYYYMMDDHH, so identifiers sort in
// calendar order.
type Term int64

// TermOf truncates t to the hour and encodes it.
func TermOf(t time.Time) Term {
	t = t.UTC()
	return Term(int64(t.Year())*1_000_000 +
		int64(t.Month())*10_000 +
		int64(t.Day())*100 +
		int64(t.Hour()))
}

// Time decodes the identifier back to the start of its hour.
func (t Term) Time() time.Time {
	v := int64(t)
	hour := int(v % 100)
	day := int(v / 100 % 100)
	month := time.Month(v / 10_000 % 100)
	year := int(v / 1_000_000)
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func (t Term) String() string { return fmt.Sprintf("%d", int64(t)) }
