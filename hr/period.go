package hr

import "time"

// =============================================================================
// PERIOD - Inclusive span of calendar days
// =============================================================================

// Period is used both for pay periods and for leave intervals. Both ends are
// inclusive: a period from March 1 to March 1 is one day long.
type Period struct {
	Start Date
	End   Date
}

func NewPeriod(start, end Date) (Period, error) {
	p := Period{Start: start, End: end}
	return p, p.Validate()
}

// MonthPeriod returns the first through last day of the given month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return &ValidationError{Field: "period", Reason: "start and end are required"}
	}
	if p.End.Before(p.Start) {
		return &ValidationError{Field: "period", Reason: "end must not be before start"}
	}
	return nil
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps reports whether the two periods share at least one day.
func (p Period) Overlaps(o Period) bool {
	return p.Start.BeforeOrEqual(o.End) && o.Start.BeforeOrEqual(p.End)
}

func (p Period) Equal(o Period) bool { return p.Start.Equal(o.Start) && p.End.Equal(o.End) }

// Days returns the inclusive day count.
func (p Period) Days() int { return DaysBetween(p.Start, p.End) + 1 }

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
