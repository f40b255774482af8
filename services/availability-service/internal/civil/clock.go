// Package civil converts between absolute instants and wall-clock fields in one fixed
// timezone, and derives the date/week keys used to group slots.
package civil

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"
)

var (
	// ErrNonexistentTime marks a wall-clock time skipped by a forward DST transition.
	ErrNonexistentTime = errors.New("civil time does not exist in zone")
	// ErrAmbiguousTime marks a wall-clock time repeated by a backward DST transition.
	ErrAmbiguousTime = errors.New("civil time is ambiguous in zone")
)

// maxCorrections bounds FromCivil's offset correction passes.
const maxCorrections = 2

// transitionProbe is how far either side of an instant FromCivil looks for a different offset.
const transitionProbe = 24 * time.Hour

// DateTime is the wall-clock reading of an instant, to minute precision.
type DateTime struct {
	Year    int
	Month   time.Month
	Day     int
	Hour    int
	Minute  int
	Weekday time.Weekday
}

func (dt DateTime) Date() Date {
	return Date{Year: dt.Year, Month: dt.Month, Day: dt.Day}
}

// naive places the fields on a zero-offset axis so two readings can be subtracted.
func (dt DateTime) naive() time.Time {
	return time.Date(dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, 0, 0, time.UTC)
}

// ConversionError reports a FromCivil request that does not map to exactly one instant.
type ConversionError struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Zone   string
	// Candidate is the earlier instant for ambiguous times and the last guess otherwise.
	Candidate time.Time
	Err       error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("civil %04d-%02d-%02d %02d:%02d in %s: %v",
		e.Year, int(e.Month), e.Day, e.Hour, e.Minute, e.Zone, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Clock is bound to one location; it holds no other state and is safe for concurrent use.
type Clock struct {
	loc *time.Location
}

func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

// Load resolves an IANA zone name. tzdata is embedded so this works in scratch images.
func Load(name string) (*Clock, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return New(loc), nil
}

func (c *Clock) Location() *time.Location { return c.loc }

func (c *Clock) ToCivil(t time.Time) DateTime {
	lt := t.In(c.loc)
	return DateTime{
		Year:    lt.Year(),
		Month:   lt.Month(),
		Day:     lt.Day(),
		Hour:    lt.Hour(),
		Minute:  lt.Minute(),
		Weekday: lt.Weekday(),
	}
}

// FromCivil returns the instant whose wall-clock reading is the given fields.
//
// The first guess reads the fields as UTC; each pass shifts the guess by the difference
// between the requested and observed readings. Out-of-range fields are normalized the way
// time.Date normalizes them. A reading that still differs after maxCorrections passes was
// skipped by a DST jump and yields ErrNonexistentTime. A reading shared by two instants
// yields the earlier instant together with ErrAmbiguousTime.
func (c *Clock) FromCivil(year int, month time.Month, day, hour, minute int) (time.Time, error) {
	want := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)

	guess := want
	for pass := 0; pass < maxCorrections; pass++ {
		delta := want.Sub(c.ToCivil(guess).naive())
		if delta == 0 {
			break
		}
		guess = guess.Add(delta)
	}

	if !c.ToCivil(guess).naive().Equal(want) {
		return time.Time{}, c.conversionError(want, guess, ErrNonexistentTime)
	}
	if alt, ok := c.alternate(guess, want); ok {
		earlier := guess
		if alt.Before(earlier) {
			earlier = alt
		}
		return earlier, c.conversionError(want, earlier, ErrAmbiguousTime)
	}
	return guess, nil
}

// FromDateTime is FromCivil for a DateTime; Weekday is ignored.
func (c *Clock) FromDateTime(dt DateTime) (time.Time, error) {
	return c.FromCivil(dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute)
}

// alternate looks for a second instant, under a neighbouring offset, that reads as want.
func (c *Clock) alternate(at, want time.Time) (time.Time, bool) {
	_, offset := at.In(c.loc).Zone()
	for _, probe := range []time.Time{at.Add(-transitionProbe), at.Add(transitionProbe)} {
		_, other := probe.In(c.loc).Zone()
		if other == offset {
			continue
		}
		cand := want.Add(-time.Duration(other) * time.Second)
		if !cand.Equal(at) && c.ToCivil(cand).naive().Equal(want) {
			return cand, true
		}
	}
	return time.Time{}, false
}

func (c *Clock) conversionError(want, candidate time.Time, err error) *ConversionError {
	return &ConversionError{
		Year:      want.Year(),
		Month:     want.Month(),
		Day:       want.Day(),
		Hour:      want.Hour(),
		Minute:    want.Minute(),
		Zone:      c.loc.String(),
		Candidate: candidate,
		Err:       err,
	}
}

// StartOfDay is the instant of civil midnight on d.
func (c *Clock) StartOfDay(d Date) (time.Time, error) {
	return c.FromCivil(d.Year, d.Month, d.Day, 0, 0)
}

// Horizon resolves a YYYY-MM-DD horizon date to civil midnight. An ambiguous midnight
// resolves to its earlier instant; a midnight skipped by DST is an error.
func (c *Clock) Horizon(raw string) (time.Time, error) {
	d, err := ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	at, err := c.StartOfDay(d)
	if err != nil && !errors.Is(err, ErrAmbiguousTime) {
		return time.Time{}, err
	}
	return at, nil
}

// DateKey is the civil YYYY-MM-DD of t, used as a grouping key.
func (c *Clock) DateKey(t time.Time) string {
	return c.ToCivil(t).Date().Key()
}

// WeekStart is the Monday that opens the civil week containing t. Sunday belongs to the
// week that started six days earlier.
func (c *Clock) WeekStart(t time.Time) Date {
	dt := c.ToCivil(t)
	back := int(dt.Weekday) - 1
	if dt.Weekday == time.Sunday {
		back = 6
	}
	return dt.Date().AddDays(-back)
}

// WeekKey is the date key of WeekStart(t).
func (c *Clock) WeekKey(t time.Time) string {
	return c.WeekStart(t).Key()
}
