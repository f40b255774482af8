// Package busy supplies the committed time a calendar already holds. Everything here is a
// boundary adapter: intervals leave this package validated and fully resolved.
package busy

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidInterval = errors.New("busy interval must end after it starts")

// Interval is a half-open [Start, End) span of committed time.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (i Interval) Validate() error {
	if i.Start.IsZero() || i.End.IsZero() {
		return fmt.Errorf("%w: missing bound", ErrInvalidInterval)
	}
	if !i.End.After(i.Start) {
		return fmt.Errorf("%w: %s >= %s", ErrInvalidInterval, i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
	}
	return nil
}

// Overlaps reports whether [start, end) intersects i.
func (i Interval) Overlaps(start, end time.Time) bool {
	return start.Before(i.End) && i.Start.Before(end)
}

// Source returns every interval that may intersect [from, to). Implementations may return
// more than that, in any order, but never less.
type Source interface {
	Busy(ctx context.Context, from, to time.Time) ([]Interval, error)
}

// Static serves a fixed snapshot.
type Static []Interval

func (s Static) Busy(_ context.Context, _, _ time.Time) ([]Interval, error) {
	out := make([]Interval, len(s))
	copy(out, s)
	return out, nil
}

// Multi concatenates several sources; any failure fails the whole snapshot.
type Multi []Source

func (m Multi) Busy(ctx context.Context, from, to time.Time) ([]Interval, error) {
	var out []Interval
	for _, src := range m {
		part, err := src.Busy(ctx, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}
