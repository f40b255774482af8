package slots

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/civil"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/sessiontype"
)

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

func newYork(t *testing.T) *civil.Clock {
	t.Helper()
	c, err := civil.Load("America/New_York")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return c
}

// local builds an instant from New York wall-clock fields known to be unambiguous.
func local(t *testing.T, c *civil.Clock, month time.Month, day, hour, minute int) time.Time {
	t.Helper()
	at, err := c.FromCivil(2026, month, day, hour, minute)
	if err != nil {
		t.Fatalf("from civil: %v", err)
	}
	return at
}

func intro() sessiontype.Config {
	return sessiontype.Config{
		Key:           "intro",
		Duration:      30,
		Buffer:        10,
		Days:          weekdays,
		StartHour:     8,
		EndHour:       16,
		MaxPerDay:     4,
		LeadTimeHours: 4,
	}
}

func labels(c *civil.Clock, slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, c.DateKey(s.Start)+" "+s.TimeLabel)
	}
	return out
}

func TestGenerate_MondayScenario(t *testing.T) {
	c := newYork(t)
	g := NewGenerator(c, nil)

	res := g.Generate(intro(), Request{
		Now:        local(t, c, time.March, 9, 7, 0),
		HorizonEnd: local(t, c, time.March, 10, 0, 0),
		Busy: []busy.Interval{
			{Start: local(t, c, time.March, 9, 9, 0), End: local(t, c, time.March, 9, 9, 30)},
		},
	})

	got := labels(c, res.Slots)
	want := []string{
		"2026-03-09 11:00 AM",
		"2026-03-09 11:15 AM",
		"2026-03-09 11:30 AM",
		"2026-03-09 11:45 AM",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(res.Flagged) != 0 {
		t.Fatalf("expected no flagged candidates, got %+v", res.Flagged)
	}

	first := res.Slots[0]
	if first.End.Sub(first.Start) != 30*time.Minute {
		t.Fatalf("expected 30 minute slot, got %s", first.End.Sub(first.Start))
	}
	if first.DateKey != "2026-03-09" || first.WeekKey != "2026-03-09" {
		t.Fatalf("unexpected keys %q %q", first.DateKey, first.WeekKey)
	}
	if first.DateLabel != "Monday, March 9" || first.WeekLabel != "Week of March 9" || first.EndTimeLabel != "11:30 AM" {
		t.Fatalf("unexpected labels %+v", first)
	}
	if first.CompactStart != "20260309T110000" || first.CompactEnd != "20260309T113000" {
		t.Fatalf("unexpected compact forms %q %q", first.CompactStart, first.CompactEnd)
	}
}

func TestGenerate_BufferedConflict(t *testing.T) {
	c := newYork(t)
	g := NewGenerator(c, nil)
	cfg := intro()
	cfg.LeadTimeHours = 0
	cfg.MaxPerDay = 4

	res := g.Generate(cfg, Request{
		Now:        local(t, c, time.March, 9, 6, 0),
		HorizonEnd: local(t, c, time.March, 10, 0, 0),
		Busy: []busy.Interval{
			{Start: local(t, c, time.March, 9, 9, 0), End: local(t, c, time.March, 9, 9, 30)},
		},
	})

	// Starts from 08:30 through 09:30 overlap the busy block once padded by the buffer.
	want := []string{
		"2026-03-09 8:00 AM",
		"2026-03-09 8:15 AM",
		"2026-03-09 9:45 AM",
		"2026-03-09 10:00 AM",
	}
	if got := labels(c, res.Slots); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestGenerate_WindowEnd(t *testing.T) {
	c := newYork(t)
	g := NewGenerator(c, nil)
	cfg := intro()
	cfg.Duration = 60
	cfg.Buffer = 0
	cfg.LeadTimeHours = 0
	cfg.EndHour, cfg.EndMin = 9, 30
	cfg.MaxPerDay = 10

	res := g.Generate(cfg, Request{
		Now:        local(t, c, time.March, 9, 0, 0),
		HorizonEnd: local(t, c, time.March, 10, 0, 0),
	})
	want := []string{"2026-03-09 8:00 AM", "2026-03-09 8:15 AM", "2026-03-09 8:30 AM"}
	if got := labels(c, res.Slots); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestGenerate_ZeroCapacityAndNoDays(t *testing.T) {
	c := newYork(t)
	g := NewGenerator(c, nil)
	req := Request{
		Now:        local(t, c, time.March, 9, 0, 0),
		HorizonEnd: local(t, c, time.March, 16, 0, 0),
	}

	cfg := intro()
	cfg.MaxPerDay = 0
	if res := g.Generate(cfg, req); len(res.Slots) != 0 {
		t.Fatalf("expected no slots with zero capacity, got %d", len(res.Slots))
	}

	cfg = intro()
	cfg.Days = nil
	if res := g.Generate(cfg, req); len(res.Slots) != 0 {
		t.Fatalf("expected no slots without weekdays, got %d", len(res.Slots))
	}
}

func TestGenerate_WeekdaysAndHorizon(t *testing.T) {
	c := newYork(t)
	g := NewGenerator(c, nil)
	cfg := intro()
	cfg.LeadTimeHours = 0
	cfg.MaxPerDay = 2

	// Thursday the 12th through the horizon at midnight starting Wednesday the 18th.
	res := g.Generate(cfg, Request{
		Now:        local(t, c, time.March, 12, 0, 0),
		HorizonEnd: local(t, c, time.March, 18, 0, 0),
	})

	perDay := map[string]int{}
	for _, s := range res.Slots {
		perDay[s.DateKey]++
	}
	want := map[string]int{"2026-03-12": 2, "2026-03-13": 2, "2026-03-16": 2, "2026-03-17": 2}
	if len(perDay) != len(want) {
		t.Fatalf("expected days %v, got %v", want, perDay)
	}
	for k, n := range want {
		if perDay[k] != n {
			t.Fatalf("expected %d slots on %s, got %d", n, k, perDay[k])
		}
	}
}

func TestGenerate_SpringForwardGap(t *testing.T) {
	c := newYork(t)
	g := NewGenerator(c, nil)
	cfg := sessiontype.Config{
		Key:       "night",
		Duration:  30,
		Days:      []time.Weekday{time.Sunday},
		StartHour: 1,
		EndHour:   4,
		MaxPerDay: 20,
	}

	res := g.Generate(cfg, Request{
		Now:        local(t, c, time.March, 7, 12, 0),
		HorizonEnd: local(t, c, time.March, 9, 0, 0),
	})

	want := []string{
		"2026-03-08 1:00 AM", "2026-03-08 1:15 AM", "2026-03-08 1:30 AM", "2026-03-08 1:45 AM",
		"2026-03-08 3:00 AM", "2026-03-08 3:15 AM", "2026-03-08 3:30 AM",
	}
	if got := labels(c, res.Slots); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(res.Flagged) != 4 {
		t.Fatalf("expected 02:00-02:45 flagged, got %+v", res.Flagged)
	}
	for _, f := range res.Flagged {
		if f.Date != "2026-03-08" || f.Hour != 2 || !strings.Contains(f.Reason, "does not exist") {
			t.Fatalf("unexpected flagged candidate %+v", f)
		}
	}
}

func TestGenerate_FallBackAmbiguity(t *testing.T) {
	c := newYork(t)
	g := NewGenerator(c, nil)
	cfg := sessiontype.Config{
		Key:       "night",
		Duration:  15,
		Days:      []time.Weekday{time.Sunday},
		StartHour: 0,
		EndHour:   3,
		MaxPerDay: 20,
	}

	res := g.Generate(cfg, Request{
		Now:        time.Date(2026, 10, 31, 12, 0, 0, 0, time.UTC),
		HorizonEnd: time.Date(2026, 11, 2, 12, 0, 0, 0, time.UTC),
	})

	if len(res.Flagged) != 4 {
		t.Fatalf("expected 01:00-01:45 flagged ambiguous, got %+v", res.Flagged)
	}
	for _, f := range res.Flagged {
		if f.Hour != 1 || !strings.Contains(f.Reason, "ambiguous") {
			t.Fatalf("unexpected flagged candidate %+v", f)
		}
	}
	// 00:00-00:45 and 02:00-02:45.
	if len(res.Slots) != 8 {
		t.Fatalf("expected 8 slots, got %v", labels(c, res.Slots))
	}
}

func TestGenerate_BusyOrderIrrelevant(t *testing.T) {
	c := newYork(t)
	g := NewGenerator(c, nil)
	cfg := intro()
	cfg.MaxPerDay = 6

	intervals := []busy.Interval{
		{Start: local(t, c, time.March, 10, 13, 0), End: local(t, c, time.March, 10, 14, 0)},
		{Start: local(t, c, time.March, 9, 12, 0), End: local(t, c, time.March, 9, 12, 45)},
		{Start: local(t, c, time.March, 11, 8, 0), End: local(t, c, time.March, 11, 10, 0)},
	}
	reversed := []busy.Interval{intervals[2], intervals[1], intervals[0]}

	req := Request{Now: local(t, c, time.March, 9, 7, 0), HorizonEnd: local(t, c, time.March, 13, 0, 0), Busy: intervals}
	a := g.Generate(cfg, req)
	req.Busy = reversed
	b := g.Generate(cfg, req)

	if strings.Join(labels(c, a.Slots), ",") != strings.Join(labels(c, b.Slots), ",") {
		t.Fatalf("busy order changed output")
	}
}

func TestGenerate_Invariants(t *testing.T) {
	c := newYork(t)
	g := NewGenerator(c, nil)
	rng := rand.New(rand.NewPCG(7, 11))

	now := local(t, c, time.March, 2, 9, 37)
	horizon := local(t, c, time.April, 6, 0, 0)

	var intervals []busy.Interval
	for i := 0; i < 60; i++ {
		start := now.Add(time.Duration(rng.IntN(34*24*60)) * time.Minute)
		intervals = append(intervals, busy.Interval{Start: start, End: start.Add(time.Duration(15+rng.IntN(180)) * time.Minute)})
	}

	configs := []sessiontype.Config{
		intro(),
		{Key: "long", Duration: 90, Buffer: 15, Days: []time.Weekday{time.Tuesday, time.Saturday, time.Sunday}, StartHour: 9, StartMin: 30, EndHour: 18, MaxPerDay: 3, LeadTimeHours: 24},
		{Key: "short", Duration: 20, Buffer: 0, Days: weekdays, StartHour: 7, StartMin: 10, EndHour: 12, EndMin: 5, MaxPerDay: 12, LeadTimeHours: 1},
	}

	for _, cfg := range configs {
		t.Run(cfg.Key, func(t *testing.T) {
			res := g.Generate(cfg, Request{Now: now, HorizonEnd: horizon, Busy: intervals})
			if len(res.Slots) == 0 {
				t.Fatalf("expected some slots")
			}

			perDay := map[string]int{}
			var prev time.Time
			for _, s := range res.Slots {
				if s.End.Sub(s.Start) != cfg.SessionLength() {
					t.Fatalf("%s: wrong length", s.CompactStart)
				}
				if s.Start.Before(now.Add(cfg.LeadTime())) {
					t.Fatalf("%s: violates lead time", s.CompactStart)
				}
				if !prev.IsZero() && s.Start.Before(prev) {
					t.Fatalf("%s: out of order", s.CompactStart)
				}
				prev = s.Start

				start, end := c.ToCivil(s.Start), c.ToCivil(s.End)
				startMin := start.Hour*60 + start.Minute
				endMin := end.Hour*60 + end.Minute
				if startMin < cfg.WindowStartMinutes() || endMin > cfg.WindowEndMinutes() || end.Date() != start.Date() {
					t.Fatalf("%s: outside window", s.CompactStart)
				}
				if (startMin-cfg.WindowStartMinutes())%GridStep != 0 {
					t.Fatalf("%s: off grid", s.CompactStart)
				}
				if !cfg.Allows(start.Weekday) {
					t.Fatalf("%s: weekday %s not allowed", s.CompactStart, start.Weekday)
				}
				for _, b := range intervals {
					if b.Overlaps(s.Start.Add(-cfg.BufferLength()), s.End.Add(cfg.BufferLength())) {
						t.Fatalf("%s: conflicts with busy %s-%s", s.CompactStart, b.Start, b.End)
					}
				}

				perDay[s.DateKey]++
				if perDay[s.DateKey] > cfg.MaxPerDay {
					t.Fatalf("%s: capacity exceeded", s.DateKey)
				}
			}
		})
	}
}
