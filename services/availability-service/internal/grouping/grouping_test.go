package grouping

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/civil"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/sessiontype"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/slots"
)

func generate(t *testing.T) []slots.Slot {
	t.Helper()
	c, err := civil.Load("America/New_York")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	now, _ := c.FromCivil(2026, time.March, 12, 0, 0)
	horizon, _ := c.FromCivil(2026, time.March, 24, 0, 0)
	cfg := sessiontype.Config{
		Key:       "intro",
		Duration:  30,
		Days:      []time.Weekday{time.Monday, time.Thursday, time.Sunday},
		StartHour: 9,
		EndHour:   12,
		MaxPerDay: 2,
	}
	return slots.NewGenerator(c, nil).Generate(cfg, slots.Request{Now: now, HorizonEnd: horizon}).Slots
}

func TestGroup_WeeksAndDays(t *testing.T) {
	in := generate(t)
	s := Group(in)

	// Thu 12, Sun 15 | Mon 16, Thu 19, Sun 22 | Mon 23.
	var weeks []string
	for _, w := range s.Weeks {
		var days []string
		for _, d := range w.Days {
			days = append(days, d.Key)
			if len(d.Slots) != 2 {
				t.Fatalf("expected 2 slots on %s, got %d", d.Key, len(d.Slots))
			}
		}
		weeks = append(weeks, w.Key+"="+strings.Join(days, ","))
	}
	want := []string{
		"2026-03-09=2026-03-12,2026-03-15",
		"2026-03-16=2026-03-16,2026-03-19,2026-03-22",
		"2026-03-23=2026-03-23",
	}
	if strings.Join(weeks, " ") != strings.Join(want, " ") {
		t.Fatalf("expected %v, got %v", want, weeks)
	}

	if s.Len() != len(in) {
		t.Fatalf("expected %d slots grouped, got %d", len(in), s.Len())
	}
	w := s.Week("2026-03-16")
	if w == nil || w.Label != "Week of March 16" {
		t.Fatalf("unexpected week %+v", w)
	}
	d := w.Day("2026-03-22")
	if d == nil || d.Label != "Sunday, March 22" {
		t.Fatalf("unexpected day %+v", d)
	}
	if d.Slots[0].TimeLabel != "9:00 AM" || d.Slots[1].TimeLabel != "9:15 AM" {
		t.Fatalf("unexpected slot order %s %s", d.Slots[0].TimeLabel, d.Slots[1].TimeLabel)
	}
}

func TestGroup_PreservesInputOrder(t *testing.T) {
	in := []slots.Slot{
		{WeekKey: "w2", DateKey: "d3", TimeLabel: "a"},
		{WeekKey: "w1", DateKey: "d1", TimeLabel: "b"},
		{WeekKey: "w2", DateKey: "d3", TimeLabel: "c"},
		{WeekKey: "w1", DateKey: "d2", TimeLabel: "d"},
	}
	s := Group(in)
	if len(s.Weeks) != 2 || s.Weeks[0].Key != "w2" || s.Weeks[1].Key != "w1" {
		t.Fatalf("expected first-seen week order, got %+v", s.Weeks)
	}
	if got := s.Week("w2").Day("d3").Slots; len(got) != 2 || got[0].TimeLabel != "a" || got[1].TimeLabel != "c" {
		t.Fatalf("expected slots a,c in d3, got %+v", got)
	}
	if days := s.Week("w1").Days; len(days) != 2 || days[0].Key != "d1" || days[1].Key != "d2" {
		t.Fatalf("expected days d1,d2, got %+v", days)
	}
}

func TestGroup_Empty(t *testing.T) {
	s := Group(nil)
	if s.Len() != 0 || s.Week("x") != nil {
		t.Fatalf("expected empty schedule")
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"weeks":[]}` {
		t.Fatalf("expected empty weeks array, got %s", b)
	}
}
