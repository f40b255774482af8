// Package grouping arranges an ordered slot list into weeks and days for rendering.
package grouping

import (
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/slots"
)

// DayGroup holds the slots of one civil date in input order.
type DayGroup struct {
	Key   string       `json:"key"`
	Label string       `json:"label"`
	Slots []slots.Slot `json:"slots"`
}

// WeekGroup holds the days of one Monday-anchored week in first-seen order.
type WeekGroup struct {
	Key   string      `json:"key"`
	Label string      `json:"label"`
	Days  []*DayGroup `json:"days"`

	days map[string]*DayGroup
}

// Day returns the day group for key, or nil.
func (w *WeekGroup) Day(key string) *DayGroup {
	return w.days[key]
}

// Schedule is the grouped form of one session type's slots.
type Schedule struct {
	Weeks []*WeekGroup `json:"weeks"`

	weeks map[string]*WeekGroup
}

// Week returns the week group for key, or nil.
func (s *Schedule) Week(key string) *WeekGroup {
	return s.weeks[key]
}

// Len reports the number of slots across all groups.
func (s *Schedule) Len() int {
	n := 0
	for _, w := range s.Weeks {
		for _, d := range w.Days {
			n += len(d.Slots)
		}
	}
	return n
}

// Group makes a single pass over in, which must already be in chronological order.
// Groups appear in the order their first slot does; nothing is sorted.
func Group(in []slots.Slot) *Schedule {
	s := &Schedule{Weeks: []*WeekGroup{}, weeks: make(map[string]*WeekGroup)}
	for _, slot := range in {
		week, ok := s.weeks[slot.WeekKey]
		if !ok {
			week = &WeekGroup{Key: slot.WeekKey, Label: slot.WeekLabel, Days: []*DayGroup{}, days: make(map[string]*DayGroup)}
			s.weeks[slot.WeekKey] = week
			s.Weeks = append(s.Weeks, week)
		}

		day, ok := week.days[slot.DateKey]
		if !ok {
			day = &DayGroup{Key: slot.DateKey, Label: slot.DateLabel}
			week.days[slot.DateKey] = day
			week.Days = append(week.Days, day)
		}
		day.Slots = append(day.Slots, slot)
	}
	return s
}
