// Package slots walks a booking horizon and emits the conflict-free start times a session
// type can be booked at.
package slots

import (
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/civil"
	"github.com/md-rashed-zaman/slotboard/services/availability-service/internal/sessiontype"
)

// GridStep is the spacing between candidate start times, independent of session length.
const GridStep = 15

// Slot is an accepted start time plus the derived keys and labels a renderer needs.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	DateKey string `json:"date_key"`
	WeekKey string `json:"week_key"`

	TimeLabel    string `json:"time_label"`
	EndTimeLabel string `json:"end_time_label"`
	DateLabel    string `json:"date_label"`
	WeekLabel    string `json:"week_label"`

	// CompactStart and CompactEnd are civil YYYYMMDDTHHMMSS, for invite links.
	CompactStart string `json:"compact_start"`
	CompactEnd   string `json:"compact_end"`
}

// Flagged is a grid candidate skipped because its wall-clock time is not a single instant.
type Flagged struct {
	Date   string `json:"date"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Reason string `json:"reason"`
}

// Request is the input shared by every session type in one run.
type Request struct {
	Now        time.Time
	HorizonEnd time.Time
	Busy       []busy.Interval
}

// Result is one session type's output. Slots are in ascending start order.
type Result struct {
	Slots   []Slot
	Flagged []Flagged
}

type Generator struct {
	clock  *civil.Clock
	logger *slog.Logger
}

func NewGenerator(clock *civil.Clock, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{clock: clock, logger: logger}
}

// Generate walks civil days from the day containing req.Now while the day starts before
// req.HorizonEnd. On each allowed weekday it tries start times on a GridStep-minute grid
// from the window start, accepting a candidate when it fits the window, starts no earlier
// than the lead-time cutoff, and its buffered span [start-buffer, end+buffer) misses every
// busy interval. Rejected candidates still consume a grid step; only accepted slots count
// toward MaxPerDay. The output order is the iteration order.
func (g *Generator) Generate(cfg sessiontype.Config, req Request) Result {
	var res Result

	leadCutoff := req.Now.Add(cfg.LeadTime())
	length := cfg.SessionLength()
	buffer := cfg.BufferLength()
	windowEnd := cfg.WindowEndMinutes()

	for day := g.clock.ToCivil(req.Now).Date(); g.dayStart(day).Before(req.HorizonEnd); day = day.AddDays(1) {
		if !cfg.Allows(day.Weekday()) {
			continue
		}

		dayCount := 0
		for candidate := cfg.WindowStartMinutes(); dayCount < cfg.MaxPerDay; candidate += GridStep {
			if candidate+cfg.Duration > windowEnd || candidate >= windowEnd {
				break
			}
			hour, minute := candidate/60, candidate%60

			start, err := g.clock.FromCivil(day.Year, day.Month, day.Day, hour, minute)
			if err != nil {
				g.logger.Warn("slot candidate skipped",
					"session_type", cfg.Key,
					"date", day.Key(),
					"hour", hour,
					"minute", minute,
					"err", err,
				)
				res.Flagged = append(res.Flagged, Flagged{Date: day.Key(), Hour: hour, Minute: minute, Reason: err.Error()})
				continue
			}
			if start.Before(leadCutoff) {
				continue
			}
			end := start.Add(length)
			if conflicts(start.Add(-buffer), end.Add(buffer), req.Busy) {
				continue
			}

			res.Slots = append(res.Slots, g.slot(start, end))
			dayCount++
		}
	}
	return res
}

// dayStart is civil midnight of d. When midnight itself falls in a DST gap the normalized
// instant is still a sound bound for the horizon check.
func (g *Generator) dayStart(d civil.Date) time.Time {
	t, err := g.clock.StartOfDay(d)
	if err != nil {
		return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, g.clock.Location())
	}
	return t
}

func (g *Generator) slot(start, end time.Time) Slot {
	return Slot{
		Start:        start,
		End:          end,
		DateKey:      g.clock.DateKey(start),
		WeekKey:      g.clock.WeekKey(start),
		TimeLabel:    g.clock.TimeLabel(start),
		EndTimeLabel: g.clock.TimeLabel(end),
		DateLabel:    g.clock.DateLabel(start),
		WeekLabel:    g.clock.WeekLabel(start),
		CompactStart: g.clock.Compact(start),
		CompactEnd:   g.clock.Compact(end),
	}
}

func conflicts(start, end time.Time, intervals []busy.Interval) bool {
	for _, b := range intervals {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}
