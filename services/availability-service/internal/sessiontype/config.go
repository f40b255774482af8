// Package sessiontype holds the per-session-type booking rules and the providers that load them.
package sessiontype

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config is one session type's booking rules. Values are treated as immutable once loaded;
// providers hand out copies.
type Config struct {
	Key         string `mapstructure:"key" json:"key"`
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description,omitempty"`

	// Duration and Buffer are in minutes.
	Duration int `mapstructure:"duration" json:"duration"`
	Buffer   int `mapstructure:"buffer" json:"buffer"`

	// Days lists the allowed weekdays, Sunday=0.
	Days []time.Weekday `mapstructure:"days" json:"days"`

	StartHour int `mapstructure:"start_hour" json:"start_hour"`
	StartMin  int `mapstructure:"start_min" json:"start_min"`
	EndHour   int `mapstructure:"end_hour" json:"end_hour"`
	EndMin    int `mapstructure:"end_min" json:"end_min"`

	MaxPerDay     int `mapstructure:"max_per_day" json:"max_per_day"`
	LeadTimeHours int `mapstructure:"lead_time_hours" json:"lead_time_hours"`
}

var ErrInvalidConfig = errors.New("invalid session type")

// MaxBuffer is the largest buffer, in minutes, a session type may ask for. Busy snapshots
// reach this far past both ends of the booking window.
const MaxBuffer = 24 * 60

// Validate reports every rule violation at once, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Key) == "" {
		problems = append(problems, "key is required")
	}
	if c.Duration <= 0 {
		problems = append(problems, "duration must be positive")
	}
	if c.Buffer < 0 {
		problems = append(problems, "buffer must not be negative")
	}
	if c.Buffer > MaxBuffer {
		problems = append(problems, fmt.Sprintf("buffer must not exceed %d minutes", MaxBuffer))
	}
	for _, d := range c.Days {
		if d < time.Sunday || d > time.Saturday {
			problems = append(problems, fmt.Sprintf("weekday %d out of range 0-6", int(d)))
		}
	}
	if !validClock(c.StartHour, c.StartMin) {
		problems = append(problems, fmt.Sprintf("window start %02d:%02d is not a valid time", c.StartHour, c.StartMin))
	}
	if !validClock(c.EndHour, c.EndMin) && !(c.EndHour == 24 && c.EndMin == 0) {
		problems = append(problems, fmt.Sprintf("window end %02d:%02d is not a valid time", c.EndHour, c.EndMin))
	}
	if c.WindowStartMinutes() >= c.WindowEndMinutes() {
		problems = append(problems, "window start must be before window end")
	}
	if c.MaxPerDay < 0 {
		problems = append(problems, "max_per_day must not be negative")
	}
	if c.LeadTimeHours < 0 {
		problems = append(problems, "lead_time_hours must not be negative")
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w %q: %s", ErrInvalidConfig, c.Key, strings.Join(problems, "; "))
}

func validClock(h, m int) bool {
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}

// Allows reports whether wd is one of the configured weekdays.
func (c Config) Allows(wd time.Weekday) bool {
	return slices.Contains(c.Days, wd)
}

func (c Config) WindowStartMinutes() int { return c.StartHour*60 + c.StartMin }
func (c Config) WindowEndMinutes() int   { return c.EndHour*60 + c.EndMin }

func (c Config) SessionLength() time.Duration { return time.Duration(c.Duration) * time.Minute }
func (c Config) BufferLength() time.Duration  { return time.Duration(c.Buffer) * time.Minute }
func (c Config) LeadTime() time.Duration      { return time.Duration(c.LeadTimeHours) * time.Hour }

// Clone returns a copy that shares no backing arrays with c.
func (c Config) Clone() Config {
	c.Days = slices.Clone(c.Days)
	return c
}
