package civil

import "time"

const (
	timeLabelLayout = "3:04 PM"
	dateLabelLayout = "Monday, January 2"
	weekLabelLayout = "January 2"
	// compactLayout is the floating local form calendar invite links expect.
	compactLayout = "20060102T150405"
)

// TimeLabel renders t as a 12-hour wall-clock label, e.g. "9:15 AM".
func (c *Clock) TimeLabel(t time.Time) string {
	return t.In(c.loc).Format(timeLabelLayout)
}

// DateLabel renders the civil day of t, e.g. "Monday, March 9".
func (c *Clock) DateLabel(t time.Time) string {
	return t.In(c.loc).Format(dateLabelLayout)
}

// WeekLabel renders the week containing t, e.g. "Week of March 9".
func (c *Clock) WeekLabel(t time.Time) string {
	return "Week of " + c.WeekStart(t).utc().Format(weekLabelLayout)
}

// Compact renders t as civil YYYYMMDDTHHMMSS with no offset.
func (c *Clock) Compact(t time.Time) string {
	return t.In(c.loc).Format(compactLayout)
}
