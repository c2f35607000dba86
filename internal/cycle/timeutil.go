package cycle

import (
	"fmt"
	"time"
)

// MinutesToDuration converts fractional minutes to a time.Duration.
func MinutesToDuration(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}

// DurationToMinutes converts a duration to fractional minutes.
func DurationToMinutes(d time.Duration) float64 {
	return d.Minutes()
}

// TimeFormatter handles display formatting for timer durations
type TimeFormatter struct{}

// NewTimeFormatter creates a new time formatter
func NewTimeFormatter() *TimeFormatter {
	return &TimeFormatter{}
}

// FormatDuration formats a duration as MM:SS
func (tf *TimeFormatter) FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "00:00"
	}

	d = d.Round(time.Second)
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// FormatDurationLong formats a duration with an hour component when the
// duration reaches an hour, as H:MM:SS.
func (tf *TimeFormatter) FormatDurationLong(d time.Duration) string {
	if d <= 0 {
		return "00:00"
	}

	d = d.Round(time.Second)
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// FormatMinutes renders fractional minutes as a human-readable string,
// e.g. "1h 30m" or "45m".
func (tf *TimeFormatter) FormatMinutes(minutes float64) string {
	hours := int(minutes) / 60
	mins := int(minutes+0.5) % 60

	switch {
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DayKey formats t's local calendar day as YYYY-MM-DD. Day-bucketing
// across the statistics engine keys on this value, so a session that
// crosses midnight is attributed entirely to its start day.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameDay reports whether two times fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b)
}
