package templates

import (
	"strconv"
	"time"
)

// statusClass maps a job status to the CSS class of its badge.
func statusClass(status string) string {
	switch status {
	case "completed":
		return "badge ok"
	case "failed":
		return "badge err"
	case "running":
		return "badge run"
	default:
		return "badge"
	}
}

// formatTime renders t for display, or a dash for the zero value.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// formatDuration renders the time between start and end, or since start
// when end is nil.
func formatDuration(start time.Time, end *time.Time) string {
	stop := time.Now()
	if end != nil {
		stop = *end
	}
	return stop.Sub(start).Round(time.Millisecond).String()
}

func itoa64(n int64) string {
	return strconv.FormatInt(n, 10)
}
