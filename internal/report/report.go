// Package report renders a user's habits and their logs as CSV or PDF
// downloads.
package report

import (
	"sort"
	"time"

	"habittracker/internal/model"
)

const (
	FormatCSV = "csv"
	FormatPDF = "pdf"

	title           = "Habit Tracker Report"
	timestampLayout = "2006-01-02 15:04:05"
)

// Section is one habit with its full log history.
type Section struct {
	Habit model.Habit
	Logs  []model.HabitLog
}

type Report struct {
	GeneratedAt time.Time
	Sections    []Section
}

// Filename returns habit_report_YYYYMMDD_HHMMSS.<format>.
func Filename(format string, at time.Time) string {
	return "habit_report_" + at.Format("20060102_150405") + "." + format
}

// ContentType returns the MIME type served for format.
func ContentType(format string) string {
	if format == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

func newestFirst(logs []model.HabitLog) []model.HabitLog {
	out := make([]model.HabitLog, len(logs))
	copy(out, logs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func completedLabel(completed bool) string {
	if completed {
		return "Yes"
	}
	return "No"
}

func hasGoal(h model.Habit) bool {
	return h.Goal != nil && *h.Goal > 0
}
