package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"habittracker/internal/model"
)

// WriteCSV writes the report as a single CSV sheet: a title row, then per
// habit a name row, an optional goal row, a Date,Completed,Value header and
// the logs newest first, each block followed by an empty row.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{title, r.GeneratedAt.Format(timestampLayout)},
		{},
	}
	for _, sec := range r.Sections {
		rows = append(rows, []string{"Habit: " + sec.Habit.Name})
		if hasGoal(sec.Habit) {
			rows = append(rows, []string{fmt.Sprintf("Goal: %d", *sec.Habit.Goal)})
		}
		rows = append(rows, []string{"Date", "Completed", "Value"})
		for _, l := range newestFirst(sec.Logs) {
			rows = append(rows, []string{
				l.Date.Format(model.DateLayout),
				completedLabel(l.Completed),
				valueText(l.Value),
			})
		}
		rows = append(rows, []string{})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func valueText(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
