// Package analytics derives streaks, trends and chart series from a habit's
// log history. Every function is pure: the caller passes "today" explicitly and
// the full slice of logs, in any order.
package analytics

import (
	"fmt"
	"time"

	"habittracker/internal/model"
)

const (
	ShortStreakWindow = 7
	LongStreakWindow  = 28

	weeklyBuckets  = 4
	weekWidth      = 7
	monthlyBuckets = 3
	monthWidth     = 30
)

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return t.Format(model.DateLayout)
}

// byDate indexes logs by calendar date. A later duplicate wins, which cannot
// happen with the unique (habit_id, date) constraint.
func byDate(logs []model.HabitLog) map[string]model.HabitLog {
	idx := make(map[string]model.HabitLog, len(logs))
	for _, l := range logs {
		idx[dayKey(l.Date)] = l
	}
	return idx
}

type Insight struct {
	HabitID              int     `json:"habit_id"`
	Name                 string  `json:"name"`
	SevenDayStreak       int     `json:"seven_day_streak"`
	TwentyEightDayStreak int     `json:"twenty_eight_day_streak"`
	AvgCompletionPercent float64 `json:"avg_completion_percent"`
}

// Streak counts consecutive completed days walking back from today, looking at
// no more than window days. A missing or incomplete day ends the streak.
func Streak(logs []model.HabitLog, today time.Time, window int) int {
	idx := byDate(logs)
	today = Day(today)

	streak := 0
	for i := 0; i < window; i++ {
		l, ok := idx[dayKey(today.AddDate(0, 0, -i))]
		if !ok || !l.Completed {
			break
		}
		streak++
	}
	return streak
}

// AverageCompletion returns the share of days from startDate through today
// (inclusive) that have a completed log, as a percentage. A start date after
// today yields 0.
func AverageCompletion(startDate time.Time, logs []model.HabitLog, today time.Time) float64 {
	start, end := Day(startDate), Day(today)
	totalDays := daysBetween(start, end) + 1
	if totalDays <= 0 {
		return 0
	}

	completed := 0
	for _, l := range logs {
		d := Day(l.Date)
		if l.Completed && !d.Before(start) && !d.After(end) {
			completed++
		}
	}
	return float64(completed) / float64(totalDays) * 100
}

// Insights bundles both streaks and the average completion for one habit.
func Insights(habit model.Habit, logs []model.HabitLog, today time.Time) Insight {
	return Insight{
		HabitID:              habit.ID,
		Name:                 habit.Name,
		SevenDayStreak:       Streak(logs, today, ShortStreakWindow),
		TwentyEightDayStreak: Streak(logs, today, LongStreakWindow),
		AvgCompletionPercent: AverageCompletion(habit.StartDate, logs, today),
	}
}

func daysBetween(from, to time.Time) int {
	// Both sides are UTC midnights, so the division is exact.
	return int(to.Sub(from).Hours() / 24)
}

type WeeklyBucket struct {
	Week           string  `json:"week"`
	CompletionRate float64 `json:"completion_rate"`
	CompletedDays  int     `json:"completed_days"`
	TotalDays      int     `json:"total_days"`
}

type MonthlyBucket struct {
	Month          string  `json:"month"`
	CompletionRate float64 `json:"completion_rate"`
	CompletedDays  int     `json:"completed_days"`
	TotalDays      int     `json:"total_days"`
}

type bucket struct {
	end           time.Time
	completedDays int
	totalDays     int
	rate          float64
}

// trailingBuckets aggregates count windows of the given width ending at today,
// oldest first. Window i (0 = most recent) spans
// [today-(i*width+width), today-i*width], both ends included, so adjacent
// windows share their boundary day. An empty window reports width as its total.
func trailingBuckets(logs []model.HabitLog, today time.Time, count, width int) []bucket {
	today = Day(today)
	out := make([]bucket, count)

	for i := 0; i < count; i++ {
		end := today.AddDate(0, 0, -i*width)
		start := today.AddDate(0, 0, -(i*width + width))

		completed, logged := 0, 0
		for _, l := range logs {
			d := Day(l.Date)
			if d.Before(start) || d.After(end) {
				continue
			}
			logged++
			if l.Completed {
				completed++
			}
		}

		total := logged
		if total == 0 {
			total = width
		}

		out[count-1-i] = bucket{
			end:           end,
			completedDays: completed,
			totalDays:     total,
			rate:          float64(completed) / float64(total) * 100,
		}
	}
	return out
}

// WeeklyTrend returns four 7-day buckets, labelled "Week 1" (oldest) to
// "Week 4" (ending today).
func WeeklyTrend(logs []model.HabitLog, today time.Time) []WeeklyBucket {
	buckets := trailingBuckets(logs, today, weeklyBuckets, weekWidth)
	out := make([]WeeklyBucket, len(buckets))
	for i, b := range buckets {
		out[i] = WeeklyBucket{
			Week:           fmt.Sprintf("Week %d", i+1),
			CompletionRate: b.rate,
			CompletedDays:  b.completedDays,
			TotalDays:      b.totalDays,
		}
	}
	return out
}

// MonthlyTrend returns three fixed 30-day buckets, oldest first, each labelled
// with the month name of its end date. These are not calendar months.
func MonthlyTrend(logs []model.HabitLog, today time.Time) []MonthlyBucket {
	buckets := trailingBuckets(logs, today, monthlyBuckets, monthWidth)
	out := make([]MonthlyBucket, len(buckets))
	for i, b := range buckets {
		out[i] = MonthlyBucket{
			Month:          b.end.Month().String(),
			CompletionRate: b.rate,
			CompletedDays:  b.completedDays,
			TotalDays:      b.totalDays,
		}
	}
	return out
}

type ChartPoint struct {
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
	Value     *int   `json:"value"`
}

// ChartSeries returns days+1 points, one per date from today-days through
// today, filling dates without a log with completed=false and a null value.
func ChartSeries(logs []model.HabitLog, today time.Time, days int) []ChartPoint {
	if days < 0 {
		return []ChartPoint{}
	}

	idx := byDate(logs)
	start := Day(today).AddDate(0, 0, -days)

	out := make([]ChartPoint, 0, days+1)
	for i := 0; i <= days; i++ {
		key := dayKey(start.AddDate(0, 0, i))
		p := ChartPoint{Date: key}
		if l, ok := idx[key]; ok {
			p.Completed = l.Completed
			p.Value = l.Value
		}
		out = append(out, p)
	}
	return out
}
