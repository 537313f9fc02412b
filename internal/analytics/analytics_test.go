package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habittracker/internal/model"
)

var today = time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

// logsFor builds one log per offset (days before today) with the given state.
func logsFor(completed bool, offsets ...int) []model.HabitLog {
	out := make([]model.HabitLog, 0, len(offsets))
	for _, off := range offsets {
		out = append(out, model.HabitLog{
			HabitID:   1,
			Date:      Day(today).AddDate(0, 0, -off),
			Completed: completed,
		})
	}
	return out
}

func rangeOffsets(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	got := Day(time.Date(2026, 3, 1, 23, 59, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestStreak_AllSevenDaysCompleted(t *testing.T) {
	logs := logsFor(true, rangeOffsets(0, 6)...)
	assert.Equal(t, 7, Streak(logs, today, ShortStreakWindow))
}

func TestStreak_BreakOnDayThree(t *testing.T) {
	logs := append(logsFor(true, 0, 1, 3, 4, 5, 6), logsFor(false, 2)...)
	assert.Equal(t, 2, Streak(logs, today, ShortStreakWindow))
}

func TestStreak_MissingDayBreaks(t *testing.T) {
	logs := logsFor(true, 0, 1, 2, 4, 5)
	assert.Equal(t, 3, Streak(logs, today, ShortStreakWindow))
}

func TestStreak_NoLogTodayIsZero(t *testing.T) {
	logs := logsFor(true, rangeOffsets(1, 30)...)
	assert.Equal(t, 0, Streak(logs, today, ShortStreakWindow))
	assert.Equal(t, 0, Streak(logs, today, LongStreakWindow))
}

func TestStreak_IncompleteTodayIsZero(t *testing.T) {
	logs := append(logsFor(false, 0), logsFor(true, 1, 2)...)
	assert.Equal(t, 0, Streak(logs, today, ShortStreakWindow))
}

func TestStreak_WindowsScanIndependently(t *testing.T) {
	logs := logsFor(true, rangeOffsets(0, 39)...)
	assert.Equal(t, 7, Streak(logs, today, ShortStreakWindow))
	assert.Equal(t, 28, Streak(logs, today, LongStreakWindow))

	logs = logsFor(true, rangeOffsets(0, 11)...)
	assert.Equal(t, 7, Streak(logs, today, ShortStreakWindow))
	assert.Equal(t, 12, Streak(logs, today, LongStreakWindow))
}

func TestStreak_UnorderedInput(t *testing.T) {
	logs := logsFor(true, 3, 0, 2, 1)
	assert.Equal(t, 4, Streak(logs, today, ShortStreakWindow))
}

func TestAverageCompletion_StartTodayCompleted(t *testing.T) {
	logs := logsFor(true, 0)
	assert.InDelta(t, 100.0, AverageCompletion(Day(today), logs, today), 1e-9)
}

func TestAverageCompletion_PartialSpan(t *testing.T) {
	start := Day(today).AddDate(0, 0, -9) // 10 days inclusive
	logs := append(logsFor(true, 0, 2, 4, 6), logsFor(false, 1, 3)...)
	assert.InDelta(t, 40.0, AverageCompletion(start, logs, today), 1e-9)
}

func TestAverageCompletion_IgnoresLogsOutsideSpan(t *testing.T) {
	start := Day(today).AddDate(0, 0, -1)
	logs := logsFor(true, 0, 1, 2, 3)
	logs = append(logs, model.HabitLog{Date: Day(today).AddDate(0, 0, 1), Completed: true})
	assert.InDelta(t, 100.0, AverageCompletion(start, logs, today), 1e-9)
}

func TestAverageCompletion_FutureStartIsZero(t *testing.T) {
	start := Day(today).AddDate(0, 0, 5)
	logs := logsFor(true, 0)
	assert.Equal(t, 0.0, AverageCompletion(start, logs, today))
}

func TestInsights(t *testing.T) {
	habit := model.Habit{ID: 9, Name: "Read", StartDate: Day(today).AddDate(0, 0, -3)}
	logs := logsFor(true, 0, 1, 2, 3)

	got := Insights(habit, logs, today)
	assert.Equal(t, Insight{
		HabitID:              9,
		Name:                 "Read",
		SevenDayStreak:       4,
		TwentyEightDayStreak: 4,
		AvgCompletionPercent: 100,
	}, got)
}

func TestWeeklyTrend_EmptyDefaultsToSevenDays(t *testing.T) {
	got := WeeklyTrend(nil, today)
	require.Len(t, got, 4)
	for i, b := range got {
		assert.Equal(t, 7, b.TotalDays)
		assert.Equal(t, 0, b.CompletedDays)
		assert.Equal(t, 0.0, b.CompletionRate)
		assert.Equal(t, []string{"Week 1", "Week 2", "Week 3", "Week 4"}[i], b.Week)
	}
}

func TestWeeklyTrend_OldestFirst(t *testing.T) {
	// Only the most recent week has activity: today plus two days back.
	logs := append(logsFor(true, 0, 1), logsFor(false, 2)...)
	got := WeeklyTrend(logs, today)
	require.Len(t, got, 4)

	newest := got[3]
	assert.Equal(t, "Week 4", newest.Week)
	assert.Equal(t, 2, newest.CompletedDays)
	assert.Equal(t, 3, newest.TotalDays)
	assert.InDelta(t, 66.666, newest.CompletionRate, 0.01)

	for _, b := range got[:3] {
		assert.Equal(t, 7, b.TotalDays)
		assert.Equal(t, 0, b.CompletedDays)
	}
}

func TestWeeklyTrend_BoundaryDayCountsInBothWindows(t *testing.T) {
	logs := logsFor(true, 7)
	got := WeeklyTrend(logs, today)

	assert.Equal(t, 1, got[3].CompletedDays)
	assert.Equal(t, 1, got[3].TotalDays)
	assert.Equal(t, 1, got[2].CompletedDays)
	assert.Equal(t, 1, got[2].TotalDays)
}

func TestMonthlyTrend_LabelsAndDefaults(t *testing.T) {
	logs := logsFor(true, 35, 36)
	got := MonthlyTrend(logs, today)
	require.Len(t, got, 3)

	// Bucket end dates: Aug 19, Sep 18, Oct 18.
	assert.Equal(t, "August", got[0].Month)
	assert.Equal(t, "September", got[1].Month)
	assert.Equal(t, "October", got[2].Month)

	assert.Equal(t, 30, got[0].TotalDays)
	assert.Equal(t, 2, got[1].CompletedDays)
	assert.Equal(t, 2, got[1].TotalDays)
	assert.InDelta(t, 100.0, got[1].CompletionRate, 1e-9)
	assert.Equal(t, 30, got[2].TotalDays)
}

func TestChartSeries_DenseAndOrdered(t *testing.T) {
	logs := []model.HabitLog{
		{Date: Day(today), Completed: true, Value: intPtr(3)},
		{Date: Day(today).AddDate(0, 0, -2), Completed: false, Value: intPtr(1)},
		{Date: Day(today).AddDate(0, 0, -10), Completed: true},
	}

	got := ChartSeries(logs, today, 5)
	require.Len(t, got, 6)

	assert.Equal(t, "2026-10-13", got[0].Date)
	assert.Equal(t, "2026-10-18", got[5].Date)

	seen := map[string]bool{}
	for i, p := range got {
		assert.False(t, seen[p.Date], "duplicate date %s", p.Date)
		seen[p.Date] = true
		if i > 0 {
			assert.Less(t, got[i-1].Date, p.Date)
		}
	}

	assert.True(t, got[5].Completed)
	assert.Equal(t, 3, *got[5].Value)
	assert.False(t, got[3].Completed)
	assert.Equal(t, 1, *got[3].Value)
	assert.False(t, got[4].Completed)
	assert.Nil(t, got[4].Value)
}

func TestChartSeries_Sizes(t *testing.T) {
	assert.Len(t, ChartSeries(nil, today, 0), 1)
	assert.Len(t, ChartSeries(nil, today, 30), 31)
	assert.Empty(t, ChartSeries(nil, today, -1))
}
