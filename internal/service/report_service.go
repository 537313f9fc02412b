package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"habittracker/internal/model"
	"habittracker/internal/report"
	"habittracker/pkg/logger"
)

type ReportService struct {
	habits HabitStore
	logs   HabitLogStore
	logger *zap.Logger
	now    func() time.Time
}

func NewReportService(habits HabitStore, logs HabitLogStore, logger *zap.Logger) *ReportService {
	return &ReportService{habits: habits, logs: logs, logger: logger, now: time.Now}
}

// WithClock replaces the wall clock used for the report timestamp.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// Build collects the data for an export. With habitID nil every active habit
// of the user is included, otherwise only that owned habit (archived or not).
func (s *ReportService) Build(ctx context.Context, userID int, habitID *int) (*report.Report, error) {
	var habits []model.Habit
	if habitID != nil {
		h, err := s.habits.FindForUser(ctx, *habitID, userID)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrHabitNotFound
			}
			return nil, err
		}
		habits = []model.Habit{*h}
	} else {
		var err error
		habits, err = s.habits.ListActiveByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	rep := &report.Report{
		GeneratedAt: s.now(),
		Sections:    make([]report.Section, 0, len(habits)),
	}
	for _, h := range habits {
		logs, err := s.logs.ListByHabit(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		rep.Sections = append(rep.Sections, report.Section{Habit: h, Logs: logs})
	}

	logger.WithTrace(ctx, s.logger).Debug("Report data collected",
		zap.Int("user_id", userID),
		zap.Int("habits", len(rep.Sections)),
	)
	return rep, nil
}
