package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	mqcontracts "habittracker/contracts/mq"
	"habittracker/internal/analytics"
	"habittracker/internal/model"
	"habittracker/internal/repository"
	"habittracker/pkg/logger"
	"habittracker/pkg/metrics"
	"habittracker/pkg/mq"
)

const (
	// DefaultLogRangeDays 是日志查询缺省的回看天数
	DefaultLogRangeDays = 30
	DefaultChartDays    = 30
	MaxChartDays        = 366
)

type HabitService struct {
	habits    HabitStore
	logs      HabitLogStore
	publisher mq.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewHabitService wires the habit service. A nil publisher drops events.
func NewHabitService(habits HabitStore, logs HabitLogStore, publisher mq.EventPublisher, logger *zap.Logger) *HabitService {
	if publisher == nil {
		publisher = mq.NopPublisher{}
	}
	return &HabitService{
		habits:    habits,
		logs:      logs,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock used to resolve "today".
func (s *HabitService) WithClock(now func() time.Time) *HabitService {
	s.now = now
	return s
}

// today 优先使用客户端传入的本地日期
func (s *HabitService) today(override *time.Time) time.Time {
	if override != nil {
		return analytics.Day(*override)
	}
	return analytics.Day(s.now())
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidInput, field)
	}
	return t, nil
}

// Create stores a new habit for userID.
func (s *HabitService) Create(ctx context.Context, userID int, req model.HabitCreateRequest) (*model.Habit, error) {
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}

	h := &model.Habit{
		UserID:    userID,
		Name:      req.Name,
		HType:     req.HType,
		Goal:      req.Goal,
		StartDate: start,
	}
	if err := s.habits.Create(ctx, h); err != nil {
		return nil, err
	}

	s.publish(ctx, mqcontracts.RoutingKeyHabitCreated, mqcontracts.HabitCreatedPayload{
		HabitID:   h.ID,
		UserID:    h.UserID,
		Name:      h.Name,
		HType:     string(h.HType),
		Goal:      h.Goal,
		StartDate: h.StartDate.Format(model.DateLayout),
		CreatedAt: h.CreatedAt,
	})
	return h, nil
}

// List returns the user's active habits.
func (s *HabitService) List(ctx context.Context, userID int) ([]model.Habit, error) {
	habits, err := s.habits.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if habits == nil {
		habits = []model.Habit{}
	}
	return habits, nil
}

// Get returns an owned habit, archived or not.
func (s *HabitService) Get(ctx context.Context, userID, habitID int) (*model.Habit, error) {
	h, err := s.habits.FindForUser(ctx, habitID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrHabitNotFound
		}
		return nil, err
	}
	return h, nil
}

// Update applies the non-nil fields of req to an owned habit.
func (s *HabitService) Update(ctx context.Context, userID, habitID int, req model.HabitUpdateRequest) (*model.Habit, error) {
	h, err := s.habits.Update(ctx, habitID, userID, repository.HabitPatch{
		Name:     req.Name,
		Goal:     req.Goal,
		Archived: req.Archived,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrHabitNotFound
		}
		return nil, err
	}

	if req.Archived != nil && *req.Archived {
		s.publishArchived(ctx, h.ID, userID)
	}
	return h, nil
}

// Archive soft-deletes an owned habit.
func (s *HabitService) Archive(ctx context.Context, userID, habitID int) error {
	if err := s.habits.Archive(ctx, habitID, userID); err != nil {
		if isNotFound(err) {
			return ErrHabitNotFound
		}
		return err
	}
	s.publishArchived(ctx, habitID, userID)
	return nil
}

// UpsertLog creates or merges the log of an owned habit for req.Date.
func (s *HabitService) UpsertLog(ctx context.Context, userID, habitID int, req model.HabitLogUpsertRequest) (*model.HabitLog, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return nil, err
	}

	l, err := s.logs.Upsert(ctx, repository.LogUpsert{
		HabitID:   habitID,
		Date:      date,
		Value:     req.Value,
		Completed: req.Completed,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, mqcontracts.RoutingKeyHabitLogUpserted, mqcontracts.HabitLogUpsertedPayload{
		LogID:     l.ID,
		HabitID:   l.HabitID,
		UserID:    userID,
		Date:      l.Date.Format(model.DateLayout),
		Value:     l.Value,
		Completed: l.Completed,
	})
	return l, nil
}

// Logs returns the habit's logs in [start, end]. A nil end means today and a
// nil start means DefaultLogRangeDays before today.
func (s *HabitService) Logs(ctx context.Context, userID, habitID int, start, end *time.Time) ([]model.HabitLog, error) {
	today := s.today(nil)
	to := today
	if end != nil {
		to = analytics.Day(*end)
	}
	from := today.AddDate(0, 0, -DefaultLogRangeDays)
	if start != nil {
		from = analytics.Day(*start)
	}
	if from.After(to) {
		return nil, ErrInvalidRange
	}

	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return nil, err
	}

	logs, err := s.logs.ListInRange(ctx, habitID, from, to)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []model.HabitLog{}
	}
	return logs, nil
}

// history 校验归属并取出全部日志，分析接口每次都全量重算
func (s *HabitService) history(ctx context.Context, userID, habitID int) (*model.Habit, []model.HabitLog, error) {
	h, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, nil, err
	}
	logs, err := s.logs.ListByHabit(ctx, habitID)
	if err != nil {
		return nil, nil, err
	}
	return h, logs, nil
}

func (s *HabitService) Insights(ctx context.Context, userID, habitID int, today *time.Time) (analytics.Insight, error) {
	h, logs, err := s.history(ctx, userID, habitID)
	if err != nil {
		return analytics.Insight{}, err
	}
	return analytics.Insights(*h, logs, s.today(today)), nil
}

func (s *HabitService) WeeklyTrend(ctx context.Context, userID, habitID int, today *time.Time) ([]analytics.WeeklyBucket, error) {
	_, logs, err := s.history(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	return analytics.WeeklyTrend(logs, s.today(today)), nil
}

func (s *HabitService) MonthlyTrend(ctx context.Context, userID, habitID int, today *time.Time) ([]analytics.MonthlyBucket, error) {
	_, logs, err := s.history(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	return analytics.MonthlyTrend(logs, s.today(today)), nil
}

// ChartData returns days+1 daily points ending today.
func (s *HabitService) ChartData(ctx context.Context, userID, habitID int, today *time.Time, days int) ([]analytics.ChartPoint, error) {
	if days < 0 || days > MaxChartDays {
		return nil, fmt.Errorf("%w: days must be between 0 and %d", ErrInvalidInput, MaxChartDays)
	}
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return nil, err
	}

	end := s.today(today)
	logs, err := s.logs.ListInRange(ctx, habitID, end.AddDate(0, 0, -days), end)
	if err != nil {
		return nil, err
	}
	return analytics.ChartSeries(logs, end, days), nil
}

func (s *HabitService) publishArchived(ctx context.Context, habitID, userID int) {
	s.publish(ctx, mqcontracts.RoutingKeyHabitArchived, mqcontracts.HabitArchivedPayload{
		HabitID:    habitID,
		UserID:     userID,
		ArchivedAt: s.now().UTC(),
	})
}

// publish 尽力发送事件，失败只记录日志，不影响请求结果
func (s *HabitService) publish(ctx context.Context, routingKey string, payload any) {
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		metrics.IncrementEventPublish(routingKey, "error")
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return
	}
	metrics.IncrementEventPublish(routingKey, "success")
}
