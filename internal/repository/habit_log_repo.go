package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"habittracker/internal/model"
	"habittracker/pkg/db"
	"habittracker/pkg/metrics"
	"habittracker/pkg/otel"
)

const habitLogColumns = `id, habit_id, date, value, completed, created_at`

type HabitLogRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewHabitLogRepository(db db.DBTX, logger *zap.Logger) *HabitLogRepository {
	return &HabitLogRepository{db: db, logger: logger}
}

func scanHabitLog(row pgx.Row, l *model.HabitLog) error {
	return row.Scan(
		&l.ID,
		&l.HabitID,
		&l.Date,
		&l.Value,
		&l.Completed,
		&l.CreatedAt,
	)
}

// LogUpsert 中 Value/Completed 为 nil 表示保留已有值
type LogUpsert struct {
	HabitID   int
	Date      time.Time
	Value     *int
	Completed *bool
}

// Upsert creates the log for (habit, date) or merges the non-nil fields into
// the existing one, in a single statement. A new row gets completed=false and
// a NULL value unless given.
func (r *HabitLogRepository) Upsert(ctx context.Context, in LogUpsert) (*model.HabitLog, error) {
	query := `
        INSERT INTO habit_logs (habit_id, date, value, completed, created_at)
        VALUES ($1, $2, $3::integer, COALESCE($4::boolean, FALSE), NOW())
        ON CONFLICT (habit_id, date) DO UPDATE
        SET value     = COALESCE($3::integer, habit_logs.value),
            completed = COALESCE($4::boolean, habit_logs.completed)
        RETURNING ` + habitLogColumns

	day := dateOnly(in.Date)
	r.logger.Debug("Upserting habit log",
		zap.Int("habit_id", in.HabitID),
		zap.String("date", day.Format(model.DateLayout)),
	)

	var l model.HabitLog
	err := otel.WithDBSpan(ctx, "upsert", "habit_logs", func(ctx context.Context) error {
		row := r.db.QueryRow(ctx, query, in.HabitID, day, in.Value, in.Completed)
		return scanHabitLog(row, &l)
	})
	if err != nil {
		metrics.IncrementHabitLogUpsert("error")
		r.logger.Error("Failed to upsert habit log", zap.Int("habit_id", in.HabitID), zap.Error(err))
		return nil, fmt.Errorf("upsert habit log: %w", err)
	}

	metrics.IncrementHabitLogUpsert("success")
	r.logger.Info("Habit log upserted",
		zap.Int("habit_id", in.HabitID),
		zap.Int("log_id", l.ID),
		zap.Bool("completed", l.Completed),
	)
	return &l, nil
}

// ListInRange returns logs with start <= date <= end, ascending by date.
func (r *HabitLogRepository) ListInRange(ctx context.Context, habitID int, start, end time.Time) ([]model.HabitLog, error) {
	query := `
        SELECT ` + habitLogColumns + `
        FROM habit_logs
        WHERE habit_id = $1 AND date >= $2 AND date <= $3
        ORDER BY date
    `
	logs, err := r.list(ctx, query, habitID, dateOnly(start), dateOnly(end))
	if err != nil {
		return nil, fmt.Errorf("list habit logs in range: %w", err)
	}
	return logs, nil
}

// ListByHabit returns every log of the habit, ascending by date.
func (r *HabitLogRepository) ListByHabit(ctx context.Context, habitID int) ([]model.HabitLog, error) {
	query := `
        SELECT ` + habitLogColumns + `
        FROM habit_logs
        WHERE habit_id = $1
        ORDER BY date
    `
	logs, err := r.list(ctx, query, habitID)
	if err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}
	return logs, nil
}

func (r *HabitLogRepository) list(ctx context.Context, query string, args ...any) ([]model.HabitLog, error) {
	var logs []model.HabitLog
	err := otel.WithDBSpan(ctx, "select", "habit_logs", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var l model.HabitLog
			if err := scanHabitLog(rows, &l); err != nil {
				return err
			}
			logs = append(logs, l)
		}
		return rows.Err()
	})
	return logs, err
}
