package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"habittracker/internal/model"
	"habittracker/pkg/db"
	"habittracker/pkg/otel"
)

const habitColumns = `id, user_id, name, htype, goal, archived, created_at, start_date`

type HabitRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewHabitRepository(db db.DBTX, logger *zap.Logger) *HabitRepository {
	return &HabitRepository{db: db, logger: logger}
}

func scanHabit(row pgx.Row, h *model.Habit) error {
	var htype string
	if err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Name,
		&htype,
		&h.Goal,
		&h.Archived,
		&h.CreatedAt,
		&h.StartDate,
	); err != nil {
		return err
	}
	h.HType = model.HabitType(htype)
	return nil
}

// Create inserts a habit and fills in ID, Archived and CreatedAt.
func (r *HabitRepository) Create(ctx context.Context, h *model.Habit) error {
	query := `
        INSERT INTO habits (user_id, name, htype, goal, start_date, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        RETURNING ` + habitColumns

	r.logger.Debug("Creating habit",
		zap.Int("user_id", h.UserID),
		zap.String("htype", string(h.HType)),
	)

	err := otel.WithDBSpan(ctx, "insert", "habits", func(ctx context.Context) error {
		row := r.db.QueryRow(ctx, query, h.UserID, h.Name, string(h.HType), h.Goal, dateOnly(h.StartDate))
		return scanHabit(row, h)
	})
	if err != nil {
		r.logger.Error("Failed to create habit", zap.Int("user_id", h.UserID), zap.Error(err))
		return fmt.Errorf("insert habit: %w", err)
	}

	r.logger.Info("Habit created", zap.Int("habit_id", h.ID), zap.Int("user_id", h.UserID))
	return nil
}

// ListActiveByUser returns the user's non-archived habits, oldest first.
func (r *HabitRepository) ListActiveByUser(ctx context.Context, userID int) ([]model.Habit, error) {
	query := `
        SELECT ` + habitColumns + `
        FROM habits
        WHERE user_id = $1 AND archived = FALSE
        ORDER BY id
    `

	var habits []model.Habit
	err := otel.WithDBSpan(ctx, "select", "habits", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var h model.Habit
			if err := scanHabit(rows, &h); err != nil {
				return err
			}
			habits = append(habits, h)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// FindForUser returns the habit only if it belongs to userID. Archived habits
// are included. A missing or foreign habit yields pgx.ErrNoRows.
func (r *HabitRepository) FindForUser(ctx context.Context, id, userID int) (*model.Habit, error) {
	query := `
        SELECT ` + habitColumns + `
        FROM habits
        WHERE id = $1 AND user_id = $2
    `

	var h model.Habit
	err := otel.WithDBSpan(ctx, "select", "habits", func(ctx context.Context) error {
		return scanHabit(r.db.QueryRow(ctx, query, id, userID), &h)
	})
	if err != nil {
		return nil, fmt.Errorf("find habit %d: %w", id, err)
	}
	return &h, nil
}

// HabitPatch 中为 nil 的字段保持不变
type HabitPatch struct {
	Name     *string
	Goal     *int
	Archived *bool
}

// Update applies patch to an owned habit and returns the stored row.
func (r *HabitRepository) Update(ctx context.Context, id, userID int, patch HabitPatch) (*model.Habit, error) {
	query := `
        UPDATE habits
        SET name     = COALESCE($3::text, name),
            goal     = COALESCE($4::integer, goal),
            archived = COALESCE($5::boolean, archived)
        WHERE id = $1 AND user_id = $2
        RETURNING ` + habitColumns

	r.logger.Debug("Updating habit", zap.Int("habit_id", id), zap.Int("user_id", userID))

	var h model.Habit
	err := otel.WithDBSpan(ctx, "update", "habits", func(ctx context.Context) error {
		row := r.db.QueryRow(ctx, query, id, userID, patch.Name, patch.Goal, patch.Archived)
		return scanHabit(row, &h)
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("Failed to update habit", zap.Int("habit_id", id), zap.Error(err))
		}
		return nil, fmt.Errorf("update habit %d: %w", id, err)
	}

	r.logger.Info("Habit updated", zap.Int("habit_id", id))
	return &h, nil
}

// Archive soft-deletes an owned habit. Logs are kept.
func (r *HabitRepository) Archive(ctx context.Context, id, userID int) error {
	query := `
        UPDATE habits
        SET archived = TRUE
        WHERE id = $1 AND user_id = $2
    `

	r.logger.Debug("Archiving habit", zap.Int("habit_id", id), zap.Int("user_id", userID))

	err := otel.WithDBSpan(ctx, "update", "habits", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, query, id, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("Failed to archive habit", zap.Int("habit_id", id), zap.Error(err))
		}
		return fmt.Errorf("archive habit %d: %w", id, err)
	}

	r.logger.Info("Habit archived", zap.Int("habit_id", id))
	return nil
}

// dateOnly 去掉时分秒，保证写入 DATE 列的是日历日
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
