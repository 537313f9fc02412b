package service

import (
	"context"
	"time"

	"habittracker/internal/model"
	"habittracker/internal/repository"
)

// The stores below are satisfied by the repository package; tests use the
// in-memory versions from servicetest.

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
}

type HabitStore interface {
	Create(ctx context.Context, h *model.Habit) error
	ListActiveByUser(ctx context.Context, userID int) ([]model.Habit, error)
	FindForUser(ctx context.Context, id, userID int) (*model.Habit, error)
	Update(ctx context.Context, id, userID int, patch repository.HabitPatch) (*model.Habit, error)
	Archive(ctx context.Context, id, userID int) error
}

type HabitLogStore interface {
	Upsert(ctx context.Context, in repository.LogUpsert) (*model.HabitLog, error)
	ListInRange(ctx context.Context, habitID int, start, end time.Time) ([]model.HabitLog, error)
	ListByHabit(ctx context.Context, habitID int) ([]model.HabitLog, error)
}

// AttemptCounter tracks failed logins per email. *util.AttemptCounter
// implements it on top of Redis.
type AttemptCounter interface {
	Increment(ctx context.Context, subject string) (int64, error)
	Get(ctx context.Context, subject string) (int64, error)
	Reset(ctx context.Context, subject string) error
}
