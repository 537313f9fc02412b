package repository

import (
	"context"

	"habittracker/internal/model"
	"habittracker/pkg/db"
	"habittracker/pkg/otel"
)

type UserRepository struct {
	db db.DBTX
}

func NewUserRepository(db db.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user and fills in ID and CreatedAt.
// 邮箱重复时返回 pgconn.PgError (23505)，由 service 层转换
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (email, password_hash, created_at)
        VALUES ($1, $2, NOW())
        RETURNING id, created_at
    `
	return otel.WithDBSpan(ctx, "insert", "users", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, u.Email, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	})
}

// FindByEmail returns user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
        SELECT id, email, password_hash, created_at
        FROM users
        WHERE email = $1
    `
	var u model.User
	err := otel.WithDBSpan(ctx, "select", "users", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, email).Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt,
		)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID returns user by id.
func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	query := `
        SELECT id, email, password_hash, created_at
        FROM users
        WHERE id = $1
    `
	var u model.User
	err := otel.WithDBSpan(ctx, "select", "users", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, id).Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt,
		)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}
