package model

import "time"

type User struct {
	ID           int
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserOut 是返回给客户端的用户信息，不含密码哈希
type UserOut struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Out() UserOut {
	return UserOut{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}
