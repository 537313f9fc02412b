package mq

import "time"

// Routing keys on the habit.events exchange.
const (
	RoutingKeyHabitCreated     = "habit.created"
	RoutingKeyHabitArchived    = "habit.archived"
	RoutingKeyHabitLogUpserted = "habit.log.upserted"
)

// HabitCreatedPayload 习惯创建事件
type HabitCreatedPayload struct {
	HabitID   int       `json:"habit_id"`
	UserID    int       `json:"user_id"`
	Name      string    `json:"name"`
	HType     string    `json:"htype"`
	Goal      *int      `json:"goal,omitempty"`
	StartDate string    `json:"start_date"`
	CreatedAt time.Time `json:"created_at"`
}

// HabitArchivedPayload 习惯归档事件
type HabitArchivedPayload struct {
	HabitID    int       `json:"habit_id"`
	UserID     int       `json:"user_id"`
	ArchivedAt time.Time `json:"archived_at"`
}

// HabitLogUpsertedPayload 打卡记录写入事件，携带写入后的完整状态
type HabitLogUpsertedPayload struct {
	LogID     int    `json:"log_id"`
	HabitID   int    `json:"habit_id"`
	UserID    int    `json:"user_id"`
	Date      string `json:"date"`
	Value     *int   `json:"value"`
	Completed bool   `json:"completed"`
}
