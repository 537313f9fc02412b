package model

import "time"

// DateLayout 是 API 和报表中日期的格式
const DateLayout = "2006-01-02"

// HabitType 区分习惯的记录方式
type HabitType string

const (
	HabitTypeBoolean  HabitType = "boolean"
	HabitTypeQuantity HabitType = "quantity"
	HabitTypeTime     HabitType = "time"
)

type Habit struct {
	ID        int
	UserID    int
	Name      string
	HType     HabitType
	Goal      *int
	Archived  bool
	CreatedAt time.Time
	// StartDate 是统计平均完成率的起始日
	StartDate time.Time
}

type HabitOut struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	HType     HabitType `json:"htype"`
	Goal      *int      `json:"goal"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	StartDate string    `json:"start_date"`
}

func (h Habit) Out() HabitOut {
	return HabitOut{
		ID:        h.ID,
		Name:      h.Name,
		HType:     h.HType,
		Goal:      h.Goal,
		Archived:  h.Archived,
		CreatedAt: h.CreatedAt,
		StartDate: h.StartDate.Format(DateLayout),
	}
}

type HabitLog struct {
	ID        int
	HabitID   int
	Date      time.Time
	Value     *int
	Completed bool
	CreatedAt time.Time
}

type HabitLogOut struct {
	ID        int    `json:"id"`
	HabitID   int    `json:"habit_id"`
	Date      string `json:"date"`
	Value     *int   `json:"value"`
	Completed bool   `json:"completed"`
}

func (l HabitLog) Out() HabitLogOut {
	return HabitLogOut{
		ID:        l.ID,
		HabitID:   l.HabitID,
		Date:      l.Date.Format(DateLayout),
		Value:     l.Value,
		Completed: l.Completed,
	}
}
