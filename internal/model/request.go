package model

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,notblank"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        UserOut `json:"user"`
}

type HabitCreateRequest struct {
	Name      string    `json:"name" binding:"required,notblank"`
	HType     HabitType `json:"htype" binding:"required,oneof=boolean quantity time"`
	Goal      *int      `json:"goal" binding:"omitempty,min=0,max=2147483647"`
	StartDate string    `json:"start_date" binding:"required,datetime=2006-01-02"`
}

// HabitUpdateRequest 字段为 nil 表示不修改
type HabitUpdateRequest struct {
	Name     *string `json:"name" binding:"omitempty,notblank"`
	Goal     *int    `json:"goal" binding:"omitempty,min=0,max=2147483647"`
	Archived *bool   `json:"archived"`
}

// HabitLogUpsertRequest 中 Value/Completed 为 nil 表示保持原值，Value 受 INTEGER 列范围限制
type HabitLogUpsertRequest struct {
	Date      string `json:"date" binding:"required,datetime=2006-01-02"`
	Value     *int   `json:"value" binding:"omitempty,min=-2147483648,max=2147483647"`
	Completed *bool  `json:"completed"`
}
