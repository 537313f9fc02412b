package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habittracker/internal/model"
	"habittracker/internal/service"
)

type HabitHandler struct {
	habitService *service.HabitService
	logger       *zap.Logger
}

func NewHabitHandler(habitService *service.HabitService, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{
		habitService: habitService,
		logger:       logger,
	}
}

// Create handles POST /api/habits
func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req model.HabitCreateRequest
	if !bindJSON(c, &req) {
		return
	}

	habit, err := h.habitService.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, habit.Out())
}

// List handles GET /api/habits
func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	habits, err := h.habitService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]model.HabitOut, 0, len(habits))
	for _, habit := range habits {
		out = append(out, habit.Out())
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /api/habits/:id
func (h *HabitHandler) Get(c *gin.Context) {
	userID, habitID, ok := h.target(c)
	if !ok {
		return
	}

	habit, err := h.habitService.Get(c.Request.Context(), userID, habitID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, habit.Out())
}

// Update handles PATCH /api/habits/:id
func (h *HabitHandler) Update(c *gin.Context) {
	userID, habitID, ok := h.target(c)
	if !ok {
		return
	}

	var req model.HabitUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	habit, err := h.habitService.Update(c.Request.Context(), userID, habitID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, habit.Out())
}

// Archive handles DELETE /api/habits/:id
func (h *HabitHandler) Archive(c *gin.Context) {
	userID, habitID, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.habitService.Archive(c.Request.Context(), userID, habitID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Habit archived"})
}

// UpsertLog handles POST /api/habits/:id/logs
func (h *HabitHandler) UpsertLog(c *gin.Context) {
	userID, habitID, ok := h.target(c)
	if !ok {
		return
	}

	var req model.HabitLogUpsertRequest
	if !bindJSON(c, &req) {
		return
	}

	l, err := h.habitService.UpsertLog(c.Request.Context(), userID, habitID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, l.Out())
}

// Logs handles GET /api/habits/:id/logs?start_date=&end_date=
func (h *HabitHandler) Logs(c *gin.Context) {
	userID, habitID, ok := h.target(c)
	if !ok {
		return
	}
	start, ok := queryDate(c, "start_date")
	if !ok {
		return
	}
	end, ok := queryDate(c, "end_date")
	if !ok {
		return
	}

	logs, err := h.habitService.Logs(c.Request.Context(), userID, habitID, start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]model.HabitLogOut, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.Out())
	}
	c.JSON(http.StatusOK, out)
}

// Insights handles GET /api/habits/:id/insights?today=
func (h *HabitHandler) Insights(c *gin.Context) {
	userID, habitID, ok := h.target(c)
	if !ok {
		return
	}
	today, ok := queryDate(c, "today")
	if !ok {
		return
	}

	insight, err := h.habitService.Insights(c.Request.Context(), userID, habitID, today)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, insight)
}

// WeeklyTrend handles GET /api/habits/:id/trends/weekly?today=
func (h *HabitHandler) WeeklyTrend(c *gin.Context) {
	userID, habitID, ok := h.target(c)
	if !ok {
		return
	}
	today, ok := queryDate(c, "today")
	if !ok {
		return
	}

	buckets, err := h.habitService.WeeklyTrend(c.Request.Context(), userID, habitID, today)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, buckets)
}

// MonthlyTrend handles GET /api/habits/:id/trends/monthly?today=
func (h *HabitHandler) MonthlyTrend(c *gin.Context) {
	userID, habitID, ok := h.target(c)
	if !ok {
		return
	}
	today, ok := queryDate(c, "today")
	if !ok {
		return
	}

	buckets, err := h.habitService.MonthlyTrend(c.Request.Context(), userID, habitID, today)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, buckets)
}

// ChartData handles GET /api/habits/:id/chart-data?days=30&today=
func (h *HabitHandler) ChartData(c *gin.Context) {
	userID, habitID, ok := h.target(c)
	if !ok {
		return
	}
	today, ok := queryDate(c, "today")
	if !ok {
		return
	}

	days := service.DefaultChartDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "days must be an integer")
			return
		}
		days = n
	}

	points, err := h.habitService.ChartData(c.Request.Context(), userID, habitID, today, days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, points)
}

// target 读取当前用户和路径中的习惯 id
func (h *HabitHandler) target(c *gin.Context) (userID, habitID int, ok bool) {
	userID, ok = getUserID(c)
	if !ok {
		return 0, 0, false
	}
	habitID, ok = pathID(c)
	return userID, habitID, ok
}
