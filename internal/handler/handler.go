package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habittracker/internal/model"
	"habittracker/internal/service"
	"habittracker/pkg/logger"
)

// ContextUserID 是 AuthMiddleware 写入 gin.Context 的 key
const ContextUserID = "user_id"

// getUserID 统一的 userID 读取工具
func getUserID(c *gin.Context) (int, bool) {
	userID, ok := c.Get(ContextUserID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	return userID.(int), true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// bindJSON 绑定并校验请求体，失败时已写入 400
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return false
	}
	return true
}

// pathID 解析路径中的 :id，失败时已写入 400
func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, "invalid habit id")
		return 0, false
	}
	return id, true
}

// queryDate 解析可选的 YYYY-MM-DD 查询参数，缺省返回 nil
func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		badRequest(c, name+" must be YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

// respondError maps service errors to status codes. Unknown errors are logged
// and reported as a generic 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Habit not found"})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, service.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidRange), errors.Is(err, service.ErrInvalidInput):
		badRequest(c, err.Error())
	default:
		logger.WithTrace(c.Request.Context(), log).Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
