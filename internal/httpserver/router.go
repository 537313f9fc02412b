package httpserver

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"habittracker/internal/handler"
	"habittracker/pkg/db"
	"habittracker/pkg/otel"
	"habittracker/pkg/trace"
)

// ConnChecker reports whether a long-lived connection (the MQ publisher) is up.
type ConnChecker interface {
	IsConnected() bool
}

type Handlers struct {
	Auth   *handler.AuthHandler
	Habit  *handler.HabitHandler
	Export *handler.ExportHandler
}

type Options struct {
	JWTSecret   string
	CORSOrigins []string
	Logger      *zap.Logger

	DB db.Pinger
	// Redis 和 Publisher 可选，为 nil 时不参与 readiness 检查
	Redis     *redis.Client
	Publisher ConnChecker
}

type Router struct {
	Engine *gin.Engine
}

var registerValidators sync.Once

// RegisterValidators adds the custom binding rules (notblank) to gin's
// validator. Safe to call more than once.
func RegisterValidators() {
	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("notblank", validators.NotBlank)
		}
	})
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", trace.HeaderName},
		ExposeHeaders: []string{"Content-Disposition", trace.HeaderName},
		MaxAge:        12 * time.Hour,
	}

	var explicit []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
		if o != "" {
			explicit = append(explicit, o)
		}
	}
	if len(explicit) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = explicit
	return cfg
}

func NewRouter(h Handlers, opts Options) *Router {
	RegisterValidators()

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		TraceMiddleware(),
		otel.GinMiddleware(),
		RequestLogger(log),
		MetricsMiddleware(),
		cors.New(corsConfig(opts.CORSOrigins)),
	)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Habit Tracker API"})
	})

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", readyz(opts))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Public
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)

	// Protected
	auth := api.Group("/")
	auth.Use(AuthMiddleware(opts.JWTSecret))
	{
		auth.POST("/habits", h.Habit.Create)
		auth.GET("/habits", h.Habit.List)
		auth.GET("/habits/:id", h.Habit.Get)
		auth.PATCH("/habits/:id", h.Habit.Update)
		auth.DELETE("/habits/:id", h.Habit.Archive)

		auth.POST("/habits/:id/logs", h.Habit.UpsertLog)
		auth.GET("/habits/:id/logs", h.Habit.Logs)

		auth.GET("/habits/:id/insights", h.Habit.Insights)
		auth.GET("/habits/:id/trends/weekly", h.Habit.WeeklyTrend)
		auth.GET("/habits/:id/trends/monthly", h.Habit.MonthlyTrend)
		auth.GET("/habits/:id/chart-data", h.Habit.ChartData)

		auth.GET("/export/csv", h.Export.CSV)
		auth.GET("/export/pdf", h.Export.PDF)
	}

	return &Router{Engine: r}
}

func readyz(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if opts.DB != nil {
			if err := opts.DB.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}

		if opts.Redis != nil {
			if err := opts.Redis.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis_not_ready", "error": err.Error()})
				return
			}
		}

		if opts.Publisher != nil && !opts.Publisher.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Engine.ServeHTTP(w, req)
}
