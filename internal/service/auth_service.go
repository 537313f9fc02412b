package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"habittracker/internal/model"
	"habittracker/pkg/logger"
	"habittracker/pkg/metrics"
	"habittracker/pkg/util"
)

const defaultMaxLoginFailures = 5

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// MaxFailures 达到后拒绝登录，直到计数窗口过期
	MaxFailures int
}

type AuthService struct {
	users    UserStore
	attempts AttemptCounter
	cfg      AuthConfig
	logger   *zap.Logger
}

// NewAuthService builds the auth service. attempts may be nil, which turns
// login throttling off.
func NewAuthService(users UserStore, attempts AttemptCounter, cfg AuthConfig, logger *zap.Logger) *AuthService {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxLoginFailures
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:    users,
		attempts: attempts,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register creates a new user.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	log := logger.WithTrace(ctx, s.logger)
	email = normalizeEmail(email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		// 并发注册同一邮箱时由唯一约束兜底
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.Info("User registered", zap.Int("user_id", u.ID))
	return u, nil
}

// Login checks user credentials and returns a signed JWT with the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	log := logger.WithTrace(ctx, s.logger)
	email = normalizeEmail(email)

	if s.throttled(ctx, email) {
		metrics.IncrementLoginAttempt("throttled")
		log.Warn("Login throttled", zap.String("email", email))
		return "", nil, ErrTooManyAttempts
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil && !isNotFound(err) {
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || !util.CheckPassword(password, u.PasswordHash) {
		s.recordFailure(ctx, email)
		metrics.IncrementLoginAttempt("failure")
		return "", nil, ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(u.ID, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	if s.attempts != nil {
		if err := s.attempts.Reset(ctx, email); err != nil {
			log.Warn("Failed to reset login attempts", zap.Error(err))
		}
	}

	metrics.IncrementLoginAttempt("success")
	log.Info("User logged in", zap.Int("user_id", u.ID))
	return token, u, nil
}

// throttled 计数器不可用时放行
func (s *AuthService) throttled(ctx context.Context, email string) bool {
	if s.attempts == nil {
		return false
	}
	count, err := s.attempts.Get(ctx, email)
	if err != nil {
		s.logger.Warn("Failed to read login attempts", zap.Error(err))
		return false
	}
	return count >= int64(s.cfg.MaxFailures)
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.attempts == nil {
		return
	}
	if _, err := s.attempts.Increment(ctx, email); err != nil {
		s.logger.Warn("Failed to record login failure", zap.Error(err))
	}
}

// normalizeEmail 邮箱按小写存储和比较
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
