package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"habittracker/pkg/config"
)

type Config struct {
	DB       config.DBConfig     `yaml:"db"`
	JWT      config.JWTConfig    `yaml:"jwt"`
	Server   config.ServerConfig `yaml:"server"`
	Redis    config.RedisConfig  `yaml:"redis"`
	MQ       config.MQConfig     `yaml:"mq"`
	Login    config.LoginConfig  `yaml:"login"`
	OTel     config.OTelConfig   `yaml:"otel"`
	LogLevel string              `yaml:"log_level"`
}

// Load reads config/<env>.yaml over config/base.yaml, then applies
// environment overrides and defaults.
func Load(env, dir string) (*Config, error) {
	raw, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideOTelFromEnv(&cfg.OTel)
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8000"
	}
	if c.Login.MaxFailures <= 0 {
		c.Login.MaxFailures = 5
	}
	if c.Login.Window <= 0 {
		c.Login.Window = 15 * time.Minute
	}
	if c.DB.SlowQueryThreshold <= 0 {
		c.DB.SlowQueryThreshold = 100 * time.Millisecond
	}
	if c.OTel.ServiceName == "" {
		c.OTel.ServiceName = "habittracker"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.DB.Host == "" || c.DB.Name == "" {
		return errors.New("db.host and db.name are required")
	}
	return nil
}
