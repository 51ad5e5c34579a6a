package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"solvebox/internal/common/cache"
	"solvebox/internal/common/http/middleware"
	"solvebox/internal/judge/evaluator"
	"solvebox/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "127.0.0.1:5000"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultProblemsDir  = "problems"
	defaultProgressPath = "progress.json"
	defaultRedisTimeout = time.Second

	progressBackendFile  = "file"
	progressBackendRedis = "redis"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// ProblemsConfig locates the problem catalogue.
type ProblemsConfig struct {
	Dir string `yaml:"dir"`
	// ReloadOnRead rescans the directory on every request.
	ReloadOnRead bool `yaml:"reloadOnRead"`
}

// EvaluatorConfig holds code execution settings.
type EvaluatorConfig struct {
	Interpreter    []string      `yaml:"interpreter"`
	CaseTimeout    time.Duration `yaml:"caseTimeout"`
	MaxCodeBytes   int           `yaml:"maxCodeBytes"`
	MaxOutputBytes int           `yaml:"maxOutputBytes"`
	// MaxConcurrent bounds simultaneous interpreter processes; 0 is unbounded.
	MaxConcurrent int    `yaml:"maxConcurrent"`
	TempDir       string `yaml:"tempDir"`
}

// ProgressConfig selects where solved problems are recorded.
type ProgressConfig struct {
	Backend string        `yaml:"backend"` // file or redis
	Path    string        `yaml:"path"`
	Key     string        `yaml:"key"`
	Timeout time.Duration `yaml:"timeout"`
}

// RateLimitConfig guards POST /run. It requires redis.
type RateLimitConfig struct {
	Policy       middleware.RateLimitPolicy `yaml:",inline"`
	RedisTimeout time.Duration              `yaml:"redisTimeout"`
}

// Enabled reports whether any limit is set.
func (c RateLimitConfig) Enabled() bool {
	return c.Policy.IPMax > 0 || c.Policy.RouteMax > 0
}

// AppConfig holds the evaluation server configuration.
type AppConfig struct {
	Server    ServerConfig          `yaml:"server"`
	Logger    logger.Config         `yaml:"logger"`
	Problems  ProblemsConfig        `yaml:"problems"`
	Evaluator EvaluatorConfig       `yaml:"evaluator"`
	Progress  ProgressConfig        `yaml:"progress"`
	Redis     cache.RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig       `yaml:"rateLimit"`
	CORS      middleware.CORSConfig `yaml:"cors"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// loadAppConfig reads path and applies defaults. A missing file at the
// default location yields the defaults.
func loadAppConfig(path string, required bool) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		if required || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Problems.Dir == "" {
		cfg.Problems.Dir = defaultProblemsDir
	}

	if len(cfg.Evaluator.Interpreter) == 0 {
		cfg.Evaluator.Interpreter = []string{evaluator.DefaultInterpreter}
	}
	if cfg.Evaluator.CaseTimeout == 0 {
		cfg.Evaluator.CaseTimeout = evaluator.DefaultCaseTimeout
	}
	if cfg.Evaluator.MaxCodeBytes == 0 {
		cfg.Evaluator.MaxCodeBytes = evaluator.DefaultMaxCodeBytes
	}

	cfg.Progress.Backend = strings.ToLower(strings.TrimSpace(cfg.Progress.Backend))
	switch cfg.Progress.Backend {
	case "", progressBackendFile:
		cfg.Progress.Backend = progressBackendFile
		if cfg.Progress.Path == "" {
			cfg.Progress.Path = defaultProgressPath
		}
	case progressBackendRedis:
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis progress backend")
		}
	default:
		return fmt.Errorf("unknown progress backend: %s", cfg.Progress.Backend)
	}

	if cfg.RateLimit.Enabled() && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required for rate limiting")
	}
	if cfg.RateLimit.Policy.Window == 0 {
		cfg.RateLimit.Policy.Window = time.Minute
	}
	if cfg.RateLimit.RedisTimeout == 0 {
		cfg.RateLimit.RedisTimeout = defaultRedisTimeout
	}
	if cfg.Redis.Addr != "" {
		cfg.Redis.ApplyDefaults()
	}
	return nil
}
