package main

import (
	"fmt"
	"os"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	"codearena/internal/common/mq"
	"codearena/internal/common/storage"
	"codearena/internal/judge/service"
	"codearena/internal/sandbox/profile"
	"codearena/internal/sandbox/remote"
	"codearena/internal/sandbox/vm"
	"codearena/pkg/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8088"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// SandboxConfig holds local process sandbox settings.
type SandboxConfig struct {
	TempRoot  string                 `yaml:"tempRoot"`
	Languages []profile.LanguageSpec `yaml:"languages"`
}

// ExecConfig holds execution pipeline settings.
type ExecConfig struct {
	SubmissionTopic string `yaml:"submissionTopic"`
	StatusTopic     string `yaml:"statusTopic"`
	TestDataBucket  string `yaml:"testDataBucket"`
}

// AppConfig holds exec-service configuration.
type AppConfig struct {
	Server   ServerConfig        `yaml:"server"`
	Logger   logger.Config       `yaml:"logger"`
	Database db.MySQLConfig      `yaml:"database"`
	Redis    cache.RedisConfig   `yaml:"redis"`
	Kafka    mq.KafkaConfig      `yaml:"kafka"`
	MinIO    storage.MinIOConfig `yaml:"minio"`
	Sandbox  SandboxConfig       `yaml:"sandbox"`
	Remote   remote.Config       `yaml:"remote"`
	VM       vm.Config           `yaml:"vm"`
	Judge    service.Config      `yaml:"judge"`
	Exec     ExecConfig          `yaml:"exec"`
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

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
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

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	if cfg.Exec.SubmissionTopic == "" {
		cfg.Exec.SubmissionTopic = "judge.submissions"
	}
	if cfg.Exec.StatusTopic == "" {
		cfg.Exec.StatusTopic = "judge.status.final"
	}
	if cfg.Exec.TestDataBucket == "" {
		cfg.Exec.TestDataBucket = cfg.MinIO.Bucket
	}

	return &cfg, nil
}
