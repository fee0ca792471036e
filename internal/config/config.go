// Package config 載入與校驗服務配置。
// 配置來源為單一 YAML 文件；文件缺失時使用內建默認值啟動，
// 以便本地零配置跑通整條流水線。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig HTTP 服務配置
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LLMConfig 推理服務配置
type LLMConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
}

// GenerationConfig 生成階段配置
type GenerationConfig struct {
	MaxWorkers    int `yaml:"max_workers"`
	Retries       int `yaml:"retries"`
	BackoffMillis int `yaml:"backoff_millis"`
}

// MetricsConfig 指標端點配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TasksConfig 任務保留策略
type TasksConfig struct {
	RetentionHours         int `yaml:"retention_hours"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

// Config 服務完整配置
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Tasks      TasksConfig      `yaml:"tasks"`
}

// Default 返回內建默認配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		LLM: LLMConfig{
			BaseURL:        "http://127.0.0.1:11434",
			Model:          "qwen2.5:7b",
			TimeoutSeconds: 120,
			Temperature:    0.3,
			MaxTokens:      4096,
		},
		Generation: GenerationConfig{
			MaxWorkers:    4,
			Retries:       2,
			BackoffMillis: 500,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		Tasks: TasksConfig{
			RetentionHours:         24,
			CleanupIntervalMinutes: 60,
		},
	}
}

// Load 讀取 YAML 配置文件並疊加在默認值之上。
// path 為空時直接返回默認配置。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 校驗配置的合法性
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url must not be empty")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("llm.timeout_seconds must be positive, got %d", c.LLM.TimeoutSeconds)
	}
	if c.Generation.MaxWorkers < 1 || c.Generation.MaxWorkers > 8 {
		return fmt.Errorf("generation.max_workers must be in [1,8], got %d", c.Generation.MaxWorkers)
	}
	if c.Generation.Retries < 0 {
		return fmt.Errorf("generation.retries must not be negative, got %d", c.Generation.Retries)
	}
	if c.Tasks.RetentionHours <= 0 {
		return fmt.Errorf("tasks.retention_hours must be positive, got %d", c.Tasks.RetentionHours)
	}
	return nil
}

// LLMTimeout 單次推理呼叫的超時時間
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// GenerationBackoff 生成階段重試之間的等待時間
func (c *Config) GenerationBackoff() time.Duration {
	return time.Duration(c.Generation.BackoffMillis) * time.Millisecond
}

// TaskRetention 終止任務的保留時長
func (c *Config) TaskRetention() time.Duration {
	return time.Duration(c.Tasks.RetentionHours) * time.Hour
}

// CleanupInterval 清理循環的觸發間隔
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Tasks.CleanupIntervalMinutes) * time.Minute
}
