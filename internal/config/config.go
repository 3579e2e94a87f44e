package config

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"cdpsession/internal/logger"
	"cdpsession/pkg/model"
)

// Config 配置文件结构体
type Config struct {
	Version string        `yaml:"version"`
	Sqlite  SqliteConfig  `yaml:"sqlite"`
	Log     LogConfig     `yaml:"log"`
	Session SessionConfig `yaml:"session"`
}

type SqliteConfig struct {
	Dsn    string `yaml:"dsn"`
	Prefix string `yaml:"prefix"`
}

type LogConfig struct {
	Level      string   `yaml:"level"`
	Writer     []string `yaml:"writer"`
	File       string   `yaml:"file"`
	MaxSizeMB  int      `yaml:"maxSizeMB"`
	MaxBackups int      `yaml:"maxBackups"`
	MaxAgeDays int      `yaml:"maxAgeDays"`
}

// CacheConfig 内容缓存预算，均为可读字节数（如 100MiB）
type CacheConfig struct {
	Budget    string `yaml:"budget"`
	PageSize  string `yaml:"pageSize"`
	AssetSize string `yaml:"assetSize"`
}

type SessionConfig struct {
	DevToolsURL string                `yaml:"devToolsURL"`
	Cache       CacheConfig           `yaml:"cache"`
	Concurrency int                   `yaml:"concurrency"`
	MaxRecords  int                   `yaml:"maxRecords"`
	RedactPaths []string              `yaml:"redactPaths"`
	Filters     []model.RequestFilter `yaml:"filters"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Version: "1.0.0",
		Sqlite: SqliteConfig{
			Dsn:    "db.sqlite3",
			Prefix: "cdpsession_",
		},
		Log: LogConfig{
			Level:  "debug",
			Writer: []string{"console", "file"},
			File:   "logs/cdpsession.log",
		},
		Session: SessionConfig{
			DevToolsURL: "http://127.0.0.1:9222",
			Cache: CacheConfig{
				Budget:    "100MiB",
				PageSize:  "512KiB",
				AssetSize: "64KiB",
			},
			Concurrency: 4,
			MaxRecords:  1000,
		},
	}
}

// Load 读取 YAML 配置并覆盖默认值
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewConfig()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if _, err := cfg.SessionConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoggerOptions 转换为日志配置
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Log.Level,
		Writers:    c.Log.Writer,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

// CacheCapacities 将字节预算换算为两层缓存的条目容量
//
// 页面层使用全部预算，资源层使用一半预算。
func (c *Config) CacheCapacities() (pages, assets int, err error) {
	budget, err := parseSize("session.cache.budget", c.Session.Cache.Budget)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := parseSize("session.cache.pageSize", c.Session.Cache.PageSize)
	if err != nil {
		return 0, 0, err
	}
	assetSize, err := parseSize("session.cache.assetSize", c.Session.Cache.AssetSize)
	if err != nil {
		return 0, 0, err
	}
	pages = int(budget / pageSize)
	assets = int(budget / 2 / assetSize)
	if pages < 1 {
		return 0, 0, &model.ConfigurationError{Component: "config", Field: "session.cache.pageSize", Value: c.Session.Cache.PageSize, Reason: "larger than the cache budget"}
	}
	if assets < 1 {
		return 0, 0, &model.ConfigurationError{Component: "config", Field: "session.cache.assetSize", Value: c.Session.Cache.AssetSize, Reason: "larger than half the cache budget"}
	}
	return pages, assets, nil
}

func parseSize(field, s string) (uint64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, &model.ConfigurationError{Component: "config", Field: field, Value: s, Reason: err.Error()}
	}
	if n == 0 {
		return 0, &model.ConfigurationError{Component: "config", Field: field, Value: s, Reason: "must be positive"}
	}
	return n, nil
}

// SessionConfig 生成会话构造参数
func (c *Config) SessionConfig() (model.SessionConfig, error) {
	pages, assets, err := c.CacheCapacities()
	if err != nil {
		return model.SessionConfig{}, err
	}
	if c.Session.Concurrency <= 0 {
		return model.SessionConfig{}, &model.ConfigurationError{Component: "config", Field: "session.concurrency", Value: c.Session.Concurrency, Reason: "must be a positive integer"}
	}
	if c.Session.MaxRecords <= 0 {
		return model.SessionConfig{}, &model.ConfigurationError{Component: "config", Field: "session.maxRecords", Value: c.Session.MaxRecords, Reason: "must be a positive integer"}
	}
	return model.SessionConfig{
		DevToolsURL:   c.Session.DevToolsURL,
		PageCapacity:  pages,
		AssetCapacity: assets,
		Concurrency:   c.Session.Concurrency,
		MaxRecords:    c.Session.MaxRecords,
		RedactPaths:   append([]string(nil), c.Session.RedactPaths...),
		Filters:       append([]model.RequestFilter(nil), c.Session.Filters...),
	}, nil
}
