// Package config 定义了获取器、缓存、导出等各子系统的配置结构，
// 以及默认值、校验与文件加载。
package config

import (
	"errors"
	"fmt"
	"time"

	"tradeglob/pkg/logger"
)

// Config 主配置结构。
type Config struct {
	// 数据提供商配置
	Provider ProviderConfig `json:"provider" mapstructure:"provider"`

	// 获取编排配置（重试、并发、质量检查）
	Fetcher FetcherConfig `json:"fetcher" mapstructure:"fetcher"`

	// 缓存配置
	Cache CacheConfig `json:"cache" mapstructure:"cache"`

	// 导出配置
	Export ExportConfig `json:"export" mapstructure:"export"`

	// 日志配置
	Logger logger.Config `json:"logger" mapstructure:"logger"`
}

// ProviderConfig 数据提供商配置。
type ProviderConfig struct {
	Name      string        `json:"name" mapstructure:"name"`             // 提供商名称 ("http", "mock")
	BaseURL   string        `json:"base_url" mapstructure:"base_url"`     // HTTP提供商的基础URL
	Username  string        `json:"username" mapstructure:"username"`     // 可选认证用户名
	Password  string        `json:"password" mapstructure:"password"`     // 可选认证密码
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`       // 连接超时
	RateLimit time.Duration `json:"rate_limit" mapstructure:"rate_limit"` // 两次请求的最小间隔
	UserAgent string        `json:"user_agent" mapstructure:"user_agent"` // 用户代理
}

// FetcherConfig 获取编排配置。
type FetcherConfig struct {
	// 重试设置
	RetryAttempts int           `json:"retry_attempts" mapstructure:"retry_attempts"` // 总尝试次数
	RetryDelay    time.Duration `json:"retry_delay" mapstructure:"retry_delay"`       // 初始重试延迟
	RetryBackoff  float64       `json:"retry_backoff" mapstructure:"retry_backoff"`   // 退避因子（1.0为固定延迟）
	RetryMaxDelay time.Duration `json:"retry_max_delay" mapstructure:"retry_max_delay"`

	// 并发设置
	MaxWorkers int `json:"max_workers" mapstructure:"max_workers"` // 批量获取的工作池大小

	// 按日期范围推算K线数量的参数
	SafetyBuffer    float64 `json:"safety_buffer" mapstructure:"safety_buffer"`         // 数量放大系数（1.3即30%余量）
	MinBarsDaily    int     `json:"min_bars_daily" mapstructure:"min_bars_daily"`       // Daily 粒度的数量下限
	MinBarsWeekly   int     `json:"min_bars_weekly" mapstructure:"min_bars_weekly"`     // Weekly 粒度的数量下限
	MinBarsMonthly  int     `json:"min_bars_monthly" mapstructure:"min_bars_monthly"`   // Monthly 粒度的数量下限
	MinBarsIntraday int     `json:"min_bars_intraday" mapstructure:"min_bars_intraday"` // 日内粒度的数量下限

	// 质量检查设置
	ValidateData bool `json:"validate_data" mapstructure:"validate_data"` // 是否执行质量检查
	Strict       bool `json:"strict" mapstructure:"strict"`               // 严格模式：违规直接失败而非警告
}

// CacheConfig 缓存配置。
type CacheConfig struct {
	Enabled         bool          `json:"enabled" mapstructure:"enabled"`
	Backend         string        `json:"backend" mapstructure:"backend"` // disk, memory, redis, layered
	Dir             string        `json:"dir" mapstructure:"dir"`         // 磁盘缓存目录
	TTL             time.Duration `json:"ttl" mapstructure:"ttl"`         // 条目生存时间
	MaxSize         int64         `json:"max_size" mapstructure:"max_size"`
	CleanupInterval time.Duration `json:"cleanup_interval" mapstructure:"cleanup_interval"`

	Redis RedisConfig `json:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 缓存后端配置。
type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
}

// ExportConfig 导出配置。
type ExportConfig struct {
	OutputDir   string   `json:"output_dir" mapstructure:"output_dir"`     // 导出文件目录
	Formats     []string `json:"formats" mapstructure:"formats"`           // 默认导出格式列表
	FillMissing float64  `json:"fill_missing" mapstructure:"fill_missing"` // 缺失值的替代值
	TimeFormat  string   `json:"time_format" mapstructure:"time_format"`   // 时间列的文本格式
}

// Default 返回默认配置。重试、缓存与数量推算的默认值
// 与数据源的行为约定保持一致。
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:      "http",
			Timeout:   60 * time.Second,
			RateLimit: 200 * time.Millisecond,
			UserAgent: "TradeGlob/1.0",
		},
		Fetcher: FetcherConfig{
			RetryAttempts:   20,
			RetryDelay:      500 * time.Millisecond,
			RetryBackoff:    1.0,
			RetryMaxDelay:   5 * time.Second,
			MaxWorkers:      5,
			SafetyBuffer:    1.3,
			MinBarsDaily:    100,
			MinBarsWeekly:   20,
			MinBarsMonthly:  6,
			MinBarsIntraday: 500,
			ValidateData:    true,
			Strict:          false,
		},
		Cache: CacheConfig{
			Enabled:         true,
			Backend:         "disk",
			Dir:             ".cache",
			TTL:             24 * time.Hour,
			MaxSize:         10000,
			CleanupInterval: 10 * time.Minute,
		},
		Export: ExportConfig{
			OutputDir:   ".",
			Formats:     []string{"csv", "parquet"},
			FillMissing: 0,
			TimeFormat:  "2006-01-02 15:04:05",
		},
		Logger: logger.Config{
			Level:  "info",
			Format: "text",
			Output: "console",
		},
	}
}

// Validate 校验配置。
func (c *Config) Validate() error {
	if c.Provider.Name == "" {
		return errors.New("provider name cannot be empty")
	}
	if c.Provider.Name == "http" && c.Provider.BaseURL == "" {
		return errors.New("provider base_url is required for the http provider")
	}
	if c.Provider.Timeout <= 0 {
		return errors.New("provider timeout must be positive")
	}
	if c.Provider.RateLimit < 0 {
		return errors.New("provider rate_limit cannot be negative")
	}

	if c.Fetcher.RetryAttempts < 1 {
		return errors.New("fetcher retry_attempts must be >= 1")
	}
	if c.Fetcher.RetryDelay < 0 {
		return errors.New("fetcher retry_delay cannot be negative")
	}
	if c.Fetcher.RetryBackoff < 1.0 {
		return errors.New("fetcher retry_backoff must be >= 1.0")
	}
	if c.Fetcher.MaxWorkers < 1 {
		return errors.New("fetcher max_workers must be >= 1")
	}
	if c.Fetcher.SafetyBuffer < 1.0 {
		return errors.New("fetcher safety_buffer must be >= 1.0")
	}

	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "disk", "memory", "redis", "layered":
		default:
			return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
		}
		if c.Cache.TTL <= 0 {
			return errors.New("cache ttl must be positive")
		}
		if c.Cache.Backend == "redis" || c.Cache.Backend == "layered" {
			if c.Cache.Redis.Addr == "" && c.Cache.Backend == "redis" {
				return errors.New("cache redis.addr is required for the redis backend")
			}
		}
	}

	return nil
}

// SetRetry 设置重试参数。
func (c *Config) SetRetry(attempts int, delay time.Duration, backoff float64) *Config {
	c.Fetcher.RetryAttempts = attempts
	c.Fetcher.RetryDelay = delay
	c.Fetcher.RetryBackoff = backoff
	return c
}

// SetMaxWorkers 设置批量获取的工作池大小。
func (c *Config) SetMaxWorkers(workers int) *Config {
	c.Fetcher.MaxWorkers = workers
	return c
}

// SetCacheTTL 设置缓存条目生存时间。
func (c *Config) SetCacheTTL(ttl time.Duration) *Config {
	c.Cache.TTL = ttl
	return c
}

// SetStrict 设置质量检查严格模式。
func (c *Config) SetStrict(strict bool) *Config {
	c.Fetcher.Strict = strict
	return c
}

// SetLogLevel 设置日志级别。
func (c *Config) SetLogLevel(level string) *Config {
	c.Logger.Level = level
	return c
}
