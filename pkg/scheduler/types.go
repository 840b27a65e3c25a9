// Package scheduler 按 cron 表达式定时刷新行情缓存，
// 保证常用标的的缓存条目在TTL内始终有新鲜数据可用。
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// JobStatus 任务状态。
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusError    JobStatus = "error"
	JobStatusDisabled JobStatus = "disabled"
)

// JobConfig 刷新任务配置。
type JobConfig struct {
	Name     string `json:"name" mapstructure:"name"`
	Schedule string `json:"schedule" mapstructure:"schedule"` // cron 表达式，支持秒级字段

	Symbols  []string `json:"symbols" mapstructure:"symbols"`
	Exchange string   `json:"exchange" mapstructure:"exchange"`
	Interval string   `json:"interval" mapstructure:"interval"`
	NBars    int      `json:"n_bars" mapstructure:"n_bars"`

	// Export 刷新成功后按导出配置写出文件。
	Export  bool `json:"export" mapstructure:"export"`
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Timeout 单次执行的超时时间，零值为5分钟。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// JobsConfig 任务配置文件的根结构。
type JobsConfig struct {
	Jobs []JobConfig `json:"jobs" mapstructure:"jobs"`
}

// Job 运行期任务。
type Job struct {
	ID      string       `json:"id"`
	Config  JobConfig    `json:"config"`
	Status  JobStatus    `json:"status"`
	EntryID cron.EntryID `json:"-"`

	LastRun    *time.Time `json:"last_run,omitempty"`
	NextRun    *time.Time `json:"next_run,omitempty"`
	RunCount   int64      `json:"run_count"`
	ErrorCount int64      `json:"error_count"`
	LastError  error      `json:"-"`
}

// Executor 任务执行器，由调用方注入实际的刷新逻辑。
type Executor interface {
	Execute(ctx context.Context, job *Job) error
}
