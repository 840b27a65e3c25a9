package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExecutor 记录执行过的任务名，用于验证调度行为。
type recordingExecutor struct {
	mu       sync.Mutex
	executed []string
	err      error
	done     chan struct{}
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{done: make(chan struct{}, 16)}
}

func (e *recordingExecutor) Execute(ctx context.Context, job *Job) error {
	e.mu.Lock()
	e.executed = append(e.executed, job.Config.Name)
	err := e.err
	e.mu.Unlock()
	e.done <- struct{}{}
	return err
}

func (e *recordingExecutor) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.executed...)
}

func validJobConfig(name string) JobConfig {
	return JobConfig{
		Name:     name,
		Schedule: "0 0 9 * * *",
		Symbols:  []string{"AAPL", "MSFT"},
		Exchange: "NASDAQ",
		Interval: "D",
		NBars:    100,
		Enabled:  true,
	}
}

func TestValidateJobConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*JobConfig)
		valid  bool
	}{
		{"valid", func(c *JobConfig) {}, true},
		{"descriptor schedule", func(c *JobConfig) { c.Schedule = "@hourly" }, true},
		{"empty name", func(c *JobConfig) { c.Name = "" }, false},
		{"empty schedule", func(c *JobConfig) { c.Schedule = "" }, false},
		{"bad schedule", func(c *JobConfig) { c.Schedule = "not a cron" }, false},
		{"no symbols", func(c *JobConfig) { c.Symbols = nil }, false},
		{"empty exchange", func(c *JobConfig) { c.Exchange = "" }, false},
		{"bad interval", func(c *JobConfig) { c.Interval = "2.5D" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validJobConfig("job")
			tt.mutate(&config)

			err := validateJobConfig(config)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAddAndRemoveJob(t *testing.T) {
	s := New(newRecordingExecutor())

	require.NoError(t, s.AddJob(validJobConfig("daily-refresh")))

	job, err := s.GetJob("daily-refresh")
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.NotEmpty(t, job.ID)

	// 重名任务被拒绝
	err = s.AddJob(validJobConfig("daily-refresh"))
	assert.Error(t, err)

	require.NoError(t, s.RemoveJob("daily-refresh"))
	_, err = s.GetJob("daily-refresh")
	assert.Error(t, err)

	err = s.RemoveJob("daily-refresh")
	assert.Error(t, err, "重复移除报错")
}

func TestDisabledJobNotScheduled(t *testing.T) {
	exec := newRecordingExecutor()
	s := New(exec)

	config := validJobConfig("paused")
	config.Enabled = false
	require.NoError(t, s.AddJob(config))

	job, err := s.GetJob("paused")
	require.NoError(t, err)
	assert.Equal(t, JobStatusDisabled, job.Status)

	// 禁用任务不能手动触发
	err = s.RunJob("paused")
	assert.Error(t, err)
	assert.Empty(t, exec.names())
}

func TestRunJobExecutesImmediately(t *testing.T) {
	exec := newRecordingExecutor()
	s := New(exec)

	require.NoError(t, s.AddJob(validJobConfig("manual")))
	require.NoError(t, s.RunJob("manual"))

	select {
	case <-exec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("任务未在预期时间内执行")
	}

	assert.Equal(t, []string{"manual"}, exec.names())

	// 等待状态簿记完成
	require.Eventually(t, func() bool {
		job, err := s.GetJob("manual")
		return err == nil && job.Status == JobStatusPending && job.RunCount == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunJobRecordsError(t *testing.T) {
	exec := newRecordingExecutor()
	exec.err = assert.AnError
	s := New(exec)

	require.NoError(t, s.AddJob(validJobConfig("failing")))
	require.NoError(t, s.RunJob("failing"))

	select {
	case <-exec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("任务未在预期时间内执行")
	}

	require.Eventually(t, func() bool {
		job, err := s.GetJob("failing")
		return err == nil && job.Status == JobStatusError && job.ErrorCount == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunJobUnknown(t *testing.T) {
	s := New(newRecordingExecutor())
	assert.Error(t, s.RunJob("nope"))
}

func TestGetAllJobsReturnsCopies(t *testing.T) {
	s := New(newRecordingExecutor())
	require.NoError(t, s.AddJob(validJobConfig("a")))
	require.NoError(t, s.AddJob(validJobConfig("b")))

	jobs := s.GetAllJobs()
	require.Len(t, jobs, 2)

	// 修改副本不影响调度器内部状态
	jobs[0].Status = JobStatusError
	name := jobs[0].Config.Name
	job, err := s.GetJob(name)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	content := `jobs:
  - name: us-daily
    schedule: "0 30 16 * * 1-5"
    symbols: ["AAPL", "MSFT"]
    exchange: NASDAQ
    interval: D
    n_bars: 200
    enabled: true
  - name: broken
    schedule: "not a cron"
    symbols: ["SPY"]
    exchange: AMEX
    interval: D
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := New(newRecordingExecutor())
	require.NoError(t, s.LoadConfig(path))

	// 无效条目被跳过，有效条目加载成功
	jobs := s.GetAllJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "us-daily", jobs[0].Config.Name)
	assert.Equal(t, 200, jobs[0].Config.NBars)
}

func TestLoadConfigMissingFile(t *testing.T) {
	s := New(newRecordingExecutor())
	assert.Error(t, s.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestStartAndStop(t *testing.T) {
	s := New(newRecordingExecutor())
	require.NoError(t, s.AddJob(validJobConfig("daily")))

	require.NoError(t, s.Start())

	job, err := s.GetJob("daily")
	require.NoError(t, err)
	require.NotNil(t, job.NextRun)
	assert.True(t, job.NextRun.After(time.Now().Add(-time.Second)))

	require.NoError(t, s.Stop())
}
