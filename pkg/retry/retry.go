package retry

import (
	"context"
	"time"

	"tradeglob/pkg/logger"
	"tradeglob/pkg/market"
)

// Config 重试策略配置。
type Config struct {
	// MaxAttempts 最大尝试次数（含首次）。
	MaxAttempts int `json:"max_attempts" mapstructure:"max_attempts"`
	// Delay 首次重试前的等待时间。
	Delay time.Duration `json:"delay" mapstructure:"delay"`
	// Backoff 每次重试后等待时间的乘数。1.0 表示固定间隔。
	Backoff float64 `json:"backoff" mapstructure:"backoff"`
	// MaxDelay 等待时间上限，0 表示不设上限。
	MaxDelay time.Duration `json:"max_delay" mapstructure:"max_delay"`
}

// DefaultConfig 返回默认重试配置。
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 20,
		Delay:       500 * time.Millisecond,
		Backoff:     1.0,
		MaxDelay:    5 * time.Second,
	}
}

// Do 按配置执行 op 并在可重试错误上重试。
// 只有 market.IsRetryable 判定为瞬时的错误才会触发重试，
// 校验错误、无数据等确定性失败立即返回。
// 次数耗尽后返回包装了最后一次错误的 ErrRetryExhausted。
func Do[T any](ctx context.Context, config Config, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	log := logger.WithComponent("retry")
	delay := config.Delay
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, market.WrapError(market.ErrTimeout, "context cancelled", err)
		}

		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.Infof("%s 在第 %d 次尝试成功", name, attempt)
			}
			return result, nil
		}
		lastErr = err

		if !market.IsRetryable(err) {
			return zero, err
		}
		if attempt == config.MaxAttempts {
			break
		}

		log.Warnf("%s 第 %d/%d 次尝试失败: %v，%v 后重试",
			name, attempt, config.MaxAttempts, err, delay)

		if err := sleep(ctx, delay); err != nil {
			return zero, market.WrapError(market.ErrTimeout, "context cancelled during backoff", err)
		}
		delay = nextDelay(delay, config)
	}

	return zero, market.WrapError(market.ErrRetryExhausted,
		"all retry attempts exhausted", lastErr).
		WithContext("attempts", config.MaxAttempts).
		WithContext("operation", name)
}

// nextDelay 计算下一次等待时间。
func nextDelay(current time.Duration, config Config) time.Duration {
	if config.Backoff <= 1.0 {
		return current
	}
	next := time.Duration(float64(current) * config.Backoff)
	if config.MaxDelay > 0 && next > config.MaxDelay {
		next = config.MaxDelay
	}
	return next
}

// sleep 可被上下文取消的等待。
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
