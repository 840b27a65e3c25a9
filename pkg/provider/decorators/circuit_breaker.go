package decorators

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"tradeglob/pkg/logger"
	"tradeglob/pkg/market"
	"tradeglob/pkg/provider"
)

// CircuitBreakerConfig 熔断器配置。
type CircuitBreakerConfig struct {
	Name        string        `json:"name" mapstructure:"name"`
	MaxRequests uint32        `json:"max_requests" mapstructure:"max_requests"`   // 半开状态下的最大请求数
	Interval    time.Duration `json:"interval" mapstructure:"interval"`           // 统计窗口时间
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`             // 熔断后的恢复时间
	ReadyToTrip uint32        `json:"ready_to_trip" mapstructure:"ready_to_trip"` // 触发熔断的连续失败次数
	Enabled     bool          `json:"enabled" mapstructure:"enabled"`
}

// DefaultCircuitBreakerConfig 默认熔断器配置。
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        "HistoricalProvider",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: 5,
		Enabled:     true,
	}
}

// CircuitBreakerStats 熔断器统计信息。
type CircuitBreakerStats struct {
	TotalRequests      int64     `json:"total_requests"`
	SuccessfulRequests int64     `json:"successful_requests"`
	FailedRequests     int64     `json:"failed_requests"`
	LastFailure        time.Time `json:"last_failure"`
}

// CircuitBreakerProvider 熔断器装饰器，基于 sony/gobreaker。
// 确定性失败（校验错误、无数据）不计入熔断统计，
// 只有连接类错误会累积触发熔断。
type CircuitBreakerProvider struct {
	*BaseDecorator

	cb     *gobreaker.CircuitBreaker
	config CircuitBreakerConfig

	mu    sync.RWMutex
	stats CircuitBreakerStats
}

// NewCircuitBreakerProvider 创建熔断器装饰器。
func NewCircuitBreakerProvider(base provider.HistoricalProvider, config CircuitBreakerConfig) *CircuitBreakerProvider {
	log := logger.WithComponent("circuit-breaker")

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ReadyToTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("熔断器 %s 状态从 %v 变更为 %v", name, from, to)
		},
	}

	return &CircuitBreakerProvider{
		BaseDecorator: NewBaseDecorator(base),
		cb:            gobreaker.NewCircuitBreaker(settings),
		config:        config,
	}
}

// Name 返回装饰器名称。
func (c *CircuitBreakerProvider) Name() string {
	return fmt.Sprintf("CircuitBreaker(%s)", c.base.Name())
}

// IsHealthy 熔断器打开状态视为不健康。
func (c *CircuitBreakerProvider) IsHealthy() bool {
	if !c.config.Enabled {
		return c.base.IsHealthy()
	}
	return c.cb.State() != gobreaker.StateOpen && c.base.IsHealthy()
}

// FetchBars 通过熔断器执行请求。
func (c *CircuitBreakerProvider) FetchBars(ctx context.Context, symbol, exchange string, interval market.Interval, nBars int) ([]market.Bar, error) {
	if !c.config.Enabled {
		return c.base.FetchBars(ctx, symbol, exchange, interval, nBars)
	}

	c.mu.Lock()
	c.stats.TotalRequests++
	c.mu.Unlock()

	result, err := c.cb.Execute(func() (interface{}, error) {
		bars, err := c.base.FetchBars(ctx, symbol, exchange, interval, nBars)
		if err != nil && !market.IsRetryable(err) {
			// 确定性失败绕过熔断统计，包一层哨兵后在外侧还原。
			return deterministicFailure{err}, nil
		}
		return bars, err
	})

	if err != nil {
		c.recordFailure()
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, market.WrapError(market.ErrCircuitOpen, "circuit breaker rejected request", err)
		}
		return nil, err
	}
	if f, ok := result.(deterministicFailure); ok {
		c.recordFailure()
		return nil, f.err
	}

	c.mu.Lock()
	c.stats.SuccessfulRequests++
	c.mu.Unlock()
	return result.([]market.Bar), nil
}

type deterministicFailure struct{ err error }

func (c *CircuitBreakerProvider) recordFailure() {
	c.mu.Lock()
	c.stats.FailedRequests++
	c.stats.LastFailure = time.Now()
	c.mu.Unlock()
}

// State 返回熔断器当前状态。
func (c *CircuitBreakerProvider) State() gobreaker.State {
	return c.cb.State()
}

// Stats 返回统计信息快照。
func (c *CircuitBreakerProvider) Stats() CircuitBreakerStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

var _ Decorator = (*CircuitBreakerProvider)(nil)
