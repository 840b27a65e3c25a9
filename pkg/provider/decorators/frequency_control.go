package decorators

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradeglob/pkg/market"
	"tradeglob/pkg/provider"
)

// FrequencyControlConfig 频率控制配置。
type FrequencyControlConfig struct {
	// MinInterval 相邻请求之间的最小间隔。
	MinInterval time.Duration `json:"min_interval" mapstructure:"min_interval"`
	Enabled     bool          `json:"enabled" mapstructure:"enabled"`
}

// DefaultFrequencyControlConfig 默认频率控制配置。
func DefaultFrequencyControlConfig() FrequencyControlConfig {
	return FrequencyControlConfig{
		MinInterval: 200 * time.Millisecond,
		Enabled:     true,
	}
}

// FrequencyControlProvider 频率控制装饰器。
// 全局串行化对基础提供商的请求并保证最小间隔，
// 等待期间响应上下文取消。
type FrequencyControlProvider struct {
	*BaseDecorator

	config      FrequencyControlConfig
	mu          sync.Mutex
	lastRequest time.Time
}

// NewFrequencyControlProvider 创建频率控制装饰器。基础提供商
// 实现 RateLimited 且未显式配置间隔时，沿用提供商建议值。
func NewFrequencyControlProvider(base provider.HistoricalProvider, config FrequencyControlConfig) *FrequencyControlProvider {
	if config.MinInterval <= 0 {
		if rl, ok := base.(provider.RateLimited); ok {
			config.MinInterval = rl.RateLimit()
		}
		if config.MinInterval <= 0 {
			config.MinInterval = DefaultFrequencyControlConfig().MinInterval
		}
	}
	return &FrequencyControlProvider{
		BaseDecorator: NewBaseDecorator(base),
		config:        config,
	}
}

// Name 返回装饰器名称。
func (f *FrequencyControlProvider) Name() string {
	return fmt.Sprintf("FrequencyControl(%s)", f.base.Name())
}

// RateLimit 返回配置的最小间隔。
func (f *FrequencyControlProvider) RateLimit() time.Duration {
	return f.config.MinInterval
}

// FetchBars 等待间隔后转发请求。
func (f *FrequencyControlProvider) FetchBars(ctx context.Context, symbol, exchange string, interval market.Interval, nBars int) ([]market.Bar, error) {
	if f.config.Enabled {
		if err := f.wait(ctx); err != nil {
			return nil, err
		}
	}
	return f.base.FetchBars(ctx, symbol, exchange, interval, nBars)
}

// SearchSymbol 等待间隔后转发请求。
func (f *FrequencyControlProvider) SearchSymbol(ctx context.Context, query, exchange string) ([]provider.SymbolInfo, error) {
	if f.config.Enabled {
		if err := f.wait(ctx); err != nil {
			return nil, err
		}
	}
	return f.base.SearchSymbol(ctx, query, exchange)
}

func (f *FrequencyControlProvider) wait(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if remain := f.config.MinInterval - time.Since(f.lastRequest); remain > 0 {
		timer := time.NewTimer(remain)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return market.WrapError(market.ErrTimeout, "cancelled while rate limited", ctx.Err())
		case <-timer.C:
		}
	}
	f.lastRequest = time.Now()
	return nil
}

var _ Decorator = (*FrequencyControlProvider)(nil)
var _ provider.RateLimited = (*FrequencyControlProvider)(nil)
