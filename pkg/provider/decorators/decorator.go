// Package decorators 提供可叠加在 HistoricalProvider 上的装饰器：
// 熔断器、频率控制。装饰器保持接口不变，可任意组合。
package decorators

import (
	"context"

	"tradeglob/pkg/market"
	"tradeglob/pkg/provider"
)

// Decorator 装饰器接口，可取出被装饰的基础提供商。
type Decorator interface {
	provider.HistoricalProvider

	// GetBaseProvider 返回被装饰的基础提供商。
	GetBaseProvider() provider.HistoricalProvider
}

// BaseDecorator 装饰器基础实现，默认全部委托给基础提供商。
type BaseDecorator struct {
	base provider.HistoricalProvider
}

// NewBaseDecorator 创建基础装饰器。
func NewBaseDecorator(base provider.HistoricalProvider) *BaseDecorator {
	return &BaseDecorator{base: base}
}

// Name 实现 HistoricalProvider 接口。
func (d *BaseDecorator) Name() string {
	return d.base.Name()
}

// IsHealthy 实现 HistoricalProvider 接口。
func (d *BaseDecorator) IsHealthy() bool {
	return d.base.IsHealthy()
}

// FetchBars 实现 HistoricalProvider 接口。
func (d *BaseDecorator) FetchBars(ctx context.Context, symbol, exchange string, interval market.Interval, nBars int) ([]market.Bar, error) {
	return d.base.FetchBars(ctx, symbol, exchange, interval, nBars)
}

// SearchSymbol 实现 HistoricalProvider 接口。
func (d *BaseDecorator) SearchSymbol(ctx context.Context, query, exchange string) ([]provider.SymbolInfo, error) {
	return d.base.SearchSymbol(ctx, query, exchange)
}

// Close 实现 HistoricalProvider 接口。
func (d *BaseDecorator) Close() error {
	return d.base.Close()
}

// GetBaseProvider 实现 Decorator 接口。
func (d *BaseDecorator) GetBaseProvider() provider.HistoricalProvider {
	return d.base
}

// Chain 装饰器链，按添加顺序由内向外包装基础提供商。
type Chain struct {
	wrappers []func(provider.HistoricalProvider) provider.HistoricalProvider
}

// NewChain 创建装饰器链。
func NewChain() *Chain {
	return &Chain{}
}

// Add 添加装饰器到链中。
func (c *Chain) Add(wrap func(provider.HistoricalProvider) provider.HistoricalProvider) *Chain {
	c.wrappers = append(c.wrappers, wrap)
	return c
}

// Apply 应用装饰器链到指定的提供商。
func (c *Chain) Apply(base provider.HistoricalProvider) provider.HistoricalProvider {
	p := base
	for _, wrap := range c.wrappers {
		p = wrap(p)
	}
	return p
}
