// Package provider 定义历史行情数据提供商的统一接口。
// 具体实现位于子包：httpapi（真实数据源）、mock（测试数据源）、
// decorators（熔断、限流等装饰器）。
package provider

import (
	"context"
	"time"

	"tradeglob/pkg/market"
)

// HistoricalProvider 历史K线数据提供商接口。
// FetchBars 只做一次完整的请求往返，不在内部重试；
// 重试策略由上层调用方决定。
type HistoricalProvider interface {
	// FetchBars 获取指定标的最近 nBars 根K线，按时间升序返回。
	// 数据源无数据时返回 ErrNoData。
	FetchBars(ctx context.Context, symbol, exchange string, interval market.Interval, nBars int) ([]market.Bar, error)

	// SearchSymbol 按关键字搜索标的，exchange 为空时搜索全部交易所。
	SearchSymbol(ctx context.Context, query, exchange string) ([]SymbolInfo, error)

	// Name 返回提供商名称。
	Name() string

	// IsHealthy 检查提供商是否可用。
	IsHealthy() bool

	// Close 释放连接等资源。
	Close() error
}

// SymbolInfo 标的搜索结果。
type SymbolInfo struct {
	Symbol      string `json:"symbol"`
	Exchange    string `json:"exchange"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Currency    string `json:"currency"`
}

// RateLimited 带限流能力的提供商可以报告建议的最小请求间隔。
type RateLimited interface {
	RateLimit() time.Duration
}
