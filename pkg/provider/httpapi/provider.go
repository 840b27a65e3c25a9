// Package httpapi 实现基于 HTTP/JSON 数据源的历史行情提供商。
// 数据源采用 UDF 风格接口：/history 返回列式K线数组，
// /search 返回标的搜索结果。
package httpapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"tradeglob/pkg/market"
	"tradeglob/pkg/provider"
)

// Provider HTTP 数据源提供商。每次 FetchBars 只做一次请求往返。
type Provider struct {
	client *client
	config ClientConfig
}

// NewProvider 创建提供商并尝试认证。认证失败不阻止创建，
// 后续请求以匿名身份进行。
func NewProvider(ctx context.Context, config ClientConfig) *Provider {
	c := newClient(config)
	c.authenticate(ctx)
	return &Provider{client: c, config: config}
}

// Name 返回提供商名称。
func (p *Provider) Name() string {
	return "httpapi"
}

// RateLimit 返回建议的最小请求间隔。
func (p *Provider) RateLimit() time.Duration {
	return p.config.RateLimit
}

// IsHealthy 检查提供商是否可用。
func (p *Provider) IsHealthy() bool {
	return p.client != nil
}

// FetchBars 获取最近 nBars 根K线。
// 请求区间按 K线周期 × 数量回溯计算，周末和节假日造成的
// 空洞由调用方通过请求量放大系数弥补。
func (p *Provider) FetchBars(ctx context.Context, symbol, exchange string, interval market.Interval, nBars int) ([]market.Bar, error) {
	if nBars <= 0 {
		return nil, market.NewError(market.ErrValidation, "nBars must be positive")
	}

	to := time.Now().UTC()
	from := to.Add(-time.Duration(nBars) * barSpan(interval))

	query := url.Values{}
	query.Set("symbol", fmt.Sprintf("%s:%s", exchange, symbol))
	query.Set("resolution", interval.Code())
	query.Set("from", strconv.FormatInt(from.Unix(), 10))
	query.Set("to", strconv.FormatInt(to.Unix(), 10))

	body, err := p.client.get(ctx, "/history", query)
	if err != nil {
		return nil, err
	}

	bars, err := parseHistory(body, symbol)
	if err != nil {
		return nil, err
	}

	// 数据源可能多返回，只保留最近的 nBars 根。
	if len(bars) > nBars {
		bars = bars[len(bars)-nBars:]
	}
	return bars, nil
}

// SearchSymbol 按关键字搜索标的。
func (p *Provider) SearchSymbol(ctx context.Context, query, exchange string) ([]provider.SymbolInfo, error) {
	q := url.Values{}
	q.Set("text", query)
	if exchange != "" {
		q.Set("exchange", exchange)
	}

	body, err := p.client.get(ctx, "/symbol_search", q)
	if err != nil {
		return nil, err
	}

	matches := parseSearch(body)
	if len(matches) == 0 {
		return nil, market.NewErrorf(market.ErrNoData, "no symbols matched %q", query)
	}
	return matches, nil
}

// Close 释放空闲连接。
func (p *Provider) Close() error {
	p.client.close()
	return nil
}

// barSpan 返回单根K线覆盖的日历时间，用于估算请求区间。
// 日线及以上按日历天数放大，吸收周末空洞。
func barSpan(interval market.Interval) time.Duration {
	switch interval {
	case market.Interval1Minute:
		return time.Minute
	case market.Interval3Minute:
		return 3 * time.Minute
	case market.Interval5Minute:
		return 5 * time.Minute
	case market.Interval15Minute:
		return 15 * time.Minute
	case market.Interval30Minute:
		return 30 * time.Minute
	case market.Interval45Minute:
		return 45 * time.Minute
	case market.Interval1Hour:
		return time.Hour
	case market.Interval2Hour:
		return 2 * time.Hour
	case market.Interval3Hour:
		return 3 * time.Hour
	case market.Interval4Hour:
		return 4 * time.Hour
	case market.IntervalDaily:
		return 36 * time.Hour
	case market.IntervalWeekly:
		return 9 * 24 * time.Hour
	case market.IntervalMonthly:
		return 32 * 24 * time.Hour
	default:
		return 36 * time.Hour
	}
}

var _ provider.HistoricalProvider = (*Provider)(nil)
var _ provider.RateLimited = (*Provider)(nil)
