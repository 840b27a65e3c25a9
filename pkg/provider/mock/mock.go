// Package mock 提供确定性的测试数据提供商。
// 生成的K线价格由标的名称派生种子，重复调用结果一致。
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"

	"tradeglob/pkg/market"
	"tradeglob/pkg/provider"
)

// Provider 测试数据提供商。可以为指定标的脚本化返回错误，
// 并记录每个标的的调用次数，用于验证重试和缓存行为。
type Provider struct {
	mu sync.Mutex
	// errors 按标的脚本化的错误序列，每次调用消费一个。
	errors map[string][]error
	// callCounts 按标的统计 FetchBars 调用次数。
	callCounts map[string]int
	// delay 每次调用前的人工延迟，模拟网络耗时。
	delay   time.Duration
	healthy bool
	closed  bool
	// baseTime 生成K线的截止时间，零值表示当前时间。
	baseTime time.Time
}

// NewProvider 创建测试提供商。
func NewProvider() *Provider {
	return &Provider{
		errors:     make(map[string][]error),
		callCounts: make(map[string]int),
		healthy:    true,
	}
}

// ScriptError 为标的追加一个脚本化错误。后续每次 FetchBars
// 按先进先出消费一个，消费完后恢复正常返回数据。
func (p *Provider) ScriptError(symbol string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors[symbol] = append(p.errors[symbol], err)
}

// SetDelay 设置每次调用前的人工延迟。
func (p *Provider) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// SetHealthy 设置健康状态。
func (p *Provider) SetHealthy(healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.healthy = healthy
}

// SetBaseTime 固定生成K线的截止时间，便于断言时间戳。
func (p *Provider) SetBaseTime(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseTime = t
}

// CallCount 返回指定标的的调用次数。
func (p *Provider) CallCount(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callCounts[symbol]
}

// Name 返回提供商名称。
func (p *Provider) Name() string {
	return "mock"
}

// IsHealthy 返回健康状态。
func (p *Provider) IsHealthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy && !p.closed
}

// FetchBars 生成确定性K线序列，或按脚本返回错误。
func (p *Provider) FetchBars(ctx context.Context, symbol, exchange string, interval market.Interval, nBars int) ([]market.Bar, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, market.NewError(market.ErrProviderClosed, "provider is closed")
	}
	p.callCounts[symbol]++
	delay := p.delay
	var scripted error
	if queue := p.errors[symbol]; len(queue) > 0 {
		scripted = queue[0]
		p.errors[symbol] = queue[1:]
	}
	base := p.baseTime
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, market.WrapError(market.ErrTimeout, "context cancelled", ctx.Err())
		case <-time.After(delay):
		}
	}
	if scripted != nil {
		return nil, scripted
	}

	return generateBars(symbol, interval, nBars, base), nil
}

// SearchSymbol 返回与查询词前缀匹配的合成结果。
func (p *Provider) SearchSymbol(ctx context.Context, query, exchange string) ([]provider.SymbolInfo, error) {
	if query == "" {
		return nil, market.NewError(market.ErrValidation, "empty search query")
	}
	if exchange == "" {
		exchange = "MOCK"
	}
	return []provider.SymbolInfo{
		{
			Symbol:      strings.ToUpper(query),
			Exchange:    exchange,
			Description: "mock instrument " + strings.ToUpper(query),
			Type:        "stock",
			Currency:    "USD",
		},
	}, nil
}

// Close 关闭提供商，后续调用返回 ErrProviderClosed。
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// generateBars 由标的名称哈希派生基准价，生成正弦波动的K线。
func generateBars(symbol string, interval market.Interval, nBars int, end time.Time) []market.Bar {
	if end.IsZero() {
		end = time.Now().UTC().Truncate(time.Minute)
	}

	h := fnv.New32a()
	h.Write([]byte(symbol))
	basePrice := 50.0 + float64(h.Sum32()%10000)/100.0

	step := intervalStep(interval)
	bars := make([]market.Bar, nBars)
	for i := 0; i < nBars; i++ {
		ts := end.Add(-time.Duration(nBars-1-i) * step)
		phase := float64(i) / 10.0
		open := basePrice * (1 + 0.01*math.Sin(phase))
		close := basePrice * (1 + 0.01*math.Sin(phase+0.3))
		high := math.Max(open, close) * 1.005
		low := math.Min(open, close) * 0.995
		bars[i] = market.Bar{
			Symbol:    symbol,
			Timestamp: ts,
			Open:      round2(open),
			High:      round2(high),
			Low:       round2(low),
			Close:     round2(close),
			Volume:    int64(1000 + (i*37+int(h.Sum32()%100))%9000),
		}
	}
	return bars
}

func intervalStep(interval market.Interval) time.Duration {
	switch interval {
	case market.IntervalDaily:
		return 24 * time.Hour
	case market.IntervalWeekly:
		return 7 * 24 * time.Hour
	case market.IntervalMonthly:
		return 30 * 24 * time.Hour
	case market.Interval1Hour:
		return time.Hour
	default:
		return time.Minute
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var _ provider.HistoricalProvider = (*Provider)(nil)
