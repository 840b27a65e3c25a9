// Package fetcher 实现行情获取编排：输入校验、缓存查询、
// 带重试的数据源请求、质量检查与缓存回写。
package fetcher

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tradeglob/pkg/cache"
	"tradeglob/pkg/config"
	"tradeglob/pkg/logger"
	"tradeglob/pkg/market"
	"tradeglob/pkg/provider"
	"tradeglob/pkg/retry"
	"tradeglob/pkg/validate"
)

// Fetcher 单标的与批量获取的编排器。
// 提供商只负责单次往返，重试、缓存和质量检查都在这一层。
type Fetcher struct {
	provider provider.HistoricalProvider
	cache    cache.Cache
	config   config.FetcherConfig
	cacheTTL time.Duration
	log      *logrus.Entry
}

// New 创建获取编排器。cache 传 nil 表示完全禁用缓存。
func New(p provider.HistoricalProvider, c cache.Cache, cfg *config.Config) *Fetcher {
	return &Fetcher{
		provider: p,
		cache:    c,
		config:   cfg.Fetcher,
		cacheTTL: cfg.Cache.TTL,
		log:      logger.WithComponent("fetcher"),
	}
}

// GetOHLCV 获取单标的K线序列。
// 流程：规范化 → 输入校验 → 缓存查询 → 带重试的数据源请求 →
// 质量检查 → 缓存回写 → 日期范围过滤。
func (f *Fetcher) GetOHLCV(ctx context.Context, req market.Request) (*market.Series, error) {
	req = req.Normalize()
	if req.NBars == 0 && !req.Start.IsZero() && !req.End.IsZero() {
		req.NBars = f.optimalBars(req.Interval, req.Start, req.End)
	}
	if err := validate.Inputs(req); err != nil {
		return nil, err
	}

	key := req.CacheKey()
	if f.cache != nil && req.UseCache {
		if series, err := f.cache.Get(ctx, key); err == nil {
			f.log.Debugf("缓存命中: %s", key)
			return f.applyRange(series, req), nil
		}
	}

	series, err := f.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	f.store(ctx, key, req, series)
	return f.applyRange(series, req), nil
}

// Refresh 绕过缓存查询强制拉取，成功后覆盖写入缓存。
func (f *Fetcher) Refresh(ctx context.Context, req market.Request) (*market.Series, error) {
	req = req.Normalize()
	if req.NBars == 0 && !req.Start.IsZero() && !req.End.IsZero() {
		req.NBars = f.optimalBars(req.Interval, req.Start, req.End)
	}
	if err := validate.Inputs(req); err != nil {
		return nil, err
	}

	series, err := f.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	f.store(ctx, req.CacheKey(), req, series)
	return f.applyRange(series, req), nil
}

// fetch 执行一次带重试的数据源请求并做质量检查。
func (f *Fetcher) fetch(ctx context.Context, req market.Request) (*market.Series, error) {
	bars, err := retry.Do(ctx, f.retryConfig(), req.Symbol,
		func(ctx context.Context) ([]market.Bar, error) {
			return f.provider.FetchBars(ctx, req.Symbol, req.Exchange, req.Interval, req.NBars)
		})
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, market.NewErrorf(market.ErrNoData, "no data returned for %s:%s", req.Exchange, req.Symbol)
	}

	series := &market.Series{
		Symbol:   req.Symbol,
		Exchange: req.Exchange,
		Interval: req.Interval,
		Bars:     bars,
	}

	if f.config.ValidateData && req.Validate {
		if err := f.checkQuality(series); err != nil {
			return nil, err
		}
	}
	return series, nil
}

// checkQuality 执行质量检查。硬性违规在严格模式下返回
// ErrDataQuality，宽松模式下连同软性问题一起记为警告。
func (f *Fetcher) checkQuality(series *market.Series) error {
	rep := validate.Quality(series)
	if !rep.Passed && f.config.Strict {
		return market.NewErrorf(market.ErrDataQuality, "quality check failed for %s: %s",
			series.Symbol, strings.Join(rep.Issues, "; "))
	}

	for _, issue := range rep.Issues {
		f.log.Warnf("%s 质量违规: %s", series.Symbol, issue)
	}
	for _, warning := range rep.Warnings {
		f.log.Warnf("%s 质量警告: %s", series.Symbol, warning)
	}
	series.Warnings = append(series.Warnings, rep.Issues...)
	series.Warnings = append(series.Warnings, rep.Warnings...)
	return nil
}

// store 写入缓存。写入失败只记录日志，不影响返回结果。
func (f *Fetcher) store(ctx context.Context, key string, req market.Request, series *market.Series) {
	if f.cache == nil || !req.UseCache {
		return
	}
	if err := f.cache.Set(ctx, key, series, f.cacheTTL); err != nil {
		f.log.Warnf("缓存写入失败 %s: %v", key, err)
	}
}

// applyRange 按请求的日期范围裁剪序列。未指定范围时原样返回。
func (f *Fetcher) applyRange(series *market.Series, req market.Request) *market.Series {
	if req.Start.IsZero() && req.End.IsZero() {
		return series
	}
	return series.Slice(req.Start, req.End)
}

func (f *Fetcher) retryConfig() retry.Config {
	return retry.Config{
		MaxAttempts: f.config.RetryAttempts,
		Delay:       f.config.RetryDelay,
		Backoff:     f.config.RetryBackoff,
		MaxDelay:    f.config.RetryMaxDelay,
	}
}

// SearchSymbol 透传标的搜索，带重试。
func (f *Fetcher) SearchSymbol(ctx context.Context, query, exchange string) ([]provider.SymbolInfo, error) {
	return retry.Do(ctx, f.retryConfig(), "symbol search",
		func(ctx context.Context) ([]provider.SymbolInfo, error) {
			return f.provider.SearchSymbol(ctx, query, exchange)
		})
}

// InvalidateCache 按标的/交易所失效缓存条目，返回删除数量。
// 两个参数都为空时清空全部缓存。
func (f *Fetcher) InvalidateCache(ctx context.Context, symbol, exchange string) (int, error) {
	if f.cache == nil {
		return 0, nil
	}
	return f.cache.Invalidate(ctx, symbol, exchange)
}

// CacheStats 返回缓存统计。未启用缓存时 ok 为 false。
func (f *Fetcher) CacheStats() (cache.Stats, bool) {
	if f.cache == nil {
		return cache.Stats{}, false
	}
	return f.cache.Stats(), true
}

// Close 关闭提供商与缓存。
func (f *Fetcher) Close() error {
	var firstErr error
	if err := f.provider.Close(); err != nil {
		firstErr = err
	}
	if f.cache != nil {
		if err := f.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
