package fetcher

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tradeglob/pkg/market"
	"tradeglob/pkg/validate"
)

// BatchOptions 批量获取选项。
type BatchOptions struct {
	// NBars 每个标的请求的K线数量。为 0 且给定日期范围时自动推算。
	NBars int
	// Start/End 可选日期范围。
	Start time.Time
	End   time.Time
	// Fields 结果表包含的字段。为空时只取收盘价，
	// 列名直接使用标的名称。
	Fields []market.Field
	// NoCache 跳过缓存读写。
	NoCache bool
	// NoValidate 跳过质量检查。
	NoValidate bool
}

// GetMultiple 并行获取多个标的并对齐为单张结果表。
// 单个标的失败不中断整批，失败原因记录在 BatchResult.Failures；
// 全部失败时返回 ErrNoData。重复标的只请求一次。
func (f *Fetcher) GetMultiple(ctx context.Context, symbols []string, exchange string, interval market.Interval, opts BatchOptions) (*market.BatchResult, error) {
	duplicates, err := validate.Batch(symbols, exchange, interval, opts.Start, opts.End)
	if err != nil {
		return nil, err
	}
	if len(duplicates) > 0 {
		f.log.Warnf("批量请求包含重复标的（只请求一次）: %s", strings.Join(duplicates, ", "))
	}

	unique := dedupe(symbols)
	result := market.NewBatchResult(unique)

	type outcome struct {
		series *market.Series
		err    error
	}
	outcomes := make([]outcome, len(unique))

	workers := f.config.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, symbol := range unique {
		i, symbol := i, symbol
		g.Go(func() error {
			req := market.Request{
				Symbol:   symbol,
				Exchange: exchange,
				Interval: interval,
				NBars:    opts.NBars,
				Start:    opts.Start,
				End:      opts.End,
				UseCache: !opts.NoCache,
				Validate: !opts.NoValidate,
			}
			series, err := f.GetOHLCV(gctx, req)
			outcomes[i] = outcome{series: series, err: err}
			// 单标的失败不触发整组取消。
			return nil
		})
	}
	_ = g.Wait()

	// 按输入顺序装配结果，列顺序与调用方给出的标的顺序一致。
	var succeeded []*market.Series
	for i, symbol := range unique {
		if outcomes[i].err != nil {
			f.log.Warnf("标的 %s 获取失败: %v", symbol, outcomes[i].err)
			result.AddFailure(symbol, outcomes[i].err)
			continue
		}
		result.AddSuccess(outcomes[i].series)
		succeeded = append(succeeded, outcomes[i].series)
	}

	if result.AllFailed() {
		return result, market.NewErrorf(market.ErrNoData,
			"all %d symbols failed to fetch", len(unique))
	}

	result.Table = market.BuildTable(succeeded, opts.Fields)
	return result, nil
}

// dedupe 去重并保持首次出现的顺序。比较按规范化后的标的名。
func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := strings.ToUpper(strings.TrimSpace(s))
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	return out
}
