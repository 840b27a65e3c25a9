// Package validate 提供请求参数校验与数据质量检查。
// 所有检查都是纯函数：不修改数据，只报告问题。
package validate

import (
	"strings"
	"time"

	"tradeglob/pkg/market"
)

// MaxBars 是数据源单次请求的K线数量硬上限。
const MaxBars = 5000

// MaxSymbolLength 是标的代码的最大长度。
const MaxSymbolLength = 20

// Inputs 校验单标的请求参数。全部通过返回 nil，
// 否则返回指明具体字段的 VALIDATION 错误。无任何副作用。
func Inputs(req market.Request) error {
	if strings.TrimSpace(req.Symbol) == "" {
		return market.NewError(market.ErrValidation, "symbol must be a non-empty string")
	}
	if len(req.Symbol) > MaxSymbolLength {
		return market.NewErrorf(market.ErrValidation,
			"symbol too long (max %d characters): %s", MaxSymbolLength, req.Symbol)
	}
	if strings.TrimSpace(req.Exchange) == "" {
		return market.NewError(market.ErrValidation, "exchange must be a non-empty string")
	}
	if !req.Interval.Valid() {
		return market.NewErrorf(market.ErrValidation,
			"invalid interval: %s, must be one of: %s",
			req.Interval, strings.Join(market.SupportedIntervalNames(), ", "))
	}
	if req.NBars <= 0 {
		return market.NewErrorf(market.ErrValidation,
			"n_bars must be a positive integer, got %d", req.NBars)
	}
	if req.NBars > MaxBars {
		return market.NewErrorf(market.ErrValidation,
			"n_bars=%d exceeds provider limit of %d", req.NBars, MaxBars)
	}
	if err := DateRange(req.Start, req.End); err != nil {
		return err
	}
	return nil
}

// DateRange 校验可选日期范围：提供时要求 start ≤ end。
func DateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return nil
	}
	if start.After(end) {
		return market.NewErrorf(market.ErrValidation,
			"start date (%s) cannot be after end date (%s)",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return nil
}

// SymbolList 校验批量请求的标的列表：非空且每个元素合法。
// 重复的标的允许出现（只是冗余工作），由调用方自行记录日志。
// 返回值为去重后发现的重复项，供日志提示。
func SymbolList(symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, market.NewError(market.ErrValidation, "symbol list cannot be empty")
	}
	seen := make(map[string]bool, len(symbols))
	var duplicates []string
	for _, sym := range symbols {
		if strings.TrimSpace(sym) == "" {
			return nil, market.NewErrorf(market.ErrValidation, "invalid symbol in list: %q", sym)
		}
		if len(sym) > MaxSymbolLength {
			return nil, market.NewErrorf(market.ErrValidation,
				"symbol too long (max %d characters): %s", MaxSymbolLength, sym)
		}
		norm := strings.ToUpper(strings.TrimSpace(sym))
		if seen[norm] {
			duplicates = append(duplicates, sym)
		}
		seen[norm] = true
	}
	return duplicates, nil
}

// Batch 校验批量请求的公共上下文（交易所、粒度、日期范围）与标的列表。
func Batch(symbols []string, exchange string, interval market.Interval, start, end time.Time) ([]string, error) {
	if strings.TrimSpace(exchange) == "" {
		return nil, market.NewError(market.ErrValidation, "exchange must be a non-empty string")
	}
	if !interval.Valid() {
		return nil, market.NewErrorf(market.ErrValidation,
			"invalid interval: %s, must be one of: %s",
			interval, strings.Join(market.SupportedIntervalNames(), ", "))
	}
	if err := DateRange(start, end); err != nil {
		return nil, err
	}
	return SymbolList(symbols)
}
