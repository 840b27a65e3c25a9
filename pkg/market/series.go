package market

import (
	"time"
)

// Bar 表示一个时间周期内的一根K线（OHLCV）。
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Series 是单一标的的有序K线序列，即一次获取的完整结果。
type Series struct {
	Symbol   string   `json:"symbol"`
	Exchange string   `json:"exchange"`
	Interval Interval `json:"interval"`
	Bars     []Bar    `json:"bars"`

	// FromCache 标记该结果是否来自缓存而非实时请求。
	FromCache bool `json:"from_cache"`
	// Warnings 记录质量检查产生的警告（宽松模式下违规只警告不报错）。
	Warnings []string `json:"warnings,omitempty"`
}

// Len 返回序列中K线的数量。
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Empty 判断序列是否为空。
func (s *Series) Empty() bool {
	return s.Len() == 0
}

// Timestamps 返回所有K线的时间戳。
func (s *Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Timestamp
	}
	return out
}

// Opens 返回开盘价序列。
func (s *Series) Opens() []float64 { return s.field(func(b Bar) float64 { return b.Open }) }

// Highs 返回最高价序列。
func (s *Series) Highs() []float64 { return s.field(func(b Bar) float64 { return b.High }) }

// Lows 返回最低价序列。
func (s *Series) Lows() []float64 { return s.field(func(b Bar) float64 { return b.Low }) }

// Closes 返回收盘价序列。
func (s *Series) Closes() []float64 { return s.field(func(b Bar) float64 { return b.Close }) }

// Volumes 返回成交量序列（float64，便于指标计算）。
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = float64(b.Volume)
	}
	return out
}

func (s *Series) field(get func(Bar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = get(b)
	}
	return out
}

// Slice 返回位于 [start, end] 闭区间内的K线子序列。
// 零值时间表示对应边界不限制。
func (s *Series) Slice(start, end time.Time) *Series {
	out := &Series{
		Symbol:    s.Symbol,
		Exchange:  s.Exchange,
		Interval:  s.Interval,
		FromCache: s.FromCache,
		Warnings:  s.Warnings,
	}
	for _, b := range s.Bars {
		if !start.IsZero() && b.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && b.Timestamp.After(end) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}
