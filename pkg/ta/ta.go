// Package ta 对技术指标库做薄封装，直接消费K线序列
// 并在数据量不足时给出明确错误。
package ta

import (
	"strings"

	"github.com/markcheno/go-talib"

	"tradeglob/pkg/market"
)

// ensureBars 校验序列有足够的数据计算指定周期的指标。
func ensureBars(s *market.Series, need int, indicator string) error {
	if s == nil || s.Empty() {
		return market.NewErrorf(market.ErrValidation, "%s: series is empty", indicator)
	}
	if s.Len() < need {
		return market.NewErrorf(market.ErrValidation,
			"%s: need at least %d bars, have %d", indicator, need, s.Len())
	}
	return nil
}

// SMA 简单移动平均。结果与输入序列等长，前 period-1 个值为 0。
func SMA(s *market.Series, period int) ([]float64, error) {
	if err := ensureBars(s, period, "SMA"); err != nil {
		return nil, err
	}
	return talib.Sma(s.Closes(), period), nil
}

// EMA 指数移动平均。
func EMA(s *market.Series, period int) ([]float64, error) {
	if err := ensureBars(s, period, "EMA"); err != nil {
		return nil, err
	}
	return talib.Ema(s.Closes(), period), nil
}

// WMA 加权移动平均。
func WMA(s *market.Series, period int) ([]float64, error) {
	if err := ensureBars(s, period, "WMA"); err != nil {
		return nil, err
	}
	return talib.Wma(s.Closes(), period), nil
}

// DEMA 双重指数移动平均。
func DEMA(s *market.Series, period int) ([]float64, error) {
	if err := ensureBars(s, 2*period, "DEMA"); err != nil {
		return nil, err
	}
	return talib.Dema(s.Closes(), period), nil
}

// TEMA 三重指数移动平均。
func TEMA(s *market.Series, period int) ([]float64, error) {
	if err := ensureBars(s, 3*period, "TEMA"); err != nil {
		return nil, err
	}
	return talib.Tema(s.Closes(), period), nil
}

// MA 按名称计算移动平均，接受 sma/ema/wma/dema/tema。
func MA(s *market.Series, kind string, period int) ([]float64, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "sma":
		return SMA(s, period)
	case "ema":
		return EMA(s, period)
	case "wma":
		return WMA(s, period)
	case "dema":
		return DEMA(s, period)
	case "tema":
		return TEMA(s, period)
	default:
		return nil, market.NewErrorf(market.ErrValidation, "unknown moving average kind: %s", kind)
	}
}

// RSI 相对强弱指数。
func RSI(s *market.Series, period int) ([]float64, error) {
	if err := ensureBars(s, period+1, "RSI"); err != nil {
		return nil, err
	}
	return talib.Rsi(s.Closes(), period), nil
}

// MACDResult MACD 计算结果。
type MACDResult struct {
	MACD      []float64 `json:"macd"`
	Signal    []float64 `json:"signal"`
	Histogram []float64 `json:"histogram"`
}

// MACD 指数平滑异同移动平均线，常用参数 (12, 26, 9)。
func MACD(s *market.Series, fast, slow, signal int) (*MACDResult, error) {
	if err := ensureBars(s, slow+signal, "MACD"); err != nil {
		return nil, err
	}
	macd, sig, hist := talib.Macd(s.Closes(), fast, slow, signal)
	return &MACDResult{MACD: macd, Signal: sig, Histogram: hist}, nil
}

// BBandsResult 布林带计算结果。
type BBandsResult struct {
	Upper  []float64 `json:"upper"`
	Middle []float64 `json:"middle"`
	Lower  []float64 `json:"lower"`
}

// BBands 布林带，常用参数 (20, 2.0, 2.0)。
func BBands(s *market.Series, period int, devUp, devDown float64) (*BBandsResult, error) {
	if err := ensureBars(s, period, "BBands"); err != nil {
		return nil, err
	}
	upper, middle, lower := talib.BBands(s.Closes(), period, devUp, devDown, talib.SMA)
	return &BBandsResult{Upper: upper, Middle: middle, Lower: lower}, nil
}

// ATR 平均真实波幅。
func ATR(s *market.Series, period int) ([]float64, error) {
	if err := ensureBars(s, period+1, "ATR"); err != nil {
		return nil, err
	}
	return talib.Atr(s.Highs(), s.Lows(), s.Closes(), period), nil
}
