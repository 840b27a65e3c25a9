package validate

import (
	"fmt"
	"math"

	"tradeglob/pkg/market"
)

// QualityReport 汇总一次数据质量检查的结果。
// Issues 为硬性违规（严格模式下导致失败），Warnings 为仅提示的软性问题。
type QualityReport struct {
	Passed   bool     `json:"passed"`
	Issues   []string `json:"issues,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Rows     int      `json:"rows"`
}

// extremeMoveThreshold 单根K线收盘价变动超过该比例视为异常波动。
const extremeMoveThreshold = 0.5

// Quality 对序列执行OHLC不变式检查并返回质量报告。
// 只标记违规，从不修正数据。
//
// 硬性违规（Issues）：
//   - 序列为空
//   - high < low
//   - 收盘价为零或负数
//   - 重复时间戳
//
// 软性问题（Warnings）：
//   - high < open 或 high < close；low > open 或 low > close
//   - 成交量为负或为零
//   - 单根K线涨跌幅超过50%
//   - 时间戳未按升序排列
func Quality(s *market.Series) QualityReport {
	rep := QualityReport{Rows: s.Len()}

	if s.Empty() {
		rep.Issues = append(rep.Issues, "series is empty")
		return rep
	}

	var (
		highBelowLow   int
		highBelowOpen  int
		highBelowClose int
		lowAboveOpen   int
		lowAboveClose  int
		badClose       int
		negativeVolume int
		zeroVolume     int
		extremeMoves   int
		duplicates     int
		unsorted       bool
	)

	seen := make(map[int64]bool, len(s.Bars))
	var prevClose float64
	for i, b := range s.Bars {
		if b.High < b.Low {
			highBelowLow++
		}
		if b.High < b.Open {
			highBelowOpen++
		}
		if b.High < b.Close {
			highBelowClose++
		}
		if b.Low > b.Open {
			lowAboveOpen++
		}
		if b.Low > b.Close {
			lowAboveClose++
		}
		if b.Close <= 0 {
			badClose++
		}
		if b.Volume < 0 {
			negativeVolume++
		} else if b.Volume == 0 {
			zeroVolume++
		}
		ts := b.Timestamp.UnixNano()
		if seen[ts] {
			duplicates++
		}
		seen[ts] = true
		if i > 0 {
			if !s.Bars[i-1].Timestamp.Before(b.Timestamp) {
				unsorted = true
			}
			if prevClose > 0 {
				change := math.Abs(b.Close-prevClose) / prevClose
				if change > extremeMoveThreshold {
					extremeMoves++
				}
			}
		}
		prevClose = b.Close
	}

	if highBelowLow > 0 {
		rep.Issues = append(rep.Issues, fmt.Sprintf("invalid prices (high < low): %d rows", highBelowLow))
	}
	if badClose > 0 {
		rep.Issues = append(rep.Issues, fmt.Sprintf("zero/negative close prices: %d rows", badClose))
	}
	if duplicates > 0 {
		rep.Issues = append(rep.Issues, fmt.Sprintf("duplicate timestamps: %d rows", duplicates))
	}
	if highBelowOpen > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("high < open: %d rows", highBelowOpen))
	}
	if highBelowClose > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("high < close: %d rows", highBelowClose))
	}
	if lowAboveOpen > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("low > open: %d rows", lowAboveOpen))
	}
	if lowAboveClose > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("low > close: %d rows", lowAboveClose))
	}
	if negativeVolume > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("negative volume: %d rows", negativeVolume))
	}
	if zeroVolume > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("zero volume: %d rows (%.1f%%)",
			zeroVolume, float64(zeroVolume)/float64(len(s.Bars))*100))
	}
	if extremeMoves > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("extreme price changes (>%.0f%%): %d rows",
			extremeMoveThreshold*100, extremeMoves))
	}
	if unsorted {
		rep.Warnings = append(rep.Warnings, "bars are not sorted by time")
	}

	rep.Passed = len(rep.Issues) == 0
	return rep
}
