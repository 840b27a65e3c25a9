package fetcher

import (
	"math"
	"time"

	"tradeglob/pkg/market"
	"tradeglob/pkg/validate"
)

// tradingMinutesPerDay 按常规股票交易时段估算的每日交易分钟数。
const tradingMinutesPerDay = 390

// optimalBars 按日期范围推算需要向数据源请求的K线数量。
// 估算只统计工作日，再按粒度换算、套用下限并乘以放大系数，
// 结果截断到请求数量上限。宁多勿少，多余部分由范围过滤裁掉。
func (f *Fetcher) optimalBars(interval market.Interval, start, end time.Time) int {
	days := weekdaysBetween(start, end)

	var n, min int
	switch interval {
	case market.IntervalDaily:
		n = days
		min = f.config.MinBarsDaily
	case market.IntervalWeekly:
		n = days/5 + 1
		min = f.config.MinBarsWeekly
	case market.IntervalMonthly:
		n = monthsBetween(start, end)
		min = f.config.MinBarsMonthly
	default:
		n = days * tradingMinutesPerDay / intervalMinutes(interval)
		min = f.config.MinBarsIntraday
	}

	if n < min {
		n = min
	}
	if f.config.SafetyBuffer > 1.0 {
		n = int(math.Ceil(float64(n) * f.config.SafetyBuffer))
	}
	if n > validate.MaxBars {
		n = validate.MaxBars
	}
	return n
}

// weekdaysBetween 统计闭区间内的工作日数量。
func weekdaysBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// monthsBetween 统计闭区间跨越的日历月数。
func monthsBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
}

// intervalMinutes 返回日内粒度对应的分钟数。
func intervalMinutes(interval market.Interval) int {
	switch interval {
	case market.Interval1Minute:
		return 1
	case market.Interval3Minute:
		return 3
	case market.Interval5Minute:
		return 5
	case market.Interval15Minute:
		return 15
	case market.Interval30Minute:
		return 30
	case market.Interval45Minute:
		return 45
	case market.Interval1Hour:
		return 60
	case market.Interval2Hour:
		return 120
	case market.Interval3Hour:
		return 180
	case market.Interval4Hour:
		return 240
	default:
		return 60
	}
}
