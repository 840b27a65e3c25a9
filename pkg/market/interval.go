// Package market 定义了行情数据的核心数据模型：K线、序列、合并表格、
// 请求与批量结果，以及统一的错误类型。
package market

import (
	"strings"
)

// Interval 表示K线的时间粒度。
type Interval string

// 支持的时间粒度。与数据源的粒度集合一一对应。
const (
	Interval1Minute  Interval = "1 Minute"
	Interval3Minute  Interval = "3 Minute"
	Interval5Minute  Interval = "5 Minute"
	Interval15Minute Interval = "15 Minute"
	Interval30Minute Interval = "30 Minute"
	Interval45Minute Interval = "45 Minute"
	Interval1Hour    Interval = "1 Hour"
	Interval2Hour    Interval = "2 Hour"
	Interval3Hour    Interval = "3 Hour"
	Interval4Hour    Interval = "4 Hour"
	IntervalDaily    Interval = "Daily"
	IntervalWeekly   Interval = "Weekly"
	IntervalMonthly  Interval = "Monthly"
)

// intervalCodes 将 Interval 映射为数据源协议中使用的紧凑代码。
// 该代码同时用于缓存键的规范化（见 Request.CacheKey）。
var intervalCodes = map[Interval]string{
	Interval1Minute:  "1",
	Interval3Minute:  "3",
	Interval5Minute:  "5",
	Interval15Minute: "15",
	Interval30Minute: "30",
	Interval45Minute: "45",
	Interval1Hour:    "1H",
	Interval2Hour:    "2H",
	Interval3Hour:    "3H",
	Interval4Hour:    "4H",
	IntervalDaily:    "D",
	IntervalWeekly:   "W",
	IntervalMonthly:  "M",
}

// supportedIntervals 按固定顺序列出所有支持的粒度。
var supportedIntervals = []Interval{
	Interval1Minute, Interval3Minute, Interval5Minute,
	Interval15Minute, Interval30Minute, Interval45Minute,
	Interval1Hour, Interval2Hour, Interval3Hour, Interval4Hour,
	IntervalDaily, IntervalWeekly, IntervalMonthly,
}

// SupportedIntervals 返回所有支持的时间粒度列表。
func SupportedIntervals() []Interval {
	out := make([]Interval, len(supportedIntervals))
	copy(out, supportedIntervals)
	return out
}

// SupportedIntervalNames 返回所有支持粒度的字符串形式，用于错误提示。
func SupportedIntervalNames() []string {
	names := make([]string, len(supportedIntervals))
	for i, iv := range supportedIntervals {
		names[i] = string(iv)
	}
	return names
}

// ParseInterval 将字符串解析为 Interval，大小写不敏感。
// 同时接受紧凑代码形式（"1H"、"D" 等）。
func ParseInterval(s string) (Interval, error) {
	trimmed := strings.TrimSpace(s)
	for _, iv := range supportedIntervals {
		if strings.EqualFold(trimmed, string(iv)) || strings.EqualFold(trimmed, intervalCodes[iv]) {
			return iv, nil
		}
	}
	return "", NewError(ErrValidation,
		"invalid interval: "+s+", must be one of: "+strings.Join(SupportedIntervalNames(), ", "))
}

// Valid 判断粒度是否属于支持集合。
func (i Interval) Valid() bool {
	_, ok := intervalCodes[i]
	return ok
}

// Code 返回粒度的紧凑代码。未知粒度返回空字符串。
func (i Interval) Code() string {
	return intervalCodes[i]
}

// IsIntraday 判断是否为日内粒度（分钟或小时级）。
func (i Interval) IsIntraday() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return false
	}
	return i.Valid()
}
