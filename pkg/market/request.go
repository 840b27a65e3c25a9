package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Request 描述一次单标的行情获取请求。发出后不再修改。
type Request struct {
	Symbol   string   `json:"symbol"`
	Exchange string   `json:"exchange"`
	Interval Interval `json:"interval"`
	NBars    int      `json:"n_bars"`

	// Start/End 为可选日期范围，零值表示未指定。
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`

	// UseCache 控制本次请求是否读写缓存。
	UseCache bool `json:"use_cache"`
	// Validate 控制是否对返回数据做质量检查。
	Validate bool `json:"validate"`
}

// NewRequest 创建启用缓存与质量检查的默认请求。
func NewRequest(symbol, exchange string, interval Interval, nBars int) Request {
	return Request{
		Symbol:   symbol,
		Exchange: exchange,
		Interval: interval,
		NBars:    nBars,
		UseCache: true,
		Validate: true,
	}
}

// Normalize 返回字段规范化后的请求副本：
// 标的与交易所统一为去空格后的大写形式。
// 两个逻辑等价的请求在规范化后必须产生相同的缓存键。
func (r Request) Normalize() Request {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Exchange = strings.ToUpper(strings.TrimSpace(r.Exchange))
	return r
}

// CacheKey 基于规范化字段生成确定性的缓存键，
// 形如 NASDAQ_AAPL_D_100。键同时用作磁盘缓存的文件名。
func (r Request) CacheKey() string {
	n := r.Normalize()
	return fmt.Sprintf("%s_%s_%s_%d", n.Exchange, n.Symbol, n.Interval.Code(), n.NBars)
}

// KeyComponents 是从缓存键解析出的组成部分，用于按标的/交易所做选择性失效。
type KeyComponents struct {
	Exchange     string
	Symbol       string
	IntervalCode string
	NBars        int
}

// ParseCacheKey 解析 CacheKey 生成的键。标的中允许包含下划线，
// 因此从两端取交易所、粒度代码和K线数，中间剩余部分即为标的。
func ParseCacheKey(key string) (KeyComponents, bool) {
	parts := strings.Split(key, "_")
	if len(parts) < 4 {
		return KeyComponents{}, false
	}
	nBars, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return KeyComponents{}, false
	}
	return KeyComponents{
		Exchange:     parts[0],
		Symbol:       strings.Join(parts[1:len(parts)-2], "_"),
		IntervalCode: parts[len(parts)-2],
		NBars:        nBars,
	}, true
}

// Matches 判断键组成是否匹配给定的标的/交易所过滤条件。
// 空字符串表示该维度不过滤。匹配按规范化后的相等比较。
func (kc KeyComponents) Matches(symbol, exchange string) bool {
	if symbol != "" && !strings.EqualFold(kc.Symbol, strings.TrimSpace(symbol)) {
		return false
	}
	if exchange != "" && !strings.EqualFold(kc.Exchange, strings.TrimSpace(exchange)) {
		return false
	}
	return true
}
