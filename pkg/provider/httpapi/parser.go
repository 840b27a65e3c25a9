package httpapi

import (
	"time"

	"github.com/tidwall/gjson"

	"tradeglob/pkg/market"
	"tradeglob/pkg/provider"
)

// parseHistory 解析 UDF 风格的历史K线响应。
// 响应为列式数组：{"s":"ok","t":[...],"o":[...],"h":[...],"l":[...],"c":[...],"v":[...]}，
// 其中 t 为 Unix 秒级时间戳。s 为 "no_data" 时表示区间内无数据。
func parseHistory(body []byte, symbol string) ([]market.Bar, error) {
	status := gjson.GetBytes(body, "s").String()
	switch status {
	case "ok":
	case "no_data":
		return nil, market.NewErrorf(market.ErrNoData, "no data returned for %s", symbol)
	case "error":
		msg := gjson.GetBytes(body, "errmsg").String()
		if msg == "" {
			msg = "unspecified error"
		}
		return nil, market.NewErrorf(market.ErrConnection, "data source error: %s", msg)
	default:
		return nil, market.NewErrorf(market.ErrConnection, "unrecognized response status %q", status)
	}

	times := gjson.GetBytes(body, "t").Array()
	opens := gjson.GetBytes(body, "o").Array()
	highs := gjson.GetBytes(body, "h").Array()
	lows := gjson.GetBytes(body, "l").Array()
	closes := gjson.GetBytes(body, "c").Array()
	volumes := gjson.GetBytes(body, "v").Array()

	n := len(times)
	if n == 0 {
		return nil, market.NewErrorf(market.ErrNoData, "no data returned for %s", symbol)
	}
	if len(opens) != n || len(highs) != n || len(lows) != n || len(closes) != n {
		return nil, market.NewErrorf(market.ErrConnection,
			"column length mismatch: t=%d o=%d h=%d l=%d c=%d",
			n, len(opens), len(highs), len(lows), len(closes))
	}

	bars := make([]market.Bar, 0, n)
	for i := 0; i < n; i++ {
		bar := market.Bar{
			Symbol:    symbol,
			Timestamp: time.Unix(times[i].Int(), 0).UTC(),
			Open:      opens[i].Float(),
			High:      highs[i].Float(),
			Low:       lows[i].Float(),
			Close:     closes[i].Float(),
		}
		// 部分标的（如外汇）没有成交量列。
		if i < len(volumes) {
			bar.Volume = volumes[i].Int()
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// parseSearch 解析标的搜索响应（对象数组）。
func parseSearch(body []byte) []provider.SymbolInfo {
	var matches []provider.SymbolInfo
	gjson.ParseBytes(body).ForEach(func(_, item gjson.Result) bool {
		matches = append(matches, provider.SymbolInfo{
			Symbol:      item.Get("symbol").String(),
			Exchange:    item.Get("exchange").String(),
			Description: item.Get("description").String(),
			Type:        item.Get("type").String(),
			Currency:    item.Get("currency_code").String(),
		})
		return true
	})
	return matches
}
