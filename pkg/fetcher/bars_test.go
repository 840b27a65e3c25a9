package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tradeglob/pkg/market"
	"tradeglob/pkg/provider/mock"
	"tradeglob/pkg/validate"
)

func barsFetcher(t *testing.T) *Fetcher {
	t.Helper()
	return New(mock.NewProvider(), nil, testConfig())
}

func TestOptimalBarsMinimums(t *testing.T) {
	f := barsFetcher(t)
	defer f.Close()

	// 极短区间受数量下限保护（下限同样乘以放大系数）
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	assert.Equal(t, 130, f.optimalBars(market.IntervalDaily, start, end))   // 100 × 1.3
	assert.Equal(t, 26, f.optimalBars(market.IntervalWeekly, start, end))   // 20 × 1.3
	assert.Equal(t, 8, f.optimalBars(market.IntervalMonthly, start, end))   // ceil(6 × 1.3)
	assert.Equal(t, 650, f.optimalBars(market.Interval1Hour, start, end))   // 500 × 1.3
	assert.Equal(t, 650, f.optimalBars(market.Interval5Minute, start, end)) // 下限与小时级相同
}

func TestOptimalBarsScalesWithRange(t *testing.T) {
	f := barsFetcher(t)
	defer f.Close()

	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	n := f.optimalBars(market.IntervalDaily, start, end)
	// 一年约 261 个工作日 × 1.3
	assert.Greater(t, n, 300)
	assert.Less(t, n, 400)
}

func TestOptimalBarsCappedAtLimit(t *testing.T) {
	f := barsFetcher(t)
	defer f.Close()

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// 六年的分钟级数据远超上限，静默截断
	assert.Equal(t, validate.MaxBars, f.optimalBars(market.Interval1Minute, start, end))
}

func TestWeekdaysBetween(t *testing.T) {
	// 2026-03-02 是周一
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, weekdaysBetween(monday, monday))
	assert.Equal(t, 5, weekdaysBetween(monday, monday.AddDate(0, 0, 4)))
	// 跨周末：周一到下周一共 6 个工作日
	assert.Equal(t, 6, weekdaysBetween(monday, monday.AddDate(0, 0, 7)))
	assert.Equal(t, 0, weekdaysBetween(monday, monday.AddDate(0, 0, -1)))
}

func TestMonthsBetween(t *testing.T) {
	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, monthsBetween(jan, jan))
	assert.Equal(t, 3, monthsBetween(jan, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 13, monthsBetween(jan, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}
