package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeglob/pkg/market"
)

func validRequest() market.Request {
	return market.NewRequest("AAPL", "NASDAQ", market.IntervalDaily, 100)
}

func TestInputsValid(t *testing.T) {
	assert.NoError(t, Inputs(validRequest()))
}

func TestInputsErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*market.Request)
	}{
		{"空标的", func(r *market.Request) { r.Symbol = "" }},
		{"空白标的", func(r *market.Request) { r.Symbol = "   " }},
		{"标的过长", func(r *market.Request) { r.Symbol = strings.Repeat("A", MaxSymbolLength+1) }},
		{"空交易所", func(r *market.Request) { r.Exchange = "" }},
		{"无效粒度", func(r *market.Request) { r.Interval = market.Interval("2 Minute") }},
		{"数量为零", func(r *market.Request) { r.NBars = 0 }},
		{"数量为负", func(r *market.Request) { r.NBars = -5 }},
		{"数量超限", func(r *market.Request) { r.NBars = MaxBars + 1 }},
		{"日期顺序颠倒", func(r *market.Request) {
			r.Start = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
			r.End = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			err := Inputs(req)
			require.Error(t, err)
			assert.True(t, market.IsCode(err, market.ErrValidation))
		})
	}
}

func TestDateRange(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, DateRange(start, end))
	assert.NoError(t, DateRange(start, start)) // 同一天允许
	assert.NoError(t, DateRange(time.Time{}, end))
	assert.NoError(t, DateRange(start, time.Time{}))
	assert.Error(t, DateRange(end, start))
}

func TestSymbolList(t *testing.T) {
	duplicates, err := SymbolList([]string{"AAPL", "MSFT", "GOOG"})
	require.NoError(t, err)
	assert.Empty(t, duplicates)

	// 重复标的不报错，但会被报告
	duplicates, err = SymbolList([]string{"AAPL", "aapl", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, []string{"aapl"}, duplicates)

	_, err = SymbolList(nil)
	assert.Error(t, err)

	_, err = SymbolList([]string{"AAPL", ""})
	assert.Error(t, err)
}

func TestBatch(t *testing.T) {
	_, err := Batch([]string{"AAPL"}, "NASDAQ", market.IntervalDaily, time.Time{}, time.Time{})
	assert.NoError(t, err)

	_, err = Batch([]string{"AAPL"}, "", market.IntervalDaily, time.Time{}, time.Time{})
	assert.Error(t, err)

	_, err = Batch([]string{"AAPL"}, "NASDAQ", market.Interval("bogus"), time.Time{}, time.Time{})
	assert.Error(t, err)
}
