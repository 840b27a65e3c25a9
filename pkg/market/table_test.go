package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSeries(symbol string, start time.Time, closes ...float64) *Series {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c - 1,
			High:      c + 1,
			Low:       c - 2,
			Close:     c,
			Volume:    int64(1000 + i),
		}
	}
	return &Series{Symbol: symbol, Exchange: "TEST", Interval: IntervalDaily, Bars: bars}
}

func TestBuildTableCloseOnly(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	a := makeSeries("AAPL", start, 100, 101, 102)
	b := makeSeries("MSFT", start, 200, 201, 202)

	table := BuildTable([]*Series{a, b}, nil)

	assert.Equal(t, 3, table.Rows())
	assert.True(t, table.CloseOnly())
	// 简化形态下列名就是标的名，顺序与输入一致
	assert.Equal(t, []string{"AAPL", "MSFT"}, table.ColumnNames())
	assert.Equal(t, []float64{100, 101, 102}, table.Column("AAPL", FieldClose))
}

func TestBuildTableAllFields(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	a := makeSeries("AAPL", start, 100, 101)
	b := makeSeries("MSFT", start, 200, 201)

	table := BuildTable([]*Series{a, b}, AllFields())

	assert.False(t, table.CloseOnly())
	// 2 个标的 × 5 个字段
	require.Len(t, table.Columns(), 10)
	assert.Contains(t, table.ColumnNames(), "AAPL_open")
	assert.Contains(t, table.ColumnNames(), "MSFT_volume")

	// 前 5 列属于第一个标的
	for _, key := range table.Columns()[:5] {
		assert.Equal(t, "AAPL", key.Symbol)
	}
}

func TestBuildTableMisalignedTimestamps(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	a := makeSeries("AAPL", start, 100, 101, 102)
	// MSFT 从一天后开始，首行缺失
	b := makeSeries("MSFT", start.Add(24*time.Hour), 200, 201, 202)

	table := BuildTable([]*Series{a, b}, nil)

	// 行索引是时间戳并集
	assert.Equal(t, 4, table.Rows())

	msft := table.Column("MSFT", FieldClose)
	require.Len(t, msft, 4)
	assert.True(t, math.IsNaN(msft[0]), "缺失行必须为 NaN")
	assert.Equal(t, 200.0, msft[1])

	aapl := table.Column("AAPL", FieldClose)
	assert.True(t, math.IsNaN(aapl[3]))

	// 索引有序
	for i := 1; i < len(table.Index); i++ {
		assert.True(t, table.Index[i].After(table.Index[i-1]))
	}
}

func TestTableFilterRange(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	a := makeSeries("AAPL", start, 100, 101, 102, 103, 104)

	table := BuildTable([]*Series{a}, nil)
	filtered := table.FilterRange(start.Add(24*time.Hour), start.Add(3*24*time.Hour))

	assert.Equal(t, 3, filtered.Rows())
	assert.Equal(t, []float64{101, 102, 103}, filtered.Column("AAPL", FieldClose))
}

func TestSeriesSlice(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	s := makeSeries("AAPL", start, 100, 101, 102, 103)

	sliced := s.Slice(start.Add(24*time.Hour), start.Add(2*24*time.Hour))
	assert.Equal(t, 2, sliced.Len())
	assert.Equal(t, 101.0, sliced.Bars[0].Close)

	// 零值边界表示不限制
	assert.Equal(t, 4, s.Slice(time.Time{}, time.Time{}).Len())
}
