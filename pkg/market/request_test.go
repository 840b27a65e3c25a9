package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestCacheKey(t *testing.T) {
	req := Request{Symbol: "aapl", Exchange: "nasdaq", Interval: IntervalDaily, NBars: 100}
	assert.Equal(t, "NASDAQ_AAPL_D_100", req.CacheKey())

	// 逻辑等价的请求必须产生相同的键
	other := Request{Symbol: " AAPL ", Exchange: "Nasdaq", Interval: IntervalDaily, NBars: 100}
	assert.Equal(t, req.CacheKey(), other.CacheKey())

	// 任一维度不同则键不同
	assert.NotEqual(t, req.CacheKey(), Request{Symbol: "MSFT", Exchange: "NASDAQ", Interval: IntervalDaily, NBars: 100}.CacheKey())
	assert.NotEqual(t, req.CacheKey(), Request{Symbol: "AAPL", Exchange: "NYSE", Interval: IntervalDaily, NBars: 100}.CacheKey())
	assert.NotEqual(t, req.CacheKey(), Request{Symbol: "AAPL", Exchange: "NASDAQ", Interval: IntervalWeekly, NBars: 100}.CacheKey())
	assert.NotEqual(t, req.CacheKey(), Request{Symbol: "AAPL", Exchange: "NASDAQ", Interval: IntervalDaily, NBars: 200}.CacheKey())
}

func TestParseCacheKey(t *testing.T) {
	kc, ok := ParseCacheKey("NASDAQ_AAPL_D_100")
	require.True(t, ok)
	assert.Equal(t, "NASDAQ", kc.Exchange)
	assert.Equal(t, "AAPL", kc.Symbol)
	assert.Equal(t, "D", kc.IntervalCode)
	assert.Equal(t, 100, kc.NBars)
}

func TestParseCacheKeyUnderscoreSymbol(t *testing.T) {
	// 标的本身包含下划线时仍能正确解析
	req := Request{Symbol: "BRK_B", Exchange: "NYSE", Interval: Interval1Hour, NBars: 500}
	kc, ok := ParseCacheKey(req.CacheKey())
	require.True(t, ok)
	assert.Equal(t, "NYSE", kc.Exchange)
	assert.Equal(t, "BRK_B", kc.Symbol)
	assert.Equal(t, "1H", kc.IntervalCode)
	assert.Equal(t, 500, kc.NBars)
}

func TestParseCacheKeyInvalid(t *testing.T) {
	for _, key := range []string{"", "abc", "A_B_C", "NASDAQ_AAPL_D_notanumber"} {
		_, ok := ParseCacheKey(key)
		assert.False(t, ok, "key %q should not parse", key)
	}
}

func TestKeyComponentsMatches(t *testing.T) {
	kc, ok := ParseCacheKey("NASDAQ_AAPL_D_100")
	require.True(t, ok)

	assert.True(t, kc.Matches("AAPL", ""))
	assert.True(t, kc.Matches("aapl", "nasdaq"))
	assert.True(t, kc.Matches("", "NASDAQ"))
	assert.True(t, kc.Matches("", ""))
	assert.False(t, kc.Matches("MSFT", ""))
	assert.False(t, kc.Matches("AAPL", "NYSE"))
}

func TestNewRequestDefaults(t *testing.T) {
	req := NewRequest("AAPL", "NASDAQ", IntervalDaily, 100)
	assert.True(t, req.UseCache)
	assert.True(t, req.Validate)
}
