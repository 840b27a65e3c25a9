package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeglob/pkg/market"
)

func newTestDiskCache(t *testing.T, dir string) *DiskCache {
	t.Helper()
	dc, err := NewDiskCache(DiskCacheConfig{
		Dir:        dir,
		MaxSize:    100,
		DefaultTTL: time.Hour,
	})
	require.NoError(t, err)
	return dc
}

func TestDiskCacheRoundtrip(t *testing.T) {
	ctx := context.Background()
	dc := newTestDiskCache(t, t.TempDir())
	defer dc.Close()

	key := keyFor("AAPL", 10)
	require.NoError(t, dc.Set(ctx, key, testSeries("AAPL", 10), 0))

	got, err := dc.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Len())
	assert.True(t, got.FromCache)
	assert.Equal(t, testSeries("AAPL", 10).Bars[0].Close, got.Bars[0].Close)
}

func TestDiskCacheFilePerKey(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dc := newTestDiskCache(t, dir)
	defer dc.Close()

	key := keyFor("AAPL", 10)
	require.NoError(t, dc.Set(ctx, key, testSeries("AAPL", 10), 0))

	// 文件名就是缓存键
	_, err := os.Stat(filepath.Join(dir, key+".json"))
	assert.NoError(t, err)
}

func TestDiskCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	dc := newTestDiskCache(t, t.TempDir())
	defer dc.Close()

	key := keyFor("AAPL", 10)
	require.NoError(t, dc.Set(ctx, key, testSeries("AAPL", 10), 20*time.Millisecond))

	_, err := dc.Get(ctx, key)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = dc.Get(ctx, key)
	assert.True(t, market.IsCode(err, market.ErrCacheMiss), "过期条目应按未命中处理")
}

func TestDiskCachePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	dc := newTestDiskCache(t, dir)
	key := keyFor("AAPL", 10)
	require.NoError(t, dc.Set(ctx, key, testSeries("AAPL", 10), 0))
	require.NoError(t, dc.Close())

	// 重新打开后条目仍然可读
	dc2 := newTestDiskCache(t, dir)
	defer dc2.Close()

	got, err := dc2.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Len())
}

func TestDiskCacheRebuildWithoutMetadata(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	dc := newTestDiskCache(t, dir)
	key := keyFor("AAPL", 10)
	require.NoError(t, dc.Set(ctx, key, testSeries("AAPL", 10), 0))
	require.NoError(t, dc.Close())

	// 删除元数据索引，模拟异常退出
	require.NoError(t, os.Remove(filepath.Join(dir, metadataFilename)))

	dc2 := newTestDiskCache(t, dir)
	defer dc2.Close()

	got, err := dc2.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Len())
}

func TestDiskCacheCorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dc := newTestDiskCache(t, dir)
	defer dc.Close()

	key := keyFor("AAPL", 10)
	require.NoError(t, dc.Set(ctx, key, testSeries("AAPL", 10), 0))

	// 写坏缓存文件
	require.NoError(t, os.WriteFile(filepath.Join(dir, key+".json"), []byte("{not json"), 0644))

	_, err := dc.Get(ctx, key)
	assert.True(t, market.IsCode(err, market.ErrCacheMiss), "损坏条目应按未命中处理")
}

func TestDiskCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dc := newTestDiskCache(t, dir)
	defer dc.Close()

	aaplKey := keyFor("AAPL", 10)
	msftKey := keyFor("MSFT", 10)
	require.NoError(t, dc.Set(ctx, aaplKey, testSeries("AAPL", 10), 0))
	require.NoError(t, dc.Set(ctx, msftKey, testSeries("MSFT", 10), 0))

	count, err := dc.Invalidate(ctx, "AAPL", "NASDAQ")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// 文件同步删除
	_, statErr := os.Stat(filepath.Join(dir, aaplKey+".json"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = dc.Get(ctx, msftKey)
	assert.NoError(t, err)
}

func TestDiskCacheClear(t *testing.T) {
	ctx := context.Background()
	dc := newTestDiskCache(t, t.TempDir())
	defer dc.Close()

	require.NoError(t, dc.Set(ctx, keyFor("AAPL", 10), testSeries("AAPL", 10), 0))
	require.NoError(t, dc.Set(ctx, keyFor("MSFT", 10), testSeries("MSFT", 10), 0))

	require.NoError(t, dc.Clear(ctx))
	assert.Equal(t, int64(0), dc.Stats().Size)
}

func TestLayeredCachePromotion(t *testing.T) {
	ctx := context.Background()
	l1 := NewMemoryCache(MemoryCacheConfig{DefaultTTL: time.Hour})
	l2 := newTestDiskCache(t, t.TempDir())
	lc := NewLayeredCache(l1, l2, time.Hour)
	defer lc.Close()

	key := keyFor("AAPL", 10)
	// 只写入二级，模拟一级重启后的冷状态
	require.NoError(t, l2.Set(ctx, key, testSeries("AAPL", 10), 0))

	got, err := lc.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Len())

	// 二级命中后条目被提升到一级
	_, err = l1.Get(ctx, key)
	assert.NoError(t, err)
}
