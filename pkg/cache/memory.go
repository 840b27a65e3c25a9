package cache

import (
	"context"
	"sync"
	"time"

	"tradeglob/pkg/market"
)

// MemoryCacheConfig 内存缓存配置。
type MemoryCacheConfig struct {
	MaxSize         int64         `json:"max_size" mapstructure:"max_size"`
	DefaultTTL      time.Duration `json:"default_ttl" mapstructure:"default_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// memEntry 内存缓存条目。
type memEntry struct {
	series     *market.Series
	createTime time.Time
	accessTime time.Time
	expireTime time.Time
}

// MemoryCache 纯内存缓存实现，进程退出后不保留数据。
// 适合作为分层缓存的一级或测试场景。
type MemoryCache struct {
	mu        sync.RWMutex
	config    MemoryCacheConfig
	entries   map[string]memEntry
	hitCount  int64
	missCount int64
	closeChan chan struct{}
	closed    bool
}

// NewMemoryCache 创建内存缓存。CleanupInterval 大于零时启动后台清理协程。
func NewMemoryCache(config MemoryCacheConfig) *MemoryCache {
	mc := &MemoryCache{
		config:    config,
		entries:   make(map[string]memEntry),
		closeChan: make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go mc.cleanupWorker()
	}
	return mc
}

// Get 读取条目。过期条目按未命中处理并顺带删除。
func (mc *MemoryCache) Get(ctx context.Context, key string) (*market.Series, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.closed {
		return nil, market.NewError(market.ErrCacheIO, "cache is closed")
	}

	entry, exists := mc.entries[key]
	if !exists {
		mc.missCount++
		return nil, errMiss(key)
	}
	if time.Now().After(entry.expireTime) {
		delete(mc.entries, key)
		mc.missCount++
		return nil, errMiss(key)
	}

	entry.accessTime = time.Now()
	mc.entries[key] = entry
	mc.hitCount++

	// 返回浅拷贝并标记缓存命中，调用方拿不到缓存内部的指针。
	hit := *entry.series
	hit.FromCache = true
	return &hit, nil
}

// Set 写入条目，容量已满时淘汰最久未访问的条目。
func (mc *MemoryCache) Set(ctx context.Context, key string, series *market.Series, ttl time.Duration) error {
	if series == nil || series.Empty() {
		return market.NewError(market.ErrValidation, "refusing to cache an empty series")
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.closed {
		return market.NewError(market.ErrCacheIO, "cache is closed")
	}
	if ttl <= 0 {
		ttl = mc.config.DefaultTTL
	}

	if _, exists := mc.entries[key]; !exists &&
		mc.config.MaxSize > 0 && int64(len(mc.entries)) >= mc.config.MaxSize {
		mc.evictOldest()
	}

	now := time.Now()
	mc.entries[key] = memEntry{
		series:     series,
		createTime: now,
		accessTime: now,
		expireTime: now.Add(ttl),
	}
	return nil
}

// evictOldest 淘汰最久未访问的条目。调用方必须已持有写锁。
func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for k, e := range mc.entries {
		if oldestTime.IsZero() || e.accessTime.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.accessTime
		}
	}
	if oldestKey != "" {
		delete(mc.entries, oldestKey)
	}
}

// Delete 删除指定键。
func (mc *MemoryCache) Delete(ctx context.Context, key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.entries, key)
	return nil
}

// Clear 清空缓存。
func (mc *MemoryCache) Clear(ctx context.Context) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries = make(map[string]memEntry)
	mc.hitCount = 0
	mc.missCount = 0
	return nil
}

// Invalidate 删除匹配标的/交易所的条目。
func (mc *MemoryCache) Invalidate(ctx context.Context, symbol, exchange string) (int, error) {
	if symbol == "" && exchange == "" {
		mc.mu.Lock()
		count := len(mc.entries)
		mc.entries = make(map[string]memEntry)
		mc.mu.Unlock()
		return count, nil
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	count := 0
	for key := range mc.entries {
		kc, ok := market.ParseCacheKey(key)
		if ok && kc.Matches(symbol, exchange) {
			delete(mc.entries, key)
			count++
		}
	}
	return count, nil
}

// Stats 返回统计信息。
func (mc *MemoryCache) Stats() Stats {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	stats := Stats{
		Size:      int64(len(mc.entries)),
		MaxSize:   mc.config.MaxSize,
		HitCount:  mc.hitCount,
		MissCount: mc.missCount,
		TTL:       mc.config.DefaultTTL,
	}
	for _, e := range mc.entries {
		if stats.Oldest.IsZero() || e.createTime.Before(stats.Oldest) {
			stats.Oldest = e.createTime
		}
		if e.createTime.After(stats.Newest) {
			stats.Newest = e.createTime
		}
	}
	if total := stats.HitCount + stats.MissCount; total > 0 {
		stats.HitRate = float64(stats.HitCount) / float64(total)
	}
	return stats
}

// Close 停止后台清理并拒绝后续读写。
func (mc *MemoryCache) Close() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.closed {
		return nil
	}
	mc.closed = true
	close(mc.closeChan)
	return nil
}

func (mc *MemoryCache) cleanupWorker() {
	ticker := time.NewTicker(mc.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			mc.cleanupExpired()
		case <-mc.closeChan:
			return
		}
	}
}

func (mc *MemoryCache) cleanupExpired() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := time.Now()
	for key, e := range mc.entries {
		if now.After(e.expireTime) {
			delete(mc.entries, key)
		}
	}
}

var _ Cache = (*MemoryCache)(nil)
