// Package cache 提供K线序列的缓存层实现：内存缓存、磁盘缓存、
// Redis 缓存以及两级分层缓存。
//
// 缓存键由请求的规范化字段确定性地导出（见 market.Request.CacheKey），
// 键本身编码了交易所、标的、粒度与K线数，支持按标的/交易所做选择性失效。
// 过期采用惰性策略：过期条目在读取时按未命中处理，不做主动删除
// （磁盘实现可选地配置后台清理）。
package cache

import (
	"context"
	"time"

	"tradeglob/pkg/market"
)

// Cache 定义了所有缓存实现都必须遵循的通用接口。
type Cache interface {
	// Get 根据键检索一个序列。不存在或已过期时返回 CACHE_MISS 错误。
	Get(ctx context.Context, key string) (*market.Series, error)
	// Set 写入或整体覆盖一个条目，可指定TTL（0表示使用默认TTL）。
	Set(ctx context.Context, key string, series *market.Series, ttl time.Duration) error
	// Delete 删除指定键。键不存在不算错误。
	Delete(ctx context.Context, key string) error
	// Clear 清空所有条目。
	Clear(ctx context.Context) error
	// Invalidate 删除匹配标的/交易所的条目，返回删除数量。
	// 两个过滤条件都为空时等价于 Clear。
	Invalidate(ctx context.Context, symbol, exchange string) (int, error)
	// Stats 返回当前缓存的统计信息。
	Stats() Stats
	// Close 释放缓存占用的资源。
	Close() error
}

// Stats 缓存统计信息。
type Stats struct {
	Size       int64         `json:"size"`        // 当前条目数
	MaxSize    int64         `json:"max_size"`    // 配置的最大容量
	TotalBytes int64         `json:"total_bytes"` // 持久化数据总字节数（仅磁盘实现）
	HitCount   int64         `json:"hit_count"`
	MissCount  int64         `json:"miss_count"`
	HitRate    float64       `json:"hit_rate"`
	TTL        time.Duration `json:"ttl"`              // 默认TTL
	Oldest     time.Time     `json:"oldest,omitempty"` // 最旧条目的创建时间
	Newest     time.Time     `json:"newest,omitempty"` // 最新条目的创建时间
}

// errMiss 构造统一的未命中错误。
func errMiss(key string) error {
	return market.NewError(market.ErrCacheMiss, "cache miss").WithContext("key", key)
}
