package cache

import (
	"context"
	"time"

	"tradeglob/pkg/market"
)

// LayeredCache 两级分层缓存：一级通常为内存，二级为磁盘或 Redis。
// 读取时先查一级，未命中再查二级并将命中结果提升到一级；
// 写入为写穿透，两级各保留一份。
type LayeredCache struct {
	l1 Cache
	l2 Cache
	// promoteTTL 是二级命中提升到一级时使用的TTL。
	promoteTTL time.Duration
}

// NewLayeredCache 创建分层缓存。promoteTTL 为零时提升条目使用一级的默认TTL。
func NewLayeredCache(l1, l2 Cache, promoteTTL time.Duration) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2, promoteTTL: promoteTTL}
}

// Get 逐级读取，二级命中时提升到一级。
func (lc *LayeredCache) Get(ctx context.Context, key string) (*market.Series, error) {
	if series, err := lc.l1.Get(ctx, key); err == nil {
		return series, nil
	}

	series, err := lc.l2.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	// 提升失败不影响返回结果。
	_ = lc.l1.Set(ctx, key, series, lc.promoteTTL)
	return series, nil
}

// Set 写穿透到两级。任一级失败返回首个错误，但不回滚另一级。
func (lc *LayeredCache) Set(ctx context.Context, key string, series *market.Series, ttl time.Duration) error {
	err1 := lc.l1.Set(ctx, key, series, ttl)
	err2 := lc.l2.Set(ctx, key, series, ttl)
	if err1 != nil {
		return err1
	}
	return err2
}

// Delete 从两级删除。
func (lc *LayeredCache) Delete(ctx context.Context, key string) error {
	err1 := lc.l1.Delete(ctx, key)
	err2 := lc.l2.Delete(ctx, key)
	if err1 != nil {
		return err1
	}
	return err2
}

// Clear 清空两级。
func (lc *LayeredCache) Clear(ctx context.Context) error {
	err1 := lc.l1.Clear(ctx)
	err2 := lc.l2.Clear(ctx)
	if err1 != nil {
		return err1
	}
	return err2
}

// Invalidate 在两级上执行选择性失效，返回二级的删除数量
// （二级为权威存储，一级只是其子集）。
func (lc *LayeredCache) Invalidate(ctx context.Context, symbol, exchange string) (int, error) {
	if _, err := lc.l1.Invalidate(ctx, symbol, exchange); err != nil {
		return 0, err
	}
	return lc.l2.Invalidate(ctx, symbol, exchange)
}

// Stats 返回二级（权威层）的统计，命中数合并两级。
func (lc *LayeredCache) Stats() Stats {
	s1 := lc.l1.Stats()
	s2 := lc.l2.Stats()
	s2.HitCount += s1.HitCount
	s2.MissCount = s1.MissCount // 一级未命中才会落到二级，取一级的未命中数
	if total := s2.HitCount + s2.MissCount; total > 0 {
		s2.HitRate = float64(s2.HitCount) / float64(total)
	}
	return s2
}

// Close 关闭两级缓存。
func (lc *LayeredCache) Close() error {
	err1 := lc.l1.Close()
	err2 := lc.l2.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

var _ Cache = (*LayeredCache)(nil)
