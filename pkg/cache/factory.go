package cache

import (
	"fmt"

	"tradeglob/pkg/config"
)

// New 按配置创建缓存后端。backend 取值 disk、memory、redis 或
// layered（内存一级 + 磁盘二级）。缓存未启用时返回 nil。
func New(cfg config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case "memory":
		return NewMemoryCache(MemoryCacheConfig{
			MaxSize:         cfg.MaxSize,
			DefaultTTL:      cfg.TTL,
			CleanupInterval: cfg.CleanupInterval,
		}), nil
	case "disk", "":
		return NewDiskCache(DiskCacheConfig{
			Dir:             cfg.Dir,
			MaxSize:         cfg.MaxSize,
			DefaultTTL:      cfg.TTL,
			CleanupInterval: cfg.CleanupInterval,
		})
	case "redis":
		return NewRedisCache(RedisCacheConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			DefaultTTL: cfg.TTL,
		})
	case "layered":
		l1 := NewMemoryCache(MemoryCacheConfig{
			MaxSize:         cfg.MaxSize,
			DefaultTTL:      cfg.TTL,
			CleanupInterval: cfg.CleanupInterval,
		})
		l2, err := NewDiskCache(DiskCacheConfig{
			Dir:             cfg.Dir,
			MaxSize:         cfg.MaxSize,
			DefaultTTL:      cfg.TTL,
			CleanupInterval: cfg.CleanupInterval,
		})
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(l1, l2, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
