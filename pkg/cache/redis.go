package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"tradeglob/pkg/market"
)

// RedisCacheConfig Redis 缓存配置。
type RedisCacheConfig struct {
	Addr       string        `json:"addr" mapstructure:"addr"`
	Password   string        `json:"password" mapstructure:"password"`
	DB         int           `json:"db" mapstructure:"db"`
	KeyPrefix  string        `json:"key_prefix" mapstructure:"key_prefix"`
	DefaultTTL time.Duration `json:"default_ttl" mapstructure:"default_ttl"`
}

// RedisCache 基于 Redis 的缓存实现，适合多进程共享同一份缓存。
// TTL 由 Redis 服务端管理，过期后键自动消失。
type RedisCache struct {
	client    *redis.Client
	config    RedisCacheConfig
	hitCount  int64
	missCount int64
}

const defaultKeyPrefix = "tradeglob:ohlcv:"

// NewRedisCache 创建 Redis 缓存并验证连通性。
func NewRedisCache(config RedisCacheConfig) (*RedisCache, error) {
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaultKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, market.WrapError(market.ErrCacheIO, "redis connection failed", err)
	}

	return &RedisCache{client: client, config: config}, nil
}

// Get 读取条目。
func (rc *RedisCache) Get(ctx context.Context, key string) (*market.Series, error) {
	data, err := rc.client.Get(ctx, rc.config.KeyPrefix+key).Bytes()
	if err == redis.Nil {
		atomic.AddInt64(&rc.missCount, 1)
		return nil, errMiss(key)
	}
	if err != nil {
		atomic.AddInt64(&rc.missCount, 1)
		return nil, market.WrapError(market.ErrCacheIO, "redis get failed", err)
	}

	var series market.Series
	if err := json.Unmarshal(data, &series); err != nil {
		atomic.AddInt64(&rc.missCount, 1)
		rc.client.Del(ctx, rc.config.KeyPrefix+key)
		return nil, errMiss(key)
	}

	atomic.AddInt64(&rc.hitCount, 1)
	series.FromCache = true
	return &series, nil
}

// Set 写入条目，过期交由 Redis 服务端处理。
func (rc *RedisCache) Set(ctx context.Context, key string, series *market.Series, ttl time.Duration) error {
	if series == nil || series.Empty() {
		return market.NewError(market.ErrValidation, "refusing to cache an empty series")
	}
	if ttl <= 0 {
		ttl = rc.config.DefaultTTL
	}

	data, err := json.Marshal(series)
	if err != nil {
		return market.WrapError(market.ErrCacheIO, "serialize series failed", err)
	}
	if err := rc.client.Set(ctx, rc.config.KeyPrefix+key, data, ttl).Err(); err != nil {
		return market.WrapError(market.ErrCacheIO, "redis set failed", err)
	}
	return nil
}

// Delete 删除指定键。
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	if err := rc.client.Del(ctx, rc.config.KeyPrefix+key).Err(); err != nil {
		return market.WrapError(market.ErrCacheIO, "redis del failed", err)
	}
	return nil
}

// Clear 删除本缓存前缀下的所有键。
func (rc *RedisCache) Clear(ctx context.Context) error {
	_, err := rc.deleteMatching(ctx, func(string) bool { return true })
	return err
}

// Invalidate 删除匹配标的/交易所的条目。
func (rc *RedisCache) Invalidate(ctx context.Context, symbol, exchange string) (int, error) {
	if symbol == "" && exchange == "" {
		return rc.deleteMatching(ctx, func(string) bool { return true })
	}
	return rc.deleteMatching(ctx, func(key string) bool {
		kc, ok := market.ParseCacheKey(key)
		return ok && kc.Matches(symbol, exchange)
	})
}

// deleteMatching 扫描前缀下所有键并删除匹配的条目。
func (rc *RedisCache) deleteMatching(ctx context.Context, match func(key string) bool) (int, error) {
	var cursor uint64
	count := 0
	for {
		keys, next, err := rc.client.Scan(ctx, cursor, rc.config.KeyPrefix+"*", 100).Result()
		if err != nil {
			return count, market.WrapError(market.ErrCacheIO, "redis scan failed", err)
		}
		for _, full := range keys {
			key := strings.TrimPrefix(full, rc.config.KeyPrefix)
			if match(key) {
				if err := rc.client.Del(ctx, full).Err(); err == nil {
					count++
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count, nil
}

// Stats 返回统计信息。条目数通过扫描前缀统计。
func (rc *RedisCache) Stats() Stats {
	stats := Stats{
		HitCount:  atomic.LoadInt64(&rc.hitCount),
		MissCount: atomic.LoadInt64(&rc.missCount),
		TTL:       rc.config.DefaultTTL,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var cursor uint64
	for {
		keys, next, err := rc.client.Scan(ctx, cursor, rc.config.KeyPrefix+"*", 100).Result()
		if err != nil {
			break
		}
		stats.Size += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if total := stats.HitCount + stats.MissCount; total > 0 {
		stats.HitRate = float64(stats.HitCount) / float64(total)
	}
	return stats
}

// Close 关闭 Redis 连接。
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

var _ Cache = (*RedisCache)(nil)
