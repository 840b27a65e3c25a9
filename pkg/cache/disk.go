package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tradeglob/pkg/logger"
	"tradeglob/pkg/market"
)

// DiskCacheConfig 磁盘缓存配置。
type DiskCacheConfig struct {
	Dir             string        `json:"dir" mapstructure:"dir"`                 // 缓存文件目录
	MaxSize         int64         `json:"max_size" mapstructure:"max_size"`       // 最大条目数
	DefaultTTL      time.Duration `json:"default_ttl" mapstructure:"default_ttl"` // 默认生存时间
	CleanupInterval time.Duration `json:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// diskEntry 磁盘缓存条目的内存元数据。
type diskEntry struct {
	Key        string    `json:"key"`
	Filepath   string    `json:"filepath"`
	Size       int64     `json:"size"`
	CreateTime time.Time `json:"create_time"`
	AccessTime time.Time `json:"access_time"`
	ExpireTime time.Time `json:"expire_time"`
}

// DiskCache 磁盘缓存实现。每个缓存键对应一个独立的JSON文件，
// 文件名即键本身（如 NASDAQ_AAPL_D_100.json），因此不同键的
// 并发写入互不干扰，同键并发写入为后写覆盖。
// 元数据索引在 Close 时持久化到 metadata.json，重启后恢复；
// 索引缺失时按目录内容重建，以文件修改时间推算条目年龄。
type DiskCache struct {
	mu        sync.RWMutex
	config    DiskCacheConfig
	entries   map[string]diskEntry
	hitCount  int64
	missCount int64
	closeChan chan struct{}
	closed    bool
	log       *logger.Entry
}

const metadataFilename = "metadata.json"

// NewDiskCache 创建磁盘缓存实例并恢复既有条目。
func NewDiskCache(config DiskCacheConfig) (*DiskCache, error) {
	if config.Dir == "" {
		config.Dir = ".cache"
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, market.WrapError(market.ErrCacheIO, "create cache dir failed", err)
	}

	dc := &DiskCache{
		config:    config,
		entries:   make(map[string]diskEntry),
		closeChan: make(chan struct{}),
		log:       logger.WithComponent("DiskCache"),
	}

	if err := dc.loadMetadata(); err != nil {
		dc.log.Warnf("load cache metadata failed, rebuilding from directory: %v", err)
	}
	if len(dc.entries) == 0 {
		dc.rebuildFromDir()
	}

	if config.CleanupInterval > 0 {
		go dc.cleanupWorker()
	}
	return dc, nil
}

// Get 读取条目。不存在或已过期时按未命中处理；
// 过期条目不立即删除文件，留待后台清理。
func (dc *DiskCache) Get(ctx context.Context, key string) (*market.Series, error) {
	dc.mu.RLock()
	if dc.closed {
		dc.mu.RUnlock()
		return nil, market.NewError(market.ErrCacheIO, "cache is closed")
	}
	entry, exists := dc.entries[key]
	dc.mu.RUnlock()

	if !exists {
		dc.miss()
		return nil, errMiss(key)
	}
	if time.Now().After(entry.ExpireTime) {
		dc.miss()
		return nil, errMiss(key)
	}

	data, err := os.ReadFile(entry.Filepath)
	if err != nil {
		dc.miss()
		// 文件损坏或丢失：移除索引条目，按未命中处理。
		dc.mu.Lock()
		delete(dc.entries, key)
		dc.mu.Unlock()
		return nil, errMiss(key)
	}

	var series market.Series
	if err := json.Unmarshal(data, &series); err != nil {
		dc.miss()
		dc.mu.Lock()
		delete(dc.entries, key)
		dc.mu.Unlock()
		go os.Remove(entry.Filepath)
		return nil, errMiss(key)
	}

	dc.mu.Lock()
	entry.AccessTime = time.Now()
	dc.entries[key] = entry
	dc.hitCount++
	dc.mu.Unlock()

	series.FromCache = true
	return &series, nil
}

// Set 写入或整体覆盖一个条目。写入先落到临时文件再原子改名。
func (dc *DiskCache) Set(ctx context.Context, key string, series *market.Series, ttl time.Duration) error {
	if series == nil || series.Empty() {
		return market.NewError(market.ErrValidation, "refusing to cache an empty series")
	}

	data, err := json.Marshal(series)
	if err != nil {
		return market.WrapError(market.ErrCacheIO, "serialize series failed", err)
	}

	path := filepath.Join(dc.config.Dir, key+".json")
	if err := writeAtomic(path, data); err != nil {
		return market.WrapError(market.ErrCacheIO, "write cache file failed", err)
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()
	if dc.closed {
		return market.NewError(market.ErrCacheIO, "cache is closed")
	}
	if ttl <= 0 {
		ttl = dc.config.DefaultTTL
	}

	if _, exists := dc.entries[key]; !exists &&
		dc.config.MaxSize > 0 && int64(len(dc.entries)) >= dc.config.MaxSize {
		dc.evictOldest()
	}

	now := time.Now()
	dc.entries[key] = diskEntry{
		Key:        key,
		Filepath:   path,
		Size:       int64(len(data)),
		CreateTime: now,
		AccessTime: now,
		ExpireTime: now.Add(ttl),
	}
	return nil
}

// evictOldest 淘汰最久未访问的条目。调用方必须已持有写锁。
func (dc *DiskCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for k, e := range dc.entries {
		if oldestTime.IsZero() || e.AccessTime.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.AccessTime
		}
	}
	if oldestKey != "" {
		old := dc.entries[oldestKey]
		delete(dc.entries, oldestKey)
		os.Remove(old.Filepath)
	}
}

// Delete 删除指定键及其磁盘文件。
func (dc *DiskCache) Delete(ctx context.Context, key string) error {
	dc.mu.Lock()
	entry, exists := dc.entries[key]
	if exists {
		delete(dc.entries, key)
	}
	dc.mu.Unlock()

	if exists {
		if err := os.Remove(entry.Filepath); err != nil && !os.IsNotExist(err) {
			return market.WrapError(market.ErrCacheIO, "delete cache file failed", err)
		}
	}
	return nil
}

// Clear 清空缓存及所有磁盘文件。
func (dc *DiskCache) Clear(ctx context.Context) error {
	dc.mu.Lock()
	entries := dc.entries
	dc.entries = make(map[string]diskEntry)
	dc.hitCount = 0
	dc.missCount = 0
	dc.mu.Unlock()

	for _, entry := range entries {
		os.Remove(entry.Filepath)
	}
	return nil
}

// Invalidate 删除匹配标的/交易所的条目。匹配基于键的组成部分，
// 不解析文件内容。两个过滤条件都为空时等价于 Clear。
func (dc *DiskCache) Invalidate(ctx context.Context, symbol, exchange string) (int, error) {
	if symbol == "" && exchange == "" {
		dc.mu.RLock()
		count := len(dc.entries)
		dc.mu.RUnlock()
		return count, dc.Clear(ctx)
	}

	dc.mu.Lock()
	var victims []diskEntry
	for key, entry := range dc.entries {
		kc, ok := market.ParseCacheKey(key)
		if ok && kc.Matches(symbol, exchange) {
			victims = append(victims, entry)
			delete(dc.entries, key)
		}
	}
	dc.mu.Unlock()

	for _, entry := range victims {
		os.Remove(entry.Filepath)
	}
	if len(victims) > 0 {
		dc.log.Infof("invalidated %d cache entries (symbol=%q exchange=%q)", len(victims), symbol, exchange)
	}
	return len(victims), nil
}

// Stats 返回统计信息。
func (dc *DiskCache) Stats() Stats {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	stats := Stats{
		Size:      int64(len(dc.entries)),
		MaxSize:   dc.config.MaxSize,
		HitCount:  dc.hitCount,
		MissCount: dc.missCount,
		TTL:       dc.config.DefaultTTL,
	}
	for _, e := range dc.entries {
		stats.TotalBytes += e.Size
		if stats.Oldest.IsZero() || e.CreateTime.Before(stats.Oldest) {
			stats.Oldest = e.CreateTime
		}
		if e.CreateTime.After(stats.Newest) {
			stats.Newest = e.CreateTime
		}
	}
	if total := stats.HitCount + stats.MissCount; total > 0 {
		stats.HitRate = float64(stats.HitCount) / float64(total)
	}
	return stats
}

// Close 停止后台清理并持久化元数据索引。
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	if dc.closed {
		dc.mu.Unlock()
		return nil
	}
	dc.closed = true
	close(dc.closeChan)
	dc.mu.Unlock()

	return dc.saveMetadata()
}

func (dc *DiskCache) miss() {
	dc.mu.Lock()
	dc.missCount++
	dc.mu.Unlock()
}

func (dc *DiskCache) loadMetadata() error {
	path := filepath.Join(dc.config.Dir, metadataFilename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var entries map[string]diskEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	// 恢复时丢弃已过期或文件已不存在的条目。
	now := time.Now()
	valid := make(map[string]diskEntry)
	for key, entry := range entries {
		if now.After(entry.ExpireTime) {
			go os.Remove(entry.Filepath)
			continue
		}
		if _, err := os.Stat(entry.Filepath); err != nil {
			continue
		}
		valid[key] = entry
	}

	dc.mu.Lock()
	dc.entries = valid
	dc.mu.Unlock()
	return nil
}

// rebuildFromDir 在元数据索引缺失时扫描目录重建索引。
// 条目年龄以文件修改时间推算。
func (dc *DiskCache) rebuildFromDir() {
	files, err := os.ReadDir(dc.config.Dir)
	if err != nil {
		return
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || name == metadataFilename || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		if _, ok := market.ParseCacheKey(key); !ok {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		dc.entries[key] = diskEntry{
			Key:        key,
			Filepath:   filepath.Join(dc.config.Dir, name),
			Size:       info.Size(),
			CreateTime: info.ModTime(),
			AccessTime: info.ModTime(),
			ExpireTime: info.ModTime().Add(dc.config.DefaultTTL),
		}
	}
}

func (dc *DiskCache) saveMetadata() error {
	dc.mu.RLock()
	data, err := json.Marshal(dc.entries)
	dc.mu.RUnlock()
	if err != nil {
		return market.WrapError(market.ErrCacheIO, "serialize metadata failed", err)
	}

	path := filepath.Join(dc.config.Dir, metadataFilename)
	if err := writeAtomic(path, data); err != nil {
		return market.WrapError(market.ErrCacheIO, "write metadata failed", err)
	}
	return nil
}

func (dc *DiskCache) cleanupWorker() {
	ticker := time.NewTicker(dc.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			dc.cleanupExpired()
		case <-dc.closeChan:
			return
		}
	}
}

func (dc *DiskCache) cleanupExpired() {
	now := time.Now()

	dc.mu.Lock()
	var victims []string
	for key, entry := range dc.entries {
		if now.After(entry.ExpireTime) {
			victims = append(victims, entry.Filepath)
			delete(dc.entries, key)
		}
	}
	dc.mu.Unlock()

	for _, path := range victims {
		os.Remove(path)
	}
}

// writeAtomic 先写临时文件再改名，避免读到半写状态的文件。
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var _ Cache = (*DiskCache)(nil)
