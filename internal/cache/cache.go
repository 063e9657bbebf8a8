// Package cache 提供进程内带过期时间的缓存
package cache

import (
	"sync"
	"time"
)

// DefaultTTL 默认缓存有效期
const DefaultTTL = 5 * time.Minute

type entry struct {
	value     interface{}
	expiresAt time.Time
	seq       uint64
}

// Cache 互斥锁保护的内存缓存，懒惰过期
// 条目数超过上限时淘汰最早写入的条目
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	nextSeq    uint64
}

// New 创建缓存，maxEntries<=0 表示不限制条目数
func New(maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
	}
}

// Get 读取缓存，过期条目视为不存在并被删除
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set 写入缓存，ttl<=0 时使用默认有效期
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.nextSeq++
	c.entries[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
		seq:       c.nextSeq,
	}
}

// Delete 删除指定键
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear 清空全部缓存
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len 当前条目数（含未被懒惰清理的过期条目）
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest 淘汰写入序号最小的条目，调用方需持锁
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestSeq uint64
	first := true
	for k, e := range c.entries {
		if first || e.seq < oldestSeq {
			oldestKey = k
			oldestSeq = e.seq
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
