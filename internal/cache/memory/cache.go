package memory

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	DefaultMaxEntries      = 1000
	DefaultCleanupInterval = 5 * time.Minute
)

type item struct {
	value     interface{}
	expiresAt time.Time
	elem      *list.Element
}

type Config struct {
	MaxEntries      int
	CleanupInterval time.Duration
}

// Cache - in-memory кеш с TTL и ограничением размера.
// При переполнении вытесняется самая старая по времени вставки запись.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]*item
	order      *list.List
	maxEntries int
	interval   time.Duration
	stopChan   chan struct{}
	stopped    bool
}

func New() *Cache {
	return NewWithContext(context.Background(), Config{})
}

func NewWithContext(ctx context.Context, cfg Config) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}

	c := &Cache{
		items:      make(map[string]*item),
		order:      list.New(),
		maxEntries: cfg.MaxEntries,
		interval:   cfg.CleanupInterval,
		stopChan:   make(chan struct{}),
	}
	go c.cleanup(ctx)
	return c
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || time.Now().After(it.expiresAt) {
		return nil, false
	}
	return it.value, true
}

// Set overwrites an existing key and counts the overwrite as a fresh insertion.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, ok := c.items[key]; ok {
		it.value = value
		it.expiresAt = time.Now().Add(ttl)
		c.order.MoveToBack(it.elem)
		return
	}

	for len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	it := &item{value: value, expiresAt: time.Now().Add(ttl)}
	it.elem = c.order.PushBack(key)
	c.items[key] = it
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	c.deleteLocked(key)
	c.mu.Unlock()
}

// Len counts stored entries, including expired ones not yet cleaned up.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
	}
	c.mu.Unlock()
}

func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	c.deleteLocked(front.Value.(string))
}

func (c *Cache) deleteLocked(key string) {
	it, ok := c.items[key]
	if !ok {
		return
	}
	c.order.Remove(it.elem)
	delete(c.items, key)
}

func (c *Cache) cleanup(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			c.deleteLocked(k)
		}
	}
}
