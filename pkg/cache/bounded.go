package cache

import (
	"container/list"
	"sync"
	"time"

	"cdpsession/pkg/model"
)

type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// Bounded 定长 LRU 缓存
//
// map 与访问顺序链表由同一把互斥锁保护。Get 会调整最近使用顺序，
// 因此同样需要独占锁；淘汰与插入在同一临界区内完成，容量在任何时刻都不会被超出。
type Bounded[K comparable, V any] struct {
	capacity int
	clone    func(V) V
	now      func() time.Time

	mu    sync.Mutex
	items map[K]*list.Element
	order *list.List // Front 为最近使用

	hits      uint64
	misses    uint64
	evictions uint64
}

// Option 缓存可选项
type Option[V any] func(*options[V])

type options[V any] struct {
	clone func(V) V
	now   func() time.Time
}

// WithClone 设置值拷贝函数，Put 存入与 Get 返回时都会调用
func WithClone[V any](fn func(V) V) Option[V] {
	return func(o *options[V]) { o.clone = fn }
}

// WithClock 替换时间源
func WithClock[V any](now func() time.Time) Option[V] {
	return func(o *options[V]) { o.now = now }
}

// New 创建容量为 capacity 的缓存，capacity 必须为正
func New[K comparable, V any](capacity int, opts ...Option[V]) (*Bounded[K, V], error) {
	if capacity <= 0 {
		return nil, &model.ConfigurationError{
			Component: "cache",
			Field:     "capacity",
			Value:     capacity,
			Reason:    "must be a positive integer",
		}
	}
	o := options[V]{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bounded[K, V]{
		capacity: capacity,
		clone:    o.clone,
		now:      o.now,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}, nil
}

func (c *Bounded[K, V]) copyOf(v V) V {
	if c.clone == nil {
		return v
	}
	return c.clone(v)
}

// Get 命中时返回值的副本并将其标记为最近使用
func (c *Bounded[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return c.copyOf(el.Value.(*entry[K, V]).value), true
}

// Put 插入或覆盖；新键且已满时先淘汰最久未使用的条目
func (c *Bounded[K, V]) Put(key K, value V) {
	value = c.copyOf(value)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value)
}

// PutAll 在同一临界区内批量写入；超出容量时按写入顺序依次淘汰
func (c *Bounded[K, V]) PutAll(items map[K]V) {
	copied := make(map[K]V, len(items))
	for k, v := range items {
		copied[k] = c.copyOf(v)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range copied {
		c.put(k, v)
	}
}

func (c *Bounded[K, V]) put(key K, value V) {
	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry[K, V])
		ent.value = value
		ent.storedAt = c.now()
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, storedAt: c.now()})
}

func (c *Bounded[K, V]) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
	c.evictions++
}

// Clear 清空全部条目
func (c *Bounded[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element)
	c.order.Init()
}

// PurgeOlderThan 移除写入时间早于 cutoff 的条目，返回移除数量
func (c *Bounded[K, V]) PurgeOlderThan(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		ent := el.Value.(*entry[K, V])
		if ent.storedAt.Before(cutoff) {
			c.order.Remove(el)
			delete(c.items, ent.key)
			n++
		}
		el = prev
	}
	return n
}

func (c *Bounded[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Bounded[K, V]) Cap() int { return c.capacity }

// Keys 按最近使用到最久未使用的顺序返回键，不影响顺序
func (c *Bounded[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry[K, V]).key)
	}
	return out
}

// Stats 返回命中统计
func (c *Bounded[K, V]) Stats() model.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CacheStats{
		Capacity:  c.capacity,
		Len:       c.order.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
