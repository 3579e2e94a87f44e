package cache

import (
	"bytes"
	"fmt"
	"time"

	"cdpsession/pkg/model"
)

// Content 页面与静态资源两层内容缓存，两层容量独立、互不影响
type Content struct {
	pages  *Bounded[string, []byte]
	assets *Bounded[string, []byte]
}

// ContentStats 两层缓存的统计
type ContentStats struct {
	Pages  model.CacheStats
	Assets model.CacheStats
}

// NewContent 创建内容缓存，容量按条目数计
func NewContent(pageCapacity, assetCapacity int, opts ...Option[[]byte]) (*Content, error) {
	opts = append([]Option[[]byte]{WithClone(bytes.Clone)}, opts...)
	pages, err := New[string, []byte](pageCapacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("page tier: %w", err)
	}
	assets, err := New[string, []byte](assetCapacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("asset tier: %w", err)
	}
	return &Content{pages: pages, assets: assets}, nil
}

func (c *Content) GetPage(url string) ([]byte, bool) { return c.pages.Get(url) }

func (c *Content) StorePage(url string, body []byte) { c.pages.Put(url, body) }

func (c *Content) GetAsset(url string) ([]byte, bool) { return c.assets.Get(url) }

func (c *Content) StoreAsset(url string, body []byte) { c.assets.Put(url, body) }

// StorePages 批量写入页面层，只加锁一次
func (c *Content) StorePages(pages map[string][]byte) { c.pages.PutAll(pages) }

// Get 按分层读取，未知分层视为未命中
func (c *Content) Get(tier model.Tier, url string) ([]byte, bool) {
	switch tier {
	case model.TierPage:
		return c.GetPage(url)
	case model.TierAsset:
		return c.GetAsset(url)
	}
	return nil, false
}

// Store 按分层写入，未知分层忽略
func (c *Content) Store(tier model.Tier, url string, body []byte) {
	switch tier {
	case model.TierPage:
		c.StorePage(url, body)
	case model.TierAsset:
		c.StoreAsset(url, body)
	}
}

// ClearAll 依次在各层自身的锁内清空两层
func (c *Content) ClearAll() {
	c.pages.Clear()
	c.assets.Clear()
}

// PurgeOlderThan 清除两层中早于 cutoff 写入的条目
func (c *Content) PurgeOlderThan(cutoff time.Time) (pages, assets int) {
	return c.pages.PurgeOlderThan(cutoff), c.assets.PurgeOlderThan(cutoff)
}

func (c *Content) Stats() ContentStats {
	return ContentStats{Pages: c.pages.Stats(), Assets: c.assets.Stats()}
}
