package model

import (
	"context"
	"time"
)

type SessionID string

// Tier 内容缓存分层
type Tier string

const (
	TierPage  Tier = "page"
	TierAsset Tier = "asset"
)

type SessionConfig struct {
	DevToolsURL   string          `json:"devToolsURL"`
	PageCapacity  int             `json:"pageCapacity"`
	AssetCapacity int             `json:"assetCapacity"`
	Concurrency   int             `json:"concurrency"`
	MaxRecords    int             `json:"maxRecords"`
	RedactPaths   []string        `json:"redactPaths"`
	Filters       []RequestFilter `json:"filters"`
}

// FetchFunc 由调用方提供的实际抓取逻辑，核心层不做网络 I/O
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// LoadResult 一次内容加载的结果
type LoadResult struct {
	Body []byte
	Tier Tier
	Hit  bool
}

type Event struct {
	Type      string    `json:"type"`
	Session   SessionID `json:"session"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Tier      Tier      `json:"tier,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

type CacheStats struct {
	Capacity  int    `json:"capacity"`
	Len       int    `json:"len"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

type PoolStats struct {
	Capacity    int   `json:"capacity"`
	Outstanding int64 `json:"outstanding"`
	Waiting     int64 `json:"waiting"`
	Peak        int64 `json:"peak"`
	Closed      bool  `json:"closed"`
}

type RecorderStats struct {
	Total    int64            `json:"total"`
	Matched  int64            `json:"matched"`
	Evicted  int64            `json:"evicted"`
	Len      int              `json:"len"`
	Capacity int              `json:"capacity"`
	ByFilter map[string]int64 `json:"byFilter"`
}

// SessionStats 会话资源使用概览
type SessionStats struct {
	ID        SessionID     `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	Pages     CacheStats    `json:"pages"`
	Assets    CacheStats    `json:"assets"`
	Pool      PoolStats     `json:"pool"`
	Recorder  RecorderStats `json:"recorder"`
}

// CleanupReport 一次内存清理移除的条目数
type CleanupReport struct {
	Pages   int `json:"pages"`
	Assets  int `json:"assets"`
	Records int `json:"records"`
}
