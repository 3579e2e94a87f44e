package session

import (
	"fmt"
	"sync"
	"time"

	"cdpsession/pkg/admission"
	"cdpsession/pkg/cache"
	"cdpsession/pkg/model"
	"cdpsession/pkg/recorder"
)

// eventBuffer 会话事件通道容量，满时丢弃新事件
const eventBuffer = 256

// Session 一个自动化会话持有的资源
//
// Cache、Pool、Recorder 在会话创建时构造一次，由该会话的所有并发调用方共享，
// 彼此之间不互相调用，也不反向引用会话。
type Session struct {
	ID        model.SessionID
	Config    model.SessionConfig
	CreatedAt time.Time

	Cache    *cache.Content
	Pool     *admission.Pool
	Recorder *recorder.Recorder

	mu     sync.RWMutex
	closed bool
	events chan model.Event
}

// New 按配置构造会话资源，任一组件参数非法时返回错误
func New(id model.SessionID, cfg model.SessionConfig) (*Session, error) {
	content, err := cache.NewContent(cfg.PageCapacity, cfg.AssetCapacity)
	if err != nil {
		return nil, fmt.Errorf("content cache: %w", err)
	}
	pool, err := admission.New(cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("admission pool: %w", err)
	}
	rec, err := recorder.New(cfg.MaxRecords, recorder.WithRedactPaths(cfg.RedactPaths...))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("event recorder: %w", err)
	}
	for i, f := range cfg.Filters {
		if err := rec.AddFilter(f); err != nil {
			pool.Close()
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
	}
	return &Session{
		ID:        id,
		Config:    cfg,
		CreatedAt: time.Now(),
		Cache:     content,
		Pool:      pool,
		Recorder:  rec,
		events:    make(chan model.Event, eventBuffer),
	}, nil
}

// Events 会话事件流，会话关闭后通道随之关闭
func (s *Session) Events() <-chan model.Event { return s.events }

// Emit 非阻塞发送事件，自动添加时间戳与会话ID；会话关闭后丢弃
func (s *Session) Emit(evt model.Event) {
	evt.Session = s.ID
	evt.Timestamp = time.Now().UnixMilli()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- evt:
	default:
	}
}

// Cleanup 移除早于 maxAge 的缓存条目与请求记录
func (s *Session) Cleanup(maxAge time.Duration) model.CleanupReport {
	cutoff := time.Now().Add(-maxAge)
	pages, assets := s.Cache.PurgeOlderThan(cutoff)
	return model.CleanupReport{
		Pages:   pages,
		Assets:  assets,
		Records: s.Recorder.DropBefore(cutoff),
	}
}

// Stats 汇总会话资源统计
func (s *Session) Stats() model.SessionStats {
	cs := s.Cache.Stats()
	return model.SessionStats{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Pages:     cs.Pages,
		Assets:    cs.Assets,
		Pool:      s.Pool.Stats(),
		Recorder:  s.Recorder.Stats(),
	}
}

// Close 释放会话资源：关闭准入池唤醒等待者，关闭记录订阅与事件通道，可重复调用
func (s *Session) Close() {
	s.Pool.Close()
	s.Recorder.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}
