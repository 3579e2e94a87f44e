package handler

import (
	"context"
	"fmt"
	"time"

	"cdpsession/internal/ctxkeys"
	"cdpsession/internal/logger"
	"cdpsession/internal/session"
	"cdpsession/pkg/model"
	"cdpsession/pkg/traffic"
)

// Handler 事件处理器，负责协调缓存、准入与记录三个组件并发送事件
//
// 三个组件之间不存在锁嵌套：读缓存、获取许可、抓取、写缓存依次进行，
// 等待许可时不持有任何缓存锁。
type Handler struct {
	fetchTimeout time.Duration
	log          logger.Logger
}

// Config 配置选项
type Config struct {
	// FetchTimeout 单次抓取（含等待许可）的超时，0 表示不额外限制
	FetchTimeout time.Duration
	Logger       logger.Logger
}

// New 创建事件处理器
func New(cfg Config) *Handler {
	l := cfg.Logger
	if l == nil {
		l = logger.NewNop()
	}
	return &Handler{fetchTimeout: cfg.FetchTimeout, log: l}
}

// HandleRequest 处理一次观察到的出站请求，返回是否被记录
func (h *Handler) HandleRequest(s *session.Session, rec traffic.RequestRecord) bool {
	if s.Recorder.Intercept(rec) {
		s.Emit(model.Event{Type: "recorded", URL: rec.URL, Method: rec.Method})
		h.log.Debug("请求已记录", "sessionID", string(s.ID), "url", rec.URL, "method", rec.Method)
		return true
	}
	s.Emit(model.Event{Type: "dropped", URL: rec.URL, Method: rec.Method})
	return false
}

// Load 读取内容：先查缓存，未命中时在准入许可内调用 fetch 并写回缓存
func (h *Handler) Load(ctx context.Context, s *session.Session, tier model.Tier, url string, fetch model.FetchFunc) (model.LoadResult, error) {
	if tier != model.TierPage && tier != model.TierAsset {
		return model.LoadResult{}, fmt.Errorf("load %s: unknown cache tier %q", url, tier)
	}
	if body, ok := s.Cache.Get(tier, url); ok {
		s.Emit(model.Event{Type: "cache_hit", URL: url, Tier: tier})
		return model.LoadResult{Body: body, Tier: tier, Hit: true}, nil
	}
	s.Emit(model.Event{Type: "cache_miss", URL: url, Tier: tier})

	if h.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.fetchTimeout)
		defer cancel()
	}

	l := h.log
	if id := ctxkeys.TraceID(ctx); id != "" {
		l = l.With("traceId", id)
	}
	start := time.Now()
	var body []byte
	err := s.Pool.Do(ctx, func(ctx context.Context) error {
		var err error
		body, err = fetch(ctx, url)
		return err
	})
	if err != nil {
		s.Emit(model.Event{Type: "fetch_failed", URL: url, Tier: tier, Error: err.Error()})
		l.Warn("内容抓取失败", "sessionID", string(s.ID), "url", url, "tier", string(tier), "error", err)
		return model.LoadResult{}, fmt.Errorf("load %s: %w", url, err)
	}

	s.Cache.Store(tier, url, body)
	l.Debug("内容抓取完成", "sessionID", string(s.ID), "url", url, "tier", string(tier),
		"bytes", len(body), "duration", time.Since(start))
	return model.LoadResult{Body: body, Tier: tier}, nil
}
