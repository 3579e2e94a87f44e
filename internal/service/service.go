package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cdpsession/internal/ctxkeys"
	"cdpsession/internal/handler"
	"cdpsession/internal/logger"
	"cdpsession/internal/session"
	"cdpsession/internal/storage"
	"cdpsession/pkg/model"
	"cdpsession/pkg/traffic"
)

// svc 服务实现
type svc struct {
	sessions *session.Manager
	handler  *handler.Handler
	archive  *storage.Archive
	log      logger.Logger
}

// Option 服务可选项
type Option func(*svc)

// WithArchive 启用请求记录归档
func WithArchive(a *storage.Archive) Option {
	return func(s *svc) { s.archive = a }
}

// New 创建并返回服务实例
func New(l logger.Logger, opts ...Option) *svc {
	if l == nil {
		l = logger.NewNop()
	}
	s := &svc{
		sessions: session.NewManager(l),
		handler:  handler.New(handler.Config{Logger: l}),
		log:      l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession 创建新会话
func (s *svc) StartSession(cfg model.SessionConfig) (model.SessionID, error) {
	id := model.SessionID(uuid.New().String())
	if _, err := s.sessions.Create(id, cfg); err != nil {
		return "", err
	}
	return id, nil
}

// StopSession 停止并销毁会话
func (s *svc) StopSession(id model.SessionID) error {
	if !s.sessions.Delete(id) {
		return notFound(id)
	}
	return nil
}

// AddFilter 为会话追加请求过滤器
func (s *svc) AddFilter(id model.SessionID, f model.RequestFilter) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	if err := sess.Recorder.AddFilter(f); err != nil {
		s.log.Err(err, "添加过滤器失败", "sessionID", string(id), "filter", f.Name)
		return err
	}
	s.log.Info("添加过滤器", "sessionID", string(id), "filter", f.Name, "total", len(sess.Recorder.Filters()))
	return nil
}

// Intercept 提交一条观察到的请求，返回是否被记录
func (s *svc) Intercept(id model.SessionID, rec traffic.RequestRecord) (bool, error) {
	sess, err := s.get(id)
	if err != nil {
		return false, err
	}
	return s.handler.HandleRequest(sess, rec), nil
}

// Records 返回会话的请求记录（由旧到新）
func (s *svc) Records(id model.SessionID) ([]traffic.RequestRecord, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return sess.Recorder.Records(), nil
}

// ClearRecords 清空请求记录，保留过滤器
func (s *svc) ClearRecords(id model.SessionID) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.Recorder.Clear()
	return nil
}

// Load 经缓存与准入池读取内容
func (s *svc) Load(ctx context.Context, id model.SessionID, tier model.Tier, url string, fetch model.FetchFunc) (model.LoadResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return model.LoadResult{}, err
	}
	if ctxkeys.TraceID(ctx) == "" {
		ctx = ctxkeys.WithTraceID(ctx, uuid.New().String())
	}
	return s.handler.Load(ctx, sess, tier, url, fetch)
}

// ClearCache 清空会话的两层内容缓存
func (s *svc) ClearCache(id model.SessionID) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.Cache.ClearAll()
	s.log.Info("清空内容缓存", "sessionID", string(id))
	return nil
}

// Cleanup 清理超过 maxAge 的缓存条目与请求记录
func (s *svc) Cleanup(id model.SessionID, maxAge time.Duration) (model.CleanupReport, error) {
	sess, err := s.get(id)
	if err != nil {
		return model.CleanupReport{}, err
	}
	rep := sess.Cleanup(maxAge)
	s.log.Info("清理过期资源", "sessionID", string(id), "maxAge", maxAge,
		"pages", rep.Pages, "assets", rep.Assets, "records", rep.Records)
	return rep, nil
}

// Stats 获取会话资源统计
func (s *svc) Stats(id model.SessionID) (model.SessionStats, error) {
	sess, err := s.get(id)
	if err != nil {
		return model.SessionStats{}, err
	}
	return sess.Stats(), nil
}

// ArchiveRecords 将当前请求记录写入归档库，返回写入条数
func (s *svc) ArchiveRecords(ctx context.Context, id model.SessionID) (int, error) {
	sess, err := s.get(id)
	if err != nil {
		return 0, err
	}
	if s.archive == nil {
		return 0, fmt.Errorf("archive not configured")
	}
	ctx = ctxkeys.WithTraceID(ctx, uuid.New().String())
	n, err := s.archive.Save(ctx, id, sess.Recorder.Records())
	if err != nil {
		s.log.Err(err, "归档请求记录失败", "sessionID", string(id))
		return 0, err
	}
	s.log.Info("归档请求记录", "sessionID", string(id), "count", n)
	return n, nil
}

// SubscribeEvents 订阅会话事件
func (s *svc) SubscribeEvents(id model.SessionID) (<-chan model.Event, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return sess.Events(), nil
}

// SubscribeRecords 订阅会话新记录的请求，返回通道与取消函数；会话停止时通道关闭
func (s *svc) SubscribeRecords(id model.SessionID, buffer int) (<-chan traffic.RequestRecord, func(), error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := sess.Recorder.Subscribe(buffer)
	return ch, cancel, nil
}

// Close 销毁全部会话
func (s *svc) Close() {
	s.sessions.CloseAll()
}

func (s *svc) get(id model.SessionID) (*session.Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, notFound(id)
	}
	return sess, nil
}

func notFound(id model.SessionID) error {
	return fmt.Errorf("session %s: %w", id, model.ErrSessionNotFound)
}
