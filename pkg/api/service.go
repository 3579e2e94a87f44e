package api

import (
	"context"
	"time"

	"cdpsession/internal/logger"
	"cdpsession/internal/service"
	"cdpsession/pkg/model"
	"cdpsession/pkg/traffic"
)

// Service 服务接口
type Service interface {
	// StartSession 启动会话
	StartSession(cfg model.SessionConfig) (model.SessionID, error)

	// StopSession 停止会话
	StopSession(id model.SessionID) error

	// AddFilter 追加请求过滤器
	AddFilter(id model.SessionID, f model.RequestFilter) error

	// Intercept 提交观察到的请求
	Intercept(id model.SessionID, rec traffic.RequestRecord) (bool, error)

	// Records 获取请求记录
	Records(id model.SessionID) ([]traffic.RequestRecord, error)

	// ClearRecords 清空请求记录
	ClearRecords(id model.SessionID) error

	// Load 经缓存读取内容
	Load(ctx context.Context, id model.SessionID, tier model.Tier, url string, fetch model.FetchFunc) (model.LoadResult, error)

	// ClearCache 清空内容缓存
	ClearCache(id model.SessionID) error

	// Cleanup 清理过期资源
	Cleanup(id model.SessionID, maxAge time.Duration) (model.CleanupReport, error)

	// Stats 获取统计信息
	Stats(id model.SessionID) (model.SessionStats, error)

	// ArchiveRecords 归档请求记录
	ArchiveRecords(ctx context.Context, id model.SessionID) (int, error)

	// SubscribeEvents 订阅事件
	SubscribeEvents(id model.SessionID) (<-chan model.Event, error)

	// SubscribeRecords 订阅新记录的请求
	SubscribeRecords(id model.SessionID, buffer int) (<-chan traffic.RequestRecord, func(), error)

	// Close 关闭全部会话
	Close()
}

// NewService 创建并返回服务接口实现
func NewService(l logger.Logger, opts ...service.Option) Service {
	return service.New(l, opts...)
}
