package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"cdpsession/internal/ctxkeys"
	"cdpsession/internal/logger"
)

// GormLogger 将 GORM 的 SQL 日志转发到结构化日志，并附带请求链路的 traceId
type GormLogger struct {
	log           logger.Logger
	level         glogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger 创建 GORM 日志适配器，默认只输出告警与错误
func NewGormLogger(l logger.Logger, slow time.Duration) *GormLogger {
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	return &GormLogger{log: l, level: glogger.Warn, slowThreshold: slow}
}

// LogMode 返回指定级别的副本
func (g *GormLogger) LogMode(level glogger.LogLevel) glogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if g.level >= glogger.Info {
		g.scoped(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if g.level >= glogger.Warn {
		g.scoped(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if g.level >= glogger.Error {
		g.scoped(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace 记录单条 SQL：错误、慢查询或（Info 级别下）全部语句
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= glogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := elapsed > g.slowThreshold

	if !(failed && g.level >= glogger.Error) && !(slow && g.level >= glogger.Warn) && g.level < glogger.Info {
		return
	}

	sql, rows := fc()
	l := g.scoped(ctx).With("sql", sql, "rows", rows, "elapsed", elapsed)
	switch {
	case failed && g.level >= glogger.Error:
		l.Err(err, "SQL执行错误")
	case slow && g.level >= glogger.Warn:
		l.Warn("慢SQL查询", "threshold", g.slowThreshold)
	default:
		l.Debug("SQL执行")
	}
}

func (g *GormLogger) scoped(ctx context.Context) logger.Logger {
	if id := ctxkeys.TraceID(ctx); id != "" {
		return g.log.With("traceId", id)
	}
	return g.log
}
