package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"cdpsession/internal/ctxkeys"
	"cdpsession/internal/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	g := NewGormLogger(logger.New(logger.Options{Level: "debug", Output: &buf}), 50*time.Millisecond)
	ctx := ctxkeys.WithTraceID(context.Background(), "trace-1")
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	g.Trace(ctx, time.Now(), stmt, nil)
	assert.Empty(t, buf.String())

	g.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	g.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	assert.Contains(t, buf.String(), "慢SQL查询")
	assert.Contains(t, buf.String(), `"traceId":"trace-1"`)
	buf.Reset()

	g.Trace(ctx, time.Now(), stmt, errors.New("disk I/O error"))
	assert.Contains(t, buf.String(), "SQL执行错误")
	assert.Contains(t, buf.String(), "disk I/O error")
	buf.Reset()

	g.LogMode(glogger.Info).Trace(context.Background(), time.Now(), stmt, nil)
	assert.Contains(t, buf.String(), "SELECT 1")
	assert.NotContains(t, buf.String(), "traceId")
	buf.Reset()

	g.LogMode(glogger.Silent).Trace(ctx, time.Now(), stmt, errors.New("ignored"))
	assert.Empty(t, buf.String())
}
