package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 结构化日志接口，参数为交替的键值对
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Err(err error, msg string, kv ...any)
	With(kv ...any) Logger
}

// Options 日志配置
type Options struct {
	Level   string   // debug/info/warn/error
	Writers []string // console/file
	File    string   // 日志文件路径

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Output 非空时替代 console 输出，主要用于测试
	Output io.Writer
}

type zlog struct {
	l zerolog.Logger
}

// New 根据配置创建 zerolog 日志实例
func New(opts Options) Logger {
	var writers []io.Writer
	for _, w := range opts.Writers {
		switch strings.ToLower(w) {
		case "console":
			out := opts.Output
			if out == nil {
				out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}
			}
			writers = append(writers, out)
		case "file":
			file := opts.File
			if file == "" {
				file = "logs/cdpsession.log"
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   file,
				MaxSize:    orDefault(opts.MaxSizeMB, 50),
				MaxBackups: orDefault(opts.MaxBackups, 5),
				MaxAge:     orDefault(opts.MaxAgeDays, 14),
				Compress:   true,
			})
		}
	}
	if len(writers) == 0 {
		if opts.Output != nil {
			writers = append(writers, opts.Output)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
		}
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Logger()
	return &zlog{l: l}
}

// NewNop 返回丢弃全部输出的日志实例
func NewNop() Logger {
	return &zlog{l: zerolog.Nop()}
}

// ParseLevel 解析日志级别，无法识别时为 info
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (z *zlog) Debug(msg string, kv ...any) { z.write(z.l.Debug(), msg, kv) }

func (z *zlog) Info(msg string, kv ...any) { z.write(z.l.Info(), msg, kv) }

func (z *zlog) Warn(msg string, kv ...any) { z.write(z.l.Warn(), msg, kv) }

func (z *zlog) Error(msg string, kv ...any) { z.write(z.l.Error(), msg, kv) }

func (z *zlog) Err(err error, msg string, kv ...any) {
	z.write(z.l.Error().Err(err), msg, kv)
}

func (z *zlog) With(kv ...any) Logger {
	return &zlog{l: z.l.With().Fields(normalize(kv)).Logger()}
}

func (z *zlog) write(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	e.Fields(normalize(kv)).Msg(msg)
}

// normalize 保证键为字符串且成对出现
func normalize(kv []any) []any {
	if len(kv)%2 != 0 {
		kv = append(kv, "(MISSING)")
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		out = append(out, key, kv[i+1])
	}
	return out
}
