// Package logger 基于 zerolog 的结构化日志封装
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config 日志配置
type Config struct {
	Level  string `yaml:"level" default:"info"`     // debug, info, warn, error
	Format string `yaml:"format" default:"console"` // console 或 json
	Output string `yaml:"output" default:"stdout"`  // stdout, stderr 或文件路径
}

// Logger 结构化日志记录器
type Logger struct {
	zl zerolog.Logger
}

// New 根据配置创建日志记录器
func New(cfg Config) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
		}
		level = l
	}

	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		out = f
	}

	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}, nil
}

// NewWithWriter 输出到指定 writer 的 JSON 日志，主要用于测试
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// Nop 丢弃所有输出
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With 返回附带固定字段的子记录器
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.addToContext(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

// Component 返回带 component 字段的子记录器
func (l *Logger) Component(name string) *Logger {
	return l.With(String("component", name))
}

func (l *Logger) Debug(msg string, fields ...Field) { write(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { write(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { write(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { write(l.zl.Error(), msg, fields) }

// Fatal 记录日志后退出进程
func (l *Logger) Fatal(msg string, fields ...Field) { write(l.zl.Fatal(), msg, fields) }

func write(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		f.addToEvent(e)
	}
	e.Msg(msg)
}

// Field 日志字段
type Field struct {
	key   string
	kind  fieldKind
	str   string
	num   int64
	err   error
	value any
}

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt
	kindBool
	kindError
	kindDuration
	kindAny
)

func (f Field) addToEvent(e *zerolog.Event) {
	switch f.kind {
	case kindString:
		e.Str(f.key, f.str)
	case kindInt:
		e.Int64(f.key, f.num)
	case kindBool:
		e.Bool(f.key, f.num != 0)
	case kindError:
		e.AnErr(f.key, f.err)
	case kindDuration:
		e.Dur(f.key, time.Duration(f.num))
	default:
		e.Interface(f.key, f.value)
	}
}

func (f Field) addToContext(c zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString:
		return c.Str(f.key, f.str)
	case kindInt:
		return c.Int64(f.key, f.num)
	case kindBool:
		return c.Bool(f.key, f.num != 0)
	case kindError:
		return c.AnErr(f.key, f.err)
	case kindDuration:
		return c.Dur(f.key, time.Duration(f.num))
	default:
		return c.Interface(f.key, f.value)
	}
}

func String(key, value string) Field { return Field{key: key, kind: kindString, str: value} }
func Int(key string, value int) Field { return Field{key: key, kind: kindInt, num: int64(value)} }
func Int64(key string, value int64) Field {
	return Field{key: key, kind: kindInt, num: value}
}
func Float(key string, value float64) Field { return Field{key: key, kind: kindAny, value: value} }
func Error(err error) Field                 { return Field{key: "error", kind: kindError, err: err} }
func Any(key string, value any) Field       { return Field{key: key, kind: kindAny, value: value} }

func Bool(key string, value bool) Field {
	f := Field{key: key, kind: kindBool}
	if value {
		f.num = 1
	}
	return f
}

func Duration(key string, value time.Duration) Field {
	return Field{key: key, kind: kindDuration, num: int64(value)}
}
