package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"go-gin-gorm-rbac/internal/core/config"
)

// New 按 log 配置构建进程 logger，每条日志带 app / env
func New(lc config.Log, app config.App) (*zap.Logger, func()) {
	var lvl zapcore.Level
	if err := lvl.Set(lc.Level); err != nil {
		lvl = zapcore.InfoLevel
	}

	enc := encoder(lc.JSON)
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)}

	// 配了文件才切割落盘
	if lc.File != "" {
		rot := &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    max(1, lc.MaxSizeMB),
			MaxBackups: max(0, lc.MaxBackups),
			MaxAge:     max(0, lc.MaxAgeDays),
			Compress:   lc.Compress,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rot), lvl))
	}

	core := zapcore.NewTee(cores...)
	if lc.JSON {
		// 线上采样，warn 以上不丢
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
		core = &keepWarn{Core: core, full: zapcore.NewTee(cores...)}
	}

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("app", app.Name), zap.String("env", app.Env)),
	}
	if app.Debug {
		opts = append(opts, zap.Development())
	}
	l := zap.New(core, opts...)
	return l, func() { _ = l.Sync() }
}

func encoder(json bool) zapcore.Encoder {
	if json {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// keepWarn samples below warn only; permission denials and errors are
// always written.
type keepWarn struct {
	zapcore.Core
	full zapcore.Core
}

func (k *keepWarn) With(fs []zapcore.Field) zapcore.Core {
	return &keepWarn{Core: k.Core.With(fs), full: k.full.With(fs)}
}

func (k *keepWarn) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if e.Level >= zapcore.WarnLevel {
		return k.full.Check(e, ce)
	}
	return k.Core.Check(e, ce)
}

type ctxKey struct{}

// WithRequestID stores the request id for For.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, rid)
}

func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(ctxKey{}).(string)
	return rid
}

// For returns l tagged with the request id carried by ctx, if any.
func For(ctx context.Context, l *zap.Logger) *zap.Logger {
	if rid := RequestID(ctx); rid != "" {
		return l.With(zap.String("rid", rid))
	}
	return l
}

// PrintfWriter is the Printf sink gorm's logger writes SQL traces to.
type PrintfWriter struct {
	l     *zap.Logger
	level zapcore.Level
}

func NewPrintfWriter(l *zap.Logger, level zapcore.Level) PrintfWriter {
	return PrintfWriter{l: l.WithOptions(zap.AddCallerSkip(2)), level: level}
}

// Printf 把 gorm 的多行输出压成一行
func (w PrintfWriter) Printf(format string, args ...any) {
	msg := strings.ReplaceAll(strings.TrimSpace(fmt.Sprintf(format, args...)), "\n", " ")
	if ce := w.l.Check(w.level, msg); ce != nil {
		ce.Write()
	}
}

// RedirectStdLog 第三方库的 log.Print 也走 zap
func RedirectStdLog(l *zap.Logger, level zapcore.Level) func() {
	undo, err := zap.RedirectStdLogAt(l.Named("stdlog"), level)
	if err != nil {
		return func() {}
	}
	return undo
}
