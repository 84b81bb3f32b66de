package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 为最小结构化日志器：zap JSON 单行输出到轮转文件（失败回落 stderr）。
// 字段约定：corr_id / comp / stage(start|finish|error) / code / dur_ms / count / file_id / group / kv。
type Logger struct {
	z    *zap.Logger
	sink *RotatingFile
}

// NewLogger 通过配置的 level 初始化，日志写入 logs/ 目录，10MiB 轮转。
func NewLogger(corrID, level string) *Logger {
	sink := NewRotatingFile("logs", 10*1024*1024)
	l := NewLoggerTo(fallbackWriter{primary: sink, fallback: os.Stderr}, corrID, level)
	l.sink = sink
	return l
}

// NewLoggerTo 将日志写到任意 writer（测试或嵌入场景）。
func NewLoggerTo(w io.Writer, corrID, level string) *Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "msg"
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	enc.CallerKey = zapcore.OmitKey
	enc.StacktraceKey = zapcore.OmitKey
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zap.NewAtomicLevelAt(parseLevel(level)))
	z := zap.New(core)
	if corrID != "" {
		z = z.With(zap.String("corr_id", corrID))
	}
	return &Logger{z: z}
}

// Nop 返回丢弃一切输出的日志器。
func Nop() *Logger { return &Logger{z: zap.NewNop()} }

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// fallbackWriter: 主 sink 写失败时改写 stderr。
type fallbackWriter struct {
	primary  io.Writer
	fallback io.Writer
}

func (w fallbackWriter) Write(p []byte) (int, error) {
	n, err := w.primary.Write(p)
	if err == nil {
		return n, nil
	}
	fmt.Fprintf(w.fallback, "logger sink error: %v\n", err)
	return w.fallback.Write(p)
}

// Sync 刷新底层 sink；进程退出前调用。
func (l *Logger) Sync() {
	if l == nil {
		return
	}
	_ = l.z.Sync()
	if l.sink != nil {
		_ = l.sink.Close()
	}
}

func (l *Logger) log(lv zapcore.Level, comp, stage, msg string, fields ...zap.Field) {
	if l == nil || l.z == nil {
		return
	}
	if ce := l.z.Check(lv, msg); ce != nil {
		base := []zap.Field{zap.String("comp", comp), zap.String("stage", stage)}
		ce.Write(append(base, fields...)...)
	}
}

func scope(fileID, group string) []zap.Field {
	var fs []zap.Field
	if fileID != "" {
		fs = append(fs, zap.String("file_id", fileID))
	}
	if group != "" {
		fs = append(fs, zap.String("group", group))
	}
	return fs
}

func kvField(kv map[string]string) []zap.Field {
	if len(kv) == 0 {
		return nil
	}
	return []zap.Field{zap.Any("kv", kv)}
}

func durField(durSince *time.Time) []zap.Field {
	if durSince == nil {
		return nil
	}
	return []zap.Field{zap.Int64("dur_ms", time.Since(*durSince).Milliseconds())}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(zapcore.InfoLevel, comp, "start", msg)
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带 file_id/group 的 start。
func (l *Logger) StartWith(comp, msg, fileID, group string) *Timer {
	l.log(zapcore.InfoLevel, comp, "start", msg, scope(fileID, group)...)
	return &Timer{l: l, comp: comp, fileID: fileID, group: group, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", "", nil)
}

// ErrorWith 支持 file_id/group。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID, group string) {
	l.ErrorWithKV(comp, code, msg, durSince, fileID, group, nil)
}

// ErrorWithKV 支持附带键值对。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, fileID, group string, kv map[string]string) {
	fs := []zap.Field{zap.String("code", code)}
	fs = append(fs, durField(durSince)...)
	fs = append(fs, scope(fileID, group)...)
	fs = append(fs, kvField(kv)...)
	l.log(zapcore.ErrorLevel, comp, "error", msg, fs...)
}

// Warn 记录可恢复问题（例如单个测试元数据缺失）。
func (l *Logger) Warn(comp, msg, fileID, group string) {
	l.log(zapcore.WarnLevel, comp, "warn", msg, scope(fileID, group)...)
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.log(zapcore.InfoLevel, comp, "finish", msg, zap.Int64("dur_ms", time.Since(start).Milliseconds()), zap.Int64("count", count))
}

// DebugStart 输出调试级别的 start 类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, fileID, group string, kv map[string]string) {
	fs := append(scope(fileID, group), kvField(kv)...)
	l.log(zapcore.DebugLevel, comp, "start", msg, fs...)
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	group  string
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	fs := []zap.Field{zap.Int64("dur_ms", time.Since(t.t0).Milliseconds()), zap.Int64("count", count)}
	fs = append(fs, scope(t.fileID, t.group)...)
	t.l.log(zapcore.InfoLevel, t.comp, "finish", msg, fs...)
}
