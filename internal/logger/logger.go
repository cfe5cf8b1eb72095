package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	zteLogger atomic.Pointer[ZTELogger]
	level     = new(slog.LevelVar)
)

func init() {
	zteLogger.Store(NewZTELogger(os.Stderr))
}

// ZTELogger wraps slog and also satisfies the logger interfaces of badger
// and nxadm/tail, so both libraries log through the same handler.
type ZTELogger struct {
	slogger *slog.Logger
}

func NewZTELogger(w io.Writer) *ZTELogger {
	return &ZTELogger{
		slogger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

func Default() *ZTELogger {
	return zteLogger.Load()
}

// SetDefault replaces the package logger. Used by tests and the CLI.
func SetDefault(l *ZTELogger) {
	zteLogger.Store(l)
}

func SetLogLevel(l slog.Level) {
	level.Set(l)
}

// With returns a logger that adds args to every record.
func (l *ZTELogger) With(args ...any) *ZTELogger {
	return &ZTELogger{slogger: l.slogger.With(args...)}
}

// slog wrapper

func Debug(msg string, args ...any) {
	zteLogger.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	zteLogger.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	zteLogger.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	zteLogger.Load().Error(msg, args...)
}

func (l *ZTELogger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *ZTELogger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *ZTELogger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *ZTELogger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// badger.Logger

func (l *ZTELogger) Errorf(format string, args ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *ZTELogger) Warningf(format string, args ...interface{}) {
	l.slogger.Warn(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *ZTELogger) Infof(format string, args ...interface{}) {
	l.slogger.Info(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *ZTELogger) Debugf(format string, args ...interface{}) {
	l.slogger.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

// tail.Logger. Fatal and Panic are logged as errors, tailing must not stop the daemon.

func (l *ZTELogger) Fatal(v ...interface{}) {
	l.slogger.Error("tail failure", genericPairs(v...)...)
}

func (l *ZTELogger) Fatalf(format string, v ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, v...))
}

func (l *ZTELogger) Fatalln(v ...interface{}) {
	l.slogger.Error(fmt.Sprint(v...))
}

func (l *ZTELogger) Panic(v ...interface{}) {
	l.slogger.Error("tail failure", genericPairs(v...)...)
}

func (l *ZTELogger) Panicf(format string, v ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, v...))
}

func (l *ZTELogger) Panicln(v ...interface{}) {
	l.slogger.Error(fmt.Sprint(v...))
}

func (l *ZTELogger) Print(v ...interface{}) {
	l.slogger.Info("tail", genericPairs(v...)...)
}

func (l *ZTELogger) Printf(format string, v ...interface{}) {
	l.slogger.Info(fmt.Sprintf(format, v...))
}

func (l *ZTELogger) Println(v ...interface{}) {
	l.slogger.Info(fmt.Sprint(v...))
}

// genericPairs turns alternating key/value arguments into slog attributes.
// A trailing odd argument is kept under the "extra" key.
func genericPairs(v ...interface{}) []any {
	pairs := make([]any, 0, len(v)/2+1)
	for i := 0; i < len(v)-1; i += 2 {
		key, ok := v[i].(string)
		if !ok {
			key = fmt.Sprintf("non_string_key_%d", i)
		}
		pairs = append(pairs, slog.Any(key, v[i+1]))
	}
	if len(v)%2 == 1 {
		pairs = append(pairs, slog.Any("extra", v[len(v)-1]))
	}
	return pairs
}
