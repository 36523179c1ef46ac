package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	level string
	base  *slog.Logger
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

func NewWithWriter(level string, w io.Writer) *Logger {
	lv := strings.ToLower(strings.TrimSpace(level))
	if _, ok := levels[lv]; !ok {
		lv = "info"
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: levels[lv]})
	return &Logger{level: lv, base: slog.New(h)}
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func (l *Logger) logf(level slog.Level, format string, args ...any) {
	if l == nil || !l.base.Enabled(context.Background(), level) {
		return
	}
	l.base.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(slog.LevelDebug, format, args...) }

func (l *Logger) Infof(format string, args ...any) { l.logf(slog.LevelInfo, format, args...) }

func (l *Logger) Warnf(format string, args ...any) { l.logf(slog.LevelWarn, format, args...) }

func (l *Logger) Errorf(format string, args ...any) { l.logf(slog.LevelError, format, args...) }
