// Package logger is the process-wide slog text logger with a runtime level.
// A leading "[tag]" in a message becomes the component attribute, so
// Infof("[calc] size=%s", s) is logged as component=calc msg="size=...".
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	levelVar slog.LevelVar
	current  atomic.Pointer[slog.Logger]
)

func init() {
	levelVar.Set(slog.LevelInfo)
	SetOutput(nil)
}

// SetOutput redirects every later record to w; nil means stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	current.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})))
}

// SetLevel accepts debug, info, warn(ing) and error; anything else means info.
func SetLevel(level string) {
	levelVar.Set(ParseLevel(level))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v...) }

func Infof(format string, v ...any) { logf(slog.LevelInfo, format, v...) }

func Warnf(format string, v ...any) { logf(slog.LevelWarn, format, v...) }

func Errorf(format string, v ...any) { logf(slog.LevelError, format, v...) }

// InfoBlock logs every non-blank line of block as its own record.
func InfoBlock(block string) {
	for _, line := range strings.Split(block, "\n") {
		if line = strings.TrimRight(line, " \t\r"); strings.TrimSpace(line) != "" {
			logf(slog.LevelInfo, "%s", line)
		}
	}
}

func logf(level slog.Level, format string, v ...any) {
	l := current.Load()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if tag, rest, ok := splitTag(msg); ok {
		l.Log(ctx, level, rest, slog.String("component", tag))
		return
	}
	l.Log(ctx, level, msg)
}

// splitTag separates a leading "[tag]" from msg. Tags are single words.
func splitTag(msg string) (tag, rest string, ok bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", msg, false
	}
	end := strings.IndexByte(msg, ']')
	if end <= 1 || strings.ContainsAny(msg[1:end], " \t") {
		return "", msg, false
	}
	return msg[1:end], strings.TrimSpace(msg[end+1:]), true
}
