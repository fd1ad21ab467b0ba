package notifier

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"positionsizer/internal/logger"
)

// Level separates success notices from error notices.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is what the UI would show as a toast after a calculation.
type Notice struct {
	Level     Level
	Title     string
	Lines     []string
	SessionID string
	At        time.Time
}

func (n Notice) IsError() bool { return n.Level == LevelError }

// Multi fans a notice out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, target := range m {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notices to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notice) error {
	body := strings.Join(n.Lines, "; ")
	if n.IsError() {
		logger.Warnf("[notice] %s session=%s %s", n.Title, n.SessionID, body)
		return nil
	}
	logger.Infof("[notice] %s session=%s %s", n.Title, n.SessionID, body)
	return nil
}

// Close closes every member that owns background work.
func (m Multi) Close() error {
	var errs []error
	for _, target := range m {
		if c, ok := target.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// TelegramNotifier renders notices as Markdown and sends them.
type TelegramNotifier struct {
	Sender     TextSender
	ErrorsOnly bool
}

func (t TelegramNotifier) Notify(ctx context.Context, n Notice) error {
	if t.Sender == nil {
		return nil
	}
	if t.ErrorsOnly && !n.IsError() {
		return nil
	}
	return t.Sender.SendText(ctx, RenderNotice(n))
}
