package notifier

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"positionsizer/internal/logger"
)

var (
	ErrQueueFull   = errors.New("notice queue full")
	ErrQueueClosed = errors.New("notice queue closed")
)

const (
	DefaultQueueSize    = 64
	DefaultQueueTimeout = 30 * time.Second
)

// Queue hands notices to one background worker so a slow transport never
// holds up a calculation. Notify never blocks; a full queue drops the notice.
type Queue struct {
	next    Notifier
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	ch      chan Notice
	done    chan struct{}
	dropped atomic.Int64
}

// NewQueue starts the worker. Each delivery gets its own timeout, detached
// from the request that produced the notice.
func NewQueue(next Notifier, size int, timeout time.Duration) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultQueueTimeout
	}
	q := &Queue{
		next:    next,
		timeout: timeout,
		ch:      make(chan Notice, size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) Notify(_ context.Context, n Notice) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- n:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped counts notices rejected because the queue was full.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops intake and waits for queued notices to be delivered.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()
	<-q.done
	return nil
}

func (q *Queue) run() {
	defer close(q.done)
	for n := range q.ch {
		q.deliver(n)
	}
}

func (q *Queue) deliver(n Notice) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[notice] delivery panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.next.Notify(ctx, n); err != nil {
		logger.Warnf("[notice] delivery failed session=%s: %v", n.SessionID, err)
	}
}
