package tasks

import (
	"context"
	"sync"
)

// Poster schedules work on the goroutine that owns a [Collection].
type Poster interface {
	Post(fn func())
}

// PostFunc adapts a function to [Poster]. The TUI uses it to route work through the bubbletea
// program's message queue.
type PostFunc func(fn func())

func (f PostFunc) Post(fn func()) { f(fn) }

// Loop runs posted functions one at a time on a single goroutine.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop creates a loop with the given queue capacity.
func NewLoop(capacity int) *Loop {
	if capacity <= 0 {
		capacity = 256
	}
	return &Loop{queue: make(chan func(), capacity), done: make(chan struct{})}
}

// Post enqueues fn. After [Loop.Close] posted functions are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}

	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Run executes posted functions until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.queue:
			fn()
		}
	}
}

// Close stops the loop. It is safe to call more than once.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Do posts fn and waits for it to run. It must not be called from the loop goroutine.
func (l *Loop) Do(fn func()) {
	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		fn()
	})

	select {
	case <-ran:
	case <-l.done:
	}
}
