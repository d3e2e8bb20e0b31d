// Package eventloop runs posted tasks one at a time on a single goroutine.
//
// A schedule session keeps all of its calendar state on one loop, so store
// callbacks, clicks and toggles never interleave mid-handler.
package eventloop

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Executor schedules fn to run on some goroutine. Loop.Post is an Executor; tests
// use Inline.
type Executor func(fn func())

// Inline runs fn immediately on the calling goroutine.
func Inline(fn func()) { fn() }

// Serialized returns an Executor that runs tasks on the calling goroutine while
// holding a lock, so tasks from different goroutines never overlap. Tasks must not
// schedule onto the same executor.
func Serialized() Executor {
	var mu sync.Mutex
	return func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}
}

type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	done    chan struct{}
}

func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. It never blocks, so it is safe to call from within a task.
// Tasks posted after the loop stopped are dropped and Post returns false.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Executor returns Post as an Executor.
func (l *Loop) Executor() Executor {
	return func(fn func()) { l.Post(fn) }
}

// Run processes tasks until ctx is done or Stop is called. Pending tasks are
// discarded on exit.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	defer l.Stop()

	for {
		task, ok := l.next()
		if ok {
			l.run(task)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
			if l.isStopped() {
				return
			}
		}
	}
}

// Stop prevents further tasks from being posted and makes Run return after the
// current task.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.stopped {
		l.stopped = true
		l.queue = nil
	}
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped || len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

func (l *Loop) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("event loop task panicked: %v", r)
		}
	}()
	task()
}
