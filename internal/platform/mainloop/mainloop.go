// Package mainloop provides the single goroutine that owns view state.
// Background work hands results back through Dispatcher.Post.
package mainloop

import (
	"context"
	"sync"
)

// Dispatcher runs fn on the state-owning goroutine. Post never blocks.
type Dispatcher interface {
	Post(fn func())
}

// Immediate runs posted funcs inline on the caller's goroutine.
type Immediate struct{}

func (Immediate) Post(fn func()) { fn() }

// Loop is a FIFO dispatcher backed by one goroutine and an unbounded queue.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	exited  chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// Start launches the loop goroutine. Stop (or ctx) ends it.
func Start(ctx context.Context) *Loop {
	l := &Loop{wake: make(chan struct{}, 1), done: make(chan struct{}), exited: make(chan struct{})}
	l.wg.Add(1)
	go l.run(ctx)
	return l
}

func (l *Loop) Post(fn func()) { l.post(fn) }

func (l *Loop) post(fn func()) bool {
	if fn == nil {
		return false
	}
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

// Stop drains what was already posted, then ends the loop and waits for it.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.wg.Wait()
		return
	}
	l.stopped = true
	l.mu.Unlock()
	close(l.done)
	l.wg.Wait()
}

// Sync blocks until everything posted before it has run.
func (l *Loop) Sync() {
	ch := make(chan struct{})
	if !l.post(func() { close(ch) }) {
		return
	}
	select {
	case <-ch:
	case <-l.exited:
	}
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()
	defer close(l.exited)
	for {
		l.drain()
		select {
		case <-l.wake:
		case <-l.done:
			l.drain()
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()
		fn()
	}
}
