// Package viewmodel holds the observable state screens bind to.
//
// Every state change happens on the dispatcher goroutine; adapters run their
// work elsewhere and post results back.
package viewmodel

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"sneakhead/internal/domain/common"
	userdom "sneakhead/internal/domain/user"
	"sneakhead/internal/platform/mainloop"
)

// Observable is a value with change observers. Observers are called with the
// current value on Observe and after every set.
type Observable[T any] struct {
	mu        sync.Mutex
	value     T
	observers map[uint64]func(T)
	next      uint64
}

func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial, observers: map[uint64]func(T){}}
}

func (o *Observable[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

func (o *Observable[T]) Observe(fn func(T)) common.Subscription {
	o.mu.Lock()
	o.next++
	id := o.next
	o.observers[id] = fn
	v := o.value
	o.mu.Unlock()

	fn(v)
	return common.SubscriptionFunc(func() error {
		o.mu.Lock()
		delete(o.observers, id)
		o.mu.Unlock()
		return nil
	})
}

func (o *Observable[T]) set(v T) {
	o.mu.Lock()
	o.value = v
	fns := make([]func(T), 0, len(o.observers))
	for _, fn := range o.observers {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Sessions is the part of the session manager view-models rely on.
type Sessions interface {
	Current() (userdom.Session, bool)
	Track(c io.Closer) error
}

// base carries the lifecycle shared by every view-model.
type base struct {
	dispatch mainloop.Dispatcher
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	subs map[string]common.Subscription
}

func newBase(dispatch mainloop.Dispatcher, log *zap.Logger) *base {
	if dispatch == nil {
		dispatch = mainloop.Immediate{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &base{dispatch: dispatch, log: log, ctx: ctx, cancel: cancel, subs: map[string]common.Subscription{}}
}

func (b *base) closed() bool { return b.ctx.Err() != nil }

// post applies fn on the dispatcher unless the view-model was closed.
func (b *base) post(fn func()) {
	b.dispatch.Post(func() {
		if b.closed() {
			return
		}
		fn()
	})
}

// async runs fn off the caller goroutine; Close waits for it.
func (b *base) async(fn func(ctx context.Context)) {
	b.mu.Lock()
	if b.closed() {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()
	go func() {
		defer b.wg.Done()
		fn(b.ctx)
	}()
}

// replace swaps the live subscription stored under key, closing the old one.
func (b *base) replace(key string, sub common.Subscription) {
	b.mu.Lock()
	old := b.subs[key]
	if b.closed() {
		b.mu.Unlock()
		if sub != nil {
			_ = sub.Close()
		}
		return
	}
	b.subs[key] = sub
	b.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
}

// Close releases every live subscription and waits for in-flight work.
func (b *base) Close() error {
	b.mu.Lock()
	b.cancel()
	subs := b.subs
	b.subs = map[string]common.Subscription{}
	b.mu.Unlock()
	for _, s := range subs {
		if s != nil {
			_ = s.Close()
		}
	}
	b.wg.Wait()
	return nil
}

func call[T any](fn func(T), v T) {
	if fn != nil {
		fn(v)
	}
}
