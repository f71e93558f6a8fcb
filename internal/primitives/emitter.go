package primitives

import "sync"

// Emitter broadcasts values to subscribers synchronously, in subscription
// order. After Dispose, Fire is a no-op and Subscribe returns an inert handle.
type Emitter[T any] struct {
	mu       sync.Mutex
	subs     []*emitterSub[T]
	disposed bool
}

type emitterSub[T any] struct {
	fn     func(T)
	active bool
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{}
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is idempotent.
func (e *Emitter[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return func() {}
	}
	sub := &emitterSub[T]{fn: fn, active: true}
	e.subs = append(e.subs, sub)
	return func() { e.remove(sub) }
}

// Fire delivers v to every current subscriber. Subscribers added during
// delivery do not see v; subscribers removed during delivery are skipped.
func (e *Emitter[T]) Fire(v T) {
	e.mu.Lock()
	if e.disposed || len(e.subs) == 0 {
		e.mu.Unlock()
		return
	}
	subs := append([]*emitterSub[T](nil), e.subs...)
	e.mu.Unlock()

	for _, sub := range subs {
		e.mu.Lock()
		active := sub.active
		e.mu.Unlock()
		if active {
			sub.fn(v)
		}
	}
}

// Len returns the number of subscribers.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

// Dispose removes every subscriber and disables the emitter.
func (e *Emitter[T]) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sub := range e.subs {
		sub.active = false
	}
	e.subs = nil
	e.disposed = true
}

func (e *Emitter[T]) remove(sub *emitterSub[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub.active = false
	for i, s := range e.subs {
		if s == sub {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}
