package primitives

import (
	"io"
	"sync"
)

// Disposable is a resource that can be released. Dispose must be safe to call
// more than once.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a plain function to Disposable.
type DisposableFunc func()

func (f DisposableFunc) Dispose() {
	if f != nil {
		f()
	}
}

// CloserDisposable adapts an io.Closer. A Close error is passed to onErr when
// it is non-nil.
func CloserDisposable(c io.Closer, onErr func(error)) Disposable {
	return DisposableFunc(func() {
		if err := c.Close(); err != nil && onErr != nil {
			onErr(err)
		}
	})
}

// DisposableStore is an ordered collection of resources released together.
// Clear releases everything and keeps the store usable; Dispose releases
// everything and makes later Add calls release their argument immediately.
type DisposableStore struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// NewDisposableStore creates an empty store.
func NewDisposableStore() *DisposableStore {
	return &DisposableStore{}
}

// Add registers d. A nil d is ignored.
func (s *DisposableStore) Add(d Disposable) {
	if d == nil {
		return
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		d.Dispose()
		return
	}
	s.items = append(s.items, d)
	s.mu.Unlock()
}

// Len returns the number of live resources.
func (s *DisposableStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear releases all registered resources in registration order.
func (s *DisposableStore) Clear() {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.mu.Unlock()

	// Released outside the lock: a Dispose may register into this store again.
	for _, d := range items {
		d.Dispose()
	}
}

// Dispose clears the store and marks it terminal.
func (s *DisposableStore) Dispose() {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
	s.Clear()
}
