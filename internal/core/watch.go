package core

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/comalice/statesvc/internal/primitives"
)

type watcher struct {
	mu     sync.Mutex
	ch     chan primitives.State
	closed bool
	done   chan struct{}
	unsub  func()
}

// offer delivers st unless the channel is full or closed.
func (w *watcher) offer(st primitives.State) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return true
	}
	select {
	case w.ch <- st:
		return true
	default:
		return false
	}
}

func (w *watcher) close() {
	w.unsub()
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
		close(w.done)
	}
}

// Watch returns a channel receiving the new state after every committed
// transition. A watcher that falls more than buffer states behind misses the
// newer ones. The channel is closed when ctx is done or the service is
// disposed.
func (s *Service) Watch(ctx context.Context, buffer int) <-chan primitives.State {
	w := &watcher{
		ch:   make(chan primitives.State, max(buffer, 1)),
		done: make(chan struct{}),
	}
	w.unsub = s.changes.Subscribe(func(st primitives.State) {
		if !w.offer(st) {
			s.logger.Debug("dropping state for slow watcher", zap.String("state", st.ID))
		}
	})

	s.watchMu.Lock()
	if s.RunState() == primitives.Disposed {
		s.watchMu.Unlock()
		w.close()
		return w.ch
	}
	s.watchers[w] = struct{}{}
	s.watchMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.removeWatcher(w)
		case <-w.done:
		}
	}()
	return w.ch
}

func (s *Service) removeWatcher(w *watcher) {
	s.watchMu.Lock()
	_, ok := s.watchers[w]
	delete(s.watchers, w)
	s.watchMu.Unlock()

	if ok {
		w.close()
	}
}

// closeWatchers closes every watcher channel. Callers drive the service and
// have already moved it to Disposed.
func (s *Service) closeWatchers() {
	s.watchMu.Lock()
	watchers := s.watchers
	s.watchers = make(map[*watcher]struct{})
	s.watchMu.Unlock()

	for w := range watchers {
		w.close()
	}
}
