package primitives

import (
	"errors"
	"reflect"
	"testing"
)

func TestDisposableStoreClearOrder(t *testing.T) {
	s := NewDisposableStore()
	var order []int
	for i := 1; i <= 3; i++ {
		s.Add(DisposableFunc(func() { order = append(order, i) }))
	}
	if s.Len() != 3 {
		t.Fatalf("Len=%d want 3", s.Len())
	}

	s.Clear()

	if !reflect.DeepEqual(order, []int{1, 2, 3}) {
		t.Errorf("release order %v want [1 2 3]", order)
	}
	if s.Len() != 0 {
		t.Errorf("Len after Clear=%d want 0", s.Len())
	}

	// Still usable after Clear.
	released := false
	s.Add(DisposableFunc(func() { released = true }))
	if released {
		t.Error("Add after Clear should not release immediately")
	}
}

func TestDisposableStoreAddAfterDispose(t *testing.T) {
	s := NewDisposableStore()
	s.Dispose()

	released := false
	s.Add(DisposableFunc(func() { released = true }))
	if !released {
		t.Error("Add after Dispose should release immediately")
	}
	if s.Len() != 0 {
		t.Errorf("Len=%d want 0", s.Len())
	}
}

func TestDisposableStoreIgnoresNil(t *testing.T) {
	s := NewDisposableStore()
	s.Add(nil)
	if s.Len() != 0 {
		t.Errorf("nil disposable was stored")
	}
}

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return errors.New("ignored")
}

func TestCloserDisposable(t *testing.T) {
	c := &closer{}
	var got error
	CloserDisposable(c, func(err error) { got = err }).Dispose()
	if !c.closed {
		t.Error("Close was not called")
	}
	if got == nil || got.Error() != "ignored" {
		t.Errorf("onErr got %v", got)
	}

	c = &closer{}
	CloserDisposable(c, nil).Dispose()
	if !c.closed {
		t.Error("Close was not called without onErr")
	}
}
