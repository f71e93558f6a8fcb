package primitives

import "testing"

func TestEventQueuesFIFO(t *testing.T) {
	var q EventQueues
	q.PushExternal(NewEvent("x1", nil))
	q.PushInternal(NewEvent("i1", nil))
	q.PushExternal(NewEvent("x2", nil))
	q.PushInternal(NewEvent("i2", nil))
	if in, ex := q.Len(); in != 2 || ex != 2 {
		t.Fatalf("Len=(%d,%d) want (2,2)", in, ex)
	}

	var got []string
	for {
		e, ok := q.PopInternal()
		if !ok {
			break
		}
		got = append(got, e.ID)
	}
	for {
		e, ok := q.PopExternal()
		if !ok {
			break
		}
		got = append(got, e.ID)
	}
	want := []string{"i1", "i2", "x1", "x2"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestEventQueuesClear(t *testing.T) {
	var q EventQueues
	q.PushExternal(NewEvent("x", nil))
	q.PushInternal(NewEvent("i", nil))
	q.Clear()
	if in, ex := q.Len(); in != 0 || ex != 0 {
		t.Errorf("Len=(%d,%d) after Clear want (0,0)", in, ex)
	}
	if _, ok := q.PopExternal(); ok {
		t.Error("PopExternal after Clear should be empty")
	}
}
