package primitives

// EventQueues holds the internal and external FIFO queues of one service.
// Internal events are those sent by handlers; external ones come from outside
// callers. Ordering between the two is decided by whoever pops.
type EventQueues struct {
	internal []Event
	external []Event
}

// PushInternal appends e to the internal queue.
func (q *EventQueues) PushInternal(e Event) {
	q.internal = append(q.internal, e)
}

// PushExternal appends e to the external queue.
func (q *EventQueues) PushExternal(e Event) {
	q.external = append(q.external, e)
}

// PopInternal removes the oldest internal event.
func (q *EventQueues) PopInternal() (Event, bool) {
	return pop(&q.internal)
}

// PopExternal removes the oldest external event.
func (q *EventQueues) PopExternal() (Event, bool) {
	return pop(&q.external)
}

// Len returns the queue lengths.
func (q *EventQueues) Len() (internal, external int) {
	return len(q.internal), len(q.external)
}

// Clear drops every queued event without dispatching it.
func (q *EventQueues) Clear() {
	clear(q.internal)
	clear(q.external)
	q.internal = q.internal[:0]
	q.external = q.external[:0]
}

func pop(s *[]Event) (Event, bool) {
	if len(*s) == 0 {
		return Event{}, false
	}
	e := (*s)[0]
	(*s)[0] = Event{}
	*s = (*s)[1:]
	return e, true
}
