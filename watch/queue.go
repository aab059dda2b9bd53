package watch

import (
	"errors"
	"sync"
)

var (
	ErrEmpty  = errors.New("watch: queue empty")
	ErrClosed = errors.New("watch: queue closed")
)

// Queue is an unbounded FIFO with any number of producers and one consumer.
// Publish never blocks, which matters because producers run on threads owned
// by the audio subsystem.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	ready  chan struct{} // holds one token while items is non-empty or closed
}

func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Publish appends ev. It reports false once the queue is closed.
func (q *Queue) Publish(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, ev)
	q.signal()
	return true
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Recv blocks until an event is available. It returns false after Close once
// every queued event has been drained.
func (q *Queue) Recv() (Event, bool) {
	for {
		ev, err := q.TryRecv()
		switch err {
		case nil:
			return ev, true
		case ErrClosed:
			return 0, false
		}
		<-q.ready
	}
}

// TryRecv takes the next event without blocking.
func (q *Queue) TryRecv() (Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		if q.closed {
			q.signal()
			return 0, ErrClosed
		}
		return 0, ErrEmpty
	}
	ev := q.items[0]
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signal()
	}
	return ev, nil
}

// Close is the producer side going away. The consumer drains what is left
// and then sees ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.signal()
}
