package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrQueueClosed = errors.New("message queue closed")

// Queue is a bounded in-memory message queue.
type Queue struct {
	ch     chan Message
	done   chan struct{}
	once   sync.Once
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		ch:   make(chan Message, capacity),
		done: make(chan struct{}),
	}
}

// Publish enqueues a message, waiting for room until ctx is done or the queue is closed.
func (q *Queue) Publish(ctx context.Context, m Message) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- m:
		return nil
	}
}

// Close stops the queue from accepting new messages. Run returns once it observes the close.
func (q *Queue) Close() {
	q.once.Do(func() {
		atomic.StoreUint32(&q.closed, 1)
		close(q.done)
	})
}

// Run consumes messages until the context is done or the queue is closed.
func (q *Queue) Run(ctx context.Context, handler func(Message)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case m := <-q.ch:
			handler(m)
		}
	}
}
