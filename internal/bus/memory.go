package bus

import (
	"context"
	"sync"
)

// Memory is an in-process bus. Every subscription owns one Queue; a publish fans out to
// every subscription of the topic.
type Memory struct {
	capacity int

	mu     sync.RWMutex
	subs   map[string]map[*Queue]struct{}
	closed bool
}

// NewMemory creates an in-process bus whose subscription queues hold capacity messages.
func NewMemory(capacity int) *Memory {
	return &Memory{
		capacity: capacity,
		subs:     make(map[string]map[*Queue]struct{}),
	}
}

func (b *Memory) Publish(ctx context.Context, m Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrQueueClosed
	}
	queues := make([]*Queue, 0, len(b.subs[m.Topic]))
	for q := range b.subs[m.Topic] {
		queues = append(queues, q)
	}
	b.mu.RUnlock()

	for _, q := range queues {
		if err := q.Publish(ctx, m); err != nil && err != ErrQueueClosed {
			return err
		}
	}
	return nil
}

func (b *Memory) Subscribe(ctx context.Context, topics []string, h Handler) error {
	q := NewQueue(b.capacity)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrQueueClosed
	}
	for _, topic := range topics {
		set, ok := b.subs[topic]
		if !ok {
			set = make(map[*Queue]struct{})
			b.subs[topic] = set
		}
		set[q] = struct{}{}
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		for _, topic := range topics {
			delete(b.subs[topic], q)
		}
		b.mu.Unlock()
		q.Close()
	}()

	q.Run(ctx, func(m Message) {
		h(ctx, m)
	})
	return nil
}

// Close detaches every subscription. Blocked Subscribe calls return.
func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, set := range b.subs {
		for q := range set {
			q.Close()
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions on topic.
func (b *Memory) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
