package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscribe(t *testing.T, b *Memory, ctx context.Context, topics []string) <-chan Message {
	t.Helper()
	out := make(chan Message, 16)
	go func() {
		_ = b.Subscribe(ctx, topics, func(_ context.Context, m Message) { out <- m })
	}()
	for _, topic := range topics {
		require.Eventually(t, func() bool { return b.Subscribers(topic) > 0 }, time.Second, time.Millisecond)
	}
	return out
}

func TestMemoryFanOutByTopic(t *testing.T) {
	b := NewMemory(8)
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := subscribe(t, b, ctx, []string{"a", "b"})
	second := subscribe(t, b, ctx, []string{"a"})

	require.NoError(t, b.Publish(ctx, Message{Topic: "a", Value: []byte("1")}))
	require.NoError(t, b.Publish(ctx, Message{Topic: "b", Value: []byte("2")}))

	assert.Equal(t, "1", string((<-first).Value))
	assert.Equal(t, "2", string((<-first).Value))
	assert.Equal(t, "1", string((<-second).Value))

	select {
	case m := <-second:
		t.Fatalf("unexpected message on second subscriber: %+v", m)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMemoryPublishWithoutSubscriber(t *testing.T) {
	b := NewMemory(1)
	assert.NoError(t, b.Publish(context.Background(), Message{Topic: "nobody"}))
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish(context.Background(), Message{Topic: "nobody"}), ErrQueueClosed)
}

func TestMemorySubscribeEndsOnCancelAndClose(t *testing.T) {
	b := NewMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = b.Subscribe(ctx, []string{"x"}, func(context.Context, Message) {})
	}()
	go func() {
		defer wg.Done()
		_ = b.Subscribe(context.Background(), []string{"y"}, func(context.Context, Message) {})
	}()
	require.Eventually(t, func() bool { return b.Subscribers("x") == 1 && b.Subscribers("y") == 1 }, time.Second, time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return b.Subscribers("x") == 0 }, time.Second, time.Millisecond)

	require.NoError(t, b.Close())
	wg.Wait()
}

func TestOpenValidatesDriver(t *testing.T) {
	b, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	_, err = Open(Config{Driver: "kafka"})
	assert.Error(t, err)

	_, err = Open(Config{Driver: "redis"})
	assert.Error(t, err)

	_, err = Open(Config{Driver: "nats"})
	assert.Error(t, err)
}
