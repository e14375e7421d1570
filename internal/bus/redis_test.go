package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	channel string
	payload interface{}
	err     error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload = message
	return redis.NewIntResult(1, f.err)
}

func (f *fakeRedis) Subscribe(context.Context, ...string) *redis.PubSub { return nil }

func (f *fakeRedis) Close() error { return nil }

func TestRedisPublish(t *testing.T) {
	f := &fakeRedis{}
	r := NewRedisWith(f)

	require.NoError(t, r.Publish(context.Background(), Message{Topic: "market-data-response", Value: []byte("v")}))
	assert.Equal(t, "market-data-response", f.channel)
	assert.Equal(t, []byte("v"), f.payload)

	f.err = errors.New("connection refused")
	assert.Error(t, r.Publish(context.Background(), Message{Topic: "x"}))
}
