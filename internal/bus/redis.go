package bus

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"
)

// RedisClient abstracts the pub/sub part of a go-redis client.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
	Close() error
}

// Redis is a bus over redis pub/sub channels. Redis pub/sub has no replay: messages
// published while nobody is subscribed are lost, and message keys are not carried.
type Redis struct {
	client RedisClient
}

// NewRedis connects a client to cfg.RedisAddr.
func NewRedis(cfg Config) *Redis {
	return NewRedisWith(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}))
}

// NewRedisWith builds a Redis bus on top of client.
func NewRedisWith(client RedisClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Publish(ctx context.Context, m Message) error {
	if err := r.client.Publish(ctx, m.Topic, m.Value).Err(); err != nil {
		return errors.Wrapf(err, "redis publish, channel: %s", m.Topic)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, topics []string, h Handler) error {
	pubsub := r.client.Subscribe(ctx, topics...)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, "redis subscribe")
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			h(ctx, Message{Topic: msg.Channel, Value: []byte(msg.Payload)})
		}
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
