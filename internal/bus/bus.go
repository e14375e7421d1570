/*
Package bus carries envelopes between the api and core processes.

Every implementation offers named channels with no ordering guarantee across channels.
A message counts as delivered once its handler returns; what the handler does with it
afterwards is outside the bus. Publishing to a channel nobody listens on is not an error.
*/
package bus

import (
	"context"
	"strings"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"marketdata/pkg/exception"
)

const (
	DriverMemory = "memory"
	DriverKafka  = "kafka"
	DriverRedis  = "redis"
)

// Message is the unit passed through a bus.
type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

// Handler processes one delivered message.
type Handler func(ctx context.Context, m Message)

// Bus is a publish/subscribe transport.
type Bus interface {
	// Publish sends m on m.Topic.
	Publish(ctx context.Context, m Message) error
	// Subscribe delivers messages of topics to h until ctx is done. It blocks.
	Subscribe(ctx context.Context, topics []string, h Handler) error
	Close() error
}

// Config selects and configures a transport.
type Config struct {
	Driver string `json:"driver" yaml:"driver"`

	// memory
	QueueSize int `json:"queueSize" yaml:"queueSize"`

	// kafka
	Brokers    []string `json:"brokers" yaml:"brokers"`
	GroupID    string   `json:"groupId" yaml:"groupId"`
	FromLatest bool     `json:"fromLatest" yaml:"fromLatest"`

	// redis
	RedisAddr     string `json:"redisAddr" yaml:"redisAddr"`
	RedisPassword string `json:"redisPassword" yaml:"redisPassword"`
	RedisDB       int    `json:"redisDb" yaml:"redisDb"`

	// Chaos injects publish faults for resilience testing.
	Chaos ChaosConfig `json:"chaos" yaml:"chaos"`
}

// DefaultConfig returns an in-memory bus configuration.
func DefaultConfig() Config {
	return Config{Driver: DriverMemory, QueueSize: 1024}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = def.Driver
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	return c
}

// Validate checks the driver-specific settings.
func (c Config) Validate() error {
	c = c.withDefaults()
	if err := c.Chaos.Validate(); err != nil {
		return err
	}
	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverKafka:
		if len(c.Brokers) == 0 {
			return errors.Wrap(exception.ErrInvalidArgument, "kafka brokers are empty")
		}
		if c.GroupID == "" {
			return errors.Wrap(exception.ErrInvalidArgument, "kafka group id is empty")
		}
		return nil
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.Wrap(exception.ErrInvalidArgument, "redis address is empty")
		}
		return nil
	default:
		return errors.Wrapf(exception.ErrUnknownDriver, "bus driver: %s", c.Driver)
	}
}

// Open builds the transport described by cfg.
func Open(cfg Config) (Bus, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var b Bus
	switch cfg.Driver {
	case DriverKafka:
		b = NewKafka(cfg)
	case DriverRedis:
		b = NewRedis(cfg)
	default:
		b = NewMemory(cfg.QueueSize)
	}
	if !cfg.Chaos.Enabled() {
		return b, nil
	}
	logs.Infof("bus chaos enabled, drop: %v, duplicate: %v, max delay: %s", cfg.Chaos.DropRate, cfg.Chaos.DuplicateRate, cfg.Chaos.MaxDelay)
	return NewChaos(b, cfg.Chaos)
}
