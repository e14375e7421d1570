package bus

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"marketdata/pkg/exception"
)

// ChaosConfig controls fault injection on publish. The zero value disables it.
type ChaosConfig struct {
	Seed          int64         `json:"seed" yaml:"seed"`
	DropRate      float64       `json:"dropRate" yaml:"dropRate"`
	DuplicateRate float64       `json:"duplicateRate" yaml:"duplicateRate"`
	MaxDelay      time.Duration `json:"maxDelay" yaml:"maxDelay"`

	// Topics limits injection to the listed topics. Empty means every topic.
	Topics []string `json:"topics" yaml:"topics"`
}

// Enabled reports whether any fault is configured.
func (c ChaosConfig) Enabled() bool {
	return c.DropRate > 0 || c.DuplicateRate > 0 || c.MaxDelay > 0
}

// Validate ensures the config is within supported ranges.
func (c ChaosConfig) Validate() error {
	if c.DropRate < 0 || c.DropRate > 1 {
		return errors.Wrapf(exception.ErrInvalidArgument, "chaos drop rate must be between 0 and 1, got %v", c.DropRate)
	}
	if c.DuplicateRate < 0 || c.DuplicateRate > 1 {
		return errors.Wrapf(exception.ErrInvalidArgument, "chaos duplicate rate must be between 0 and 1, got %v", c.DuplicateRate)
	}
	if c.MaxDelay < 0 {
		return errors.Wrapf(exception.ErrInvalidArgument, "chaos max delay must be >= 0, got %s", c.MaxDelay)
	}
	return nil
}

// Chaos wraps a Bus and drops, duplicates or delays published messages.
// Delayed messages are published from their own goroutine, so they may overtake each other.
type Chaos struct {
	Bus

	cfg    ChaosConfig
	topics map[string]struct{}

	mu  sync.Mutex
	rng *rand.Rand
	wg  sync.WaitGroup
}

// NewChaos wraps inner with the faults described by cfg.
func NewChaos(inner Bus, cfg ChaosConfig) (*Chaos, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}

	var topics map[string]struct{}
	if len(cfg.Topics) > 0 {
		topics = make(map[string]struct{}, len(cfg.Topics))
		for _, t := range cfg.Topics {
			topics[t] = struct{}{}
		}
	}

	return &Chaos{
		Bus:    inner,
		cfg:    cfg,
		topics: topics,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Publish applies the configured faults to m. A dropped message reports success.
func (c *Chaos) Publish(ctx context.Context, m Message) error {
	if !c.affects(m.Topic) {
		return c.Bus.Publish(ctx, m)
	}

	drop, dup, delay := c.roll()
	if drop {
		return nil
	}

	copies := 1
	if dup {
		copies = 2
	}

	if delay == 0 {
		for range copies {
			if err := c.Bus.Publish(ctx, m); err != nil {
				return err
			}
		}
		return nil
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
		for range copies {
			_ = c.Bus.Publish(context.WithoutCancel(ctx), m)
		}
	}()
	return nil
}

// Close waits for delayed messages before closing the wrapped bus.
func (c *Chaos) Close() error {
	c.wg.Wait()
	return c.Bus.Close()
}

func (c *Chaos) affects(topic string) bool {
	if c.topics == nil {
		return true
	}
	_, ok := c.topics[topic]
	return ok
}

func (c *Chaos) roll() (drop, dup bool, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.DropRate > 0 && c.rng.Float64() < c.cfg.DropRate {
		return true, false, 0
	}
	dup = c.cfg.DuplicateRate > 0 && c.rng.Float64() < c.cfg.DuplicateRate
	if c.cfg.MaxDelay > 0 {
		delay = time.Duration(c.rng.Int63n(c.cfg.MaxDelay.Nanoseconds() + 1))
	}
	return false, dup, delay
}
