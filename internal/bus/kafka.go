package bus

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// KafkaWriter abstracts the producing side of kafka-go.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaReader abstracts a consumer group reader of kafka-go.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka is a bus over kafka topics. Offsets are committed after the handler returns,
// so a crash between the two redelivers the message.
type Kafka struct {
	writer    KafkaWriter
	newReader func(topics []string) KafkaReader
}

// NewKafka connects a writer to cfg.Brokers. Readers join the consumer group cfg.GroupID.
func NewKafka(cfg Config) *Kafka {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           5 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	startOffset := kafka.FirstOffset
	if cfg.FromLatest {
		startOffset = kafka.LastOffset
	}

	return NewKafkaWith(writer, func(topics []string) KafkaReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			GroupID:           cfg.GroupID,
			GroupTopics:       topics,
			StartOffset:       startOffset,
			MinBytes:          1,
			MaxBytes:          10e6,
			MaxWait:           100 * time.Millisecond,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    10 * time.Second,
		})
	})
}

// NewKafkaWith builds a Kafka bus on top of the given writer and reader factory.
func NewKafkaWith(writer KafkaWriter, newReader func(topics []string) KafkaReader) *Kafka {
	return &Kafka{writer: writer, newReader: newReader}
}

func (k *Kafka) Publish(ctx context.Context, m Message) error {
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic: m.Topic,
		Key:   m.Key,
		Value: m.Value,
	}); err != nil {
		return errors.Wrapf(err, "kafka write, topic: %s", m.Topic)
	}
	return nil
}

func (k *Kafka) Subscribe(ctx context.Context, topics []string, h Handler) error {
	reader := k.newReader(topics)
	defer func() {
		if err := reader.Close(); err != nil {
			logs.Errorf("close kafka reader, err: %+v", err)
		}
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "kafka fetch")
		}

		h(ctx, Message{Topic: msg.Topic, Key: msg.Key, Value: msg.Value})

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "kafka commit")
		}
	}
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
