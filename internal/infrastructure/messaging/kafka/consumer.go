package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/pkg/errors"
)

// ConsumerConfig holds reader parameters for tailing notification topics.
type ConsumerConfig struct {
	Brokers     []string
	TopicPrefix string
	GroupID     string
}

// messageReader abstracts kafka.Reader for testing.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer tails a notification topic.  It exists for operational tooling;
// the engine itself never consumes its own events.
type Consumer struct {
	r   messageReader
	log logging.Logger
}

// NewConsumer builds a Consumer over a real kafka.Reader for the topic that
// carries the given suffix (see TopicSuffix* constants).
func NewConsumer(cfg ConsumerConfig, suffix string, log logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	topic := cfg.TopicPrefix
	if topic != "" {
		topic += "."
	}
	topic += suffix

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{r: r, log: log.Named("kafka.consumer")}, nil
}

// Next blocks until one notification event arrives or the context ends.
func (c *Consumer) Next(ctx context.Context) (*NotificationEvent, error) {
	msg, err := c.r.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "reading notification")
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "reading notification")
	}

	var event NotificationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decoding notification event")
	}
	return &event, nil
}

// Close shuts the underlying reader.
func (c *Consumer) Close() error { return c.r.Close() }
