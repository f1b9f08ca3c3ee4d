package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/folira/folira/internal/domain/portfolio"
	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/pkg/errors"
	"github.com/folira/folira/pkg/types/common"
)

// ErrNotifierClosed is returned by Notify after Close.
var ErrNotifierClosed = errors.New(errors.ErrCodeInternal, "kafka notifier closed")

// ─────────────────────────────────────────────────────────────────────────────
// NotifierConfig — producer tuning knobs
// ─────────────────────────────────────────────────────────────────────────────

// NotifierConfig holds producer parameters.
type NotifierConfig struct {
	Brokers      []string
	TopicPrefix  string
	MaxRetries   int
	RetryBackoff time.Duration
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

func (c *NotifierConfig) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 100 * time.Millisecond
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
}

// writer abstracts kafka.Writer for testing.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ─────────────────────────────────────────────────────────────────────────────
// Notifier — the portfolio.Notifier implementation
// ─────────────────────────────────────────────────────────────────────────────

// Notifier publishes owner notifications to Kafka.  It implements
// portfolio.Notifier; messages are keyed by owner so one owner's events land
// on one partition in order.
type Notifier struct {
	w      writer
	cfg    NotifierConfig
	log    logging.Logger
	closed atomic.Bool
	sent   atomic.Int64
	failed atomic.Int64
	newID  func() string
	now    func() time.Time
}

// NewNotifier builds a Notifier over a real kafka.Writer.
func NewNotifier(cfg NotifierConfig, log logging.Logger) (*Notifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	cfg.applyDefaults()
	if log == nil {
		log = logging.NewNopLogger()
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxRetries + 1,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return newNotifier(w, cfg, log), nil
}

func newNotifier(w writer, cfg NotifierConfig, log logging.Logger) *Notifier {
	return &Notifier{
		w:     w,
		cfg:   cfg,
		log:   log.Named("kafka.notifier"),
		newID: func() string { return uuid.NewString() },
		now:   time.Now,
	}
}

// Notify publishes one notification event.
func (n *Notifier) Notify(ctx context.Context, owner common.OwnerID, kind portfolio.NotificationKind, portfolioID common.ID) error {
	if n.closed.Load() {
		return ErrNotifierClosed
	}

	event := NotificationEvent{
		EventID:     n.newID(),
		OwnerID:     owner.String(),
		Kind:        string(kind),
		PortfolioID: portfolioID.String(),
		Timestamp:   n.now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshaling notification event")
	}

	topic := TopicFor(n.cfg.TopicPrefix, kind)
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(owner.String()),
		Value: value,
		Time:  event.Timestamp,
	}

	if err := n.w.WriteMessages(ctx, msg); err != nil {
		n.failed.Add(1)
		return errors.Wrap(err, errors.ErrCodeNotificationPublishFailed, "publishing notification")
	}
	n.sent.Add(1)

	n.log.Debug("notification published",
		logging.String("topic", topic),
		logging.String("owner", owner.String()),
		logging.String("kind", string(kind)))
	return nil
}

// Sent returns how many events were published since start.
func (n *Notifier) Sent() int64 { return n.sent.Load() }

// Failed returns how many publish attempts errored since start.
func (n *Notifier) Failed() int64 { return n.failed.Load() }

// Close flushes and shuts the underlying writer.  Idempotent.
func (n *Notifier) Close() error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := n.w.Close()
	n.log.Info("kafka notifier closed", logging.Int64("sent", n.sent.Load()))
	return err
}
