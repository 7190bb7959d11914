package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinego/internal/logger"
)

// Handler processes one message body. A returned error rejects the
// message without requeueing it.
type Handler func(ctx context.Context, body []byte) error

// JSONHandler decodes the body into T before calling fn.
func JSONHandler[T any](fn func(ctx context.Context, ev T) error) Handler {
	return func(ctx context.Context, body []byte) error {
		var ev T
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return fn(ctx, ev)
	}
}

// Consumer reads one queue and keeps reconnecting until its context ends.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handle   Handler
	log      *logger.Logger

	maxBackoff time.Duration
}

// NewConsumer builds a consumer for one queue. Run starts it.
func NewConsumer(url, queue string, h Handler, log *logger.Logger) *Consumer {
	return &Consumer{
		url:        url,
		queue:      queue,
		prefetch:   50,
		handle:     h,
		log:        log.WithComponent("consumer").WithFields(map[string]any{"queue": queue}),
		maxBackoff: 30 * time.Second,
	}
}

// Queue returns the queue this consumer reads.
func (c *Consumer) Queue() string { return c.queue }

// Run dials the broker, consumes, and on any failure reconnects with
// exponential backoff. It returns ctx.Err() once ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warn("failed to dial broker", "retry_in", backoff.String())
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			if backoff < c.maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("consume loop ended, reconnecting")
		if err := sleep(ctx, 2*time.Second); err != nil {
			return err
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}
	if err := Declare(ch); err != nil {
		return err
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info("consuming")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

// deliver runs the handler and settles the delivery. Failed messages are
// dropped rather than requeued to avoid tight redelivery loops.
func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	if err := c.handle(ctx, d.Body); err != nil {
		c.log.WithError(err).Error("handle message failed")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
