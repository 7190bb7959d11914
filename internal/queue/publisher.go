package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinego/internal/logger"
)

// Publisher sends events to RabbitMQ. It dials a fresh connection per
// publish; traffic is a handful of messages per booking. Errors are
// logged and returned so callers can decide to ignore them.
type Publisher struct {
	url string
	log *logger.Logger
}

// NewPublisher returns a publisher that dials url for each message.
func NewPublisher(url string, log *logger.Logger) *Publisher {
	return &Publisher{url: url, log: log.WithComponent("publisher")}
}

// PublishBookingConfirmed enqueues the post-payment notification job.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	return p.publish(ctx, BookingConfirmedQueue, ev, 0)
}

// PublishShowAdded enqueues the new-show announcement.
func (p *Publisher) PublishShowAdded(ctx context.Context, ev ShowAddedEvent) error {
	return p.publish(ctx, ShowAddedQueue, ev, 0)
}

// ScheduleHoldExpiry parks a HoldExpiryEvent in the wait queue for delay.
// Every message in that queue carries the same hold window, so expirations
// are reached in publish order.
func (p *Publisher) ScheduleHoldExpiry(ctx context.Context, bookingID string, delay time.Duration) error {
	ev := HoldExpiryEvent{BookingID: bookingID, ExpiresAt: time.Now().UTC().Add(delay)}
	return p.publish(ctx, HoldWaitQueue, ev, delay)
}

func (p *Publisher) publish(ctx context.Context, queue string, v any, delay time.Duration) error {
	msg, err := newPublishing(v, delay, time.Now())
	if err != nil {
		p.log.WithError(err).Error("marshal event failed", "queue", queue)
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.WithError(err).Error("dial failed", "queue", queue)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Error("channel open failed", "queue", queue)
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := Declare(ch); err != nil {
		p.log.WithError(err).Error("declare topology failed")
		return err
	}

	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		msg,
	); err != nil {
		p.log.WithError(err).Error("publish failed", "queue", queue)
		return err
	}
	return nil
}

// newPublishing encodes v as a persistent JSON message. A positive delay
// becomes the per-message expiration in milliseconds.
func newPublishing(v any, delay time.Duration, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return amqp.Publishing{}, err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now.UTC(),
		Body:         body,
	}
	if delay > 0 {
		ms := delay.Milliseconds()
		if ms < 1 {
			ms = 1
		}
		msg.Expiration = strconv.FormatInt(ms, 10)
	}
	return msg, nil
}
