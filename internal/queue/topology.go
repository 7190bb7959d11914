package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// holdWaitArgs routes expired hold messages through the default exchange
// into HoldExpiredQueue.
func holdWaitArgs() amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": HoldExpiredQueue,
	}
}

// Declare makes sure every queue the application uses exists. All queues
// are durable; declaring is idempotent as long as the arguments match.
func Declare(ch *amqp.Channel) error {
	for _, name := range []string{BookingConfirmedQueue, ShowAddedQueue, HoldExpiredQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}
	if _, err := ch.QueueDeclare(HoldWaitQueue, true, false, false, false, holdWaitArgs()); err != nil {
		return fmt.Errorf("queue declare %s: %w", HoldWaitQueue, err)
	}
	return nil
}
