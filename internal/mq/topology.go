package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeJobs Exchange = "taoshelf.jobs"
	ExchangeDLQ  Exchange = "taoshelf.dlq"
)

// Queues.
const (
	QueueJobsStart Queue = "jobs.start"
	QueueDLQJobs   Queue = "dlq.jobs"
)

// Routing keys.
const (
	RoutingKeyStart   RoutingKey = "start"
	RoutingKeyDLQJobs RoutingKey = "jobs"
)

type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
	args       amqp.Table
}

// topology — полный список очередей и их привязок.
var topology = []binding{
	{
		queue:      QueueJobsStart,
		routingKey: RoutingKeyStart,
		exchange:   ExchangeJobs,
		// битые сообщения уходят в DLQ, их разбирают вручную
		args: amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQJobs),
		},
	},
	{
		queue:      QueueDLQJobs,
		routingKey: RoutingKeyDLQJobs,
		exchange:   ExchangeDLQ,
	},
}

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeJobs, ExchangeDLQ} {
			if err := ch.ExchangeDeclare(string(ex), amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		for _, b := range topology {
			if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, b.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}
		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  taoshelf RabbitMQ topology:

    taoshelf.jobs (direct)
    └── jobs.start [routing: start]
            Publisher: scheduler, taoshelf-ctl run
            Consumer:  worker
            DLQ: dlq.jobs

    taoshelf.dlq (direct)
    └── dlq.jobs [routing: jobs]
            Manual processing
  `
}
