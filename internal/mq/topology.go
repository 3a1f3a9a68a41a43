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

// Обменники.
const (
	ExchangeDownloads     Exchange = "backoffice.downloads"
	ExchangeNotifications Exchange = "backoffice.notifications"
	ExchangeDLQ           Exchange = "backoffice.dlq"
)

// Очереди.
const (
	QueueDownloadsDue           Queue = "downloads.due"
	QueueNotificationsDelivered Queue = "notifications.delivered"
	QueueDLQDownloads           Queue = "dlq.downloads"
)

// Ключи маршрутизации.
const (
	RoutingKeyDue          RoutingKey = "due"
	RoutingKeyDelivered    RoutingKey = "delivered"
	RoutingKeyDLQDownloads RoutingKey = "downloads"
)

// SetupTopology объявляет обменники, очереди и привязки. Идемпотентно:
// вызывается каждым сервисом при старте.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangeDownloads, ExchangeNotifications, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(name),
			"direct",
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQDownloads),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// downloads.due — с DLQ: событие, которое конвейер не смог
		// обработать, не должно крутиться в очереди вечно.
		{QueueDownloadsDue, dlqArgs},

		// notifications.delivered — чистое событие для внешних
		// подписчиков, без DLQ.
		{QueueNotificationsDelivered, nil},

		{QueueDLQDownloads, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name),
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			q.args,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueDownloadsDue, RoutingKeyDue, ExchangeDownloads},
		{QueueNotificationsDelivered, RoutingKeyDelivered, ExchangeNotifications},
		{QueueDLQDownloads, RoutingKeyDLQDownloads, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}
