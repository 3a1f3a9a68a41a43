package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип события в шине.
type MessageType string

const (
	MessageTypeDownloadDue            MessageType = "download.due"
	MessageTypeNotificationsDelivered MessageType = "notifications.delivered"
)

// Message — конверт события.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// DownloadDuePayload — созревшая задача скачивания, захваченная воркером.
type DownloadDuePayload struct {
	TaskID    uuid.UUID `json:"task_id"`
	Email     string    `json:"email"`
	MeetingID string    `json:"meeting_id"`
}

// NotificationsDeliveredPayload — подтверждённо доставленный батч уведомлений.
type NotificationsDeliveredPayload struct {
	GameIDs []int64 `json:"game_ids"`
}

// Publisher публикует события в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует событие в exchange с указанным ключом маршрутизации.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // событие переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishDownloadDue публикует событие о захваченной задаче скачивания.
// Потребитель: сервис конвейера.
func (p *Publisher) PublishDownloadDue(ctx context.Context, payload DownloadDuePayload) error {
	return p.Publish(ctx, ExchangeDownloads, RoutingKeyDue, &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeDownloadDue,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// PublishNotificationsDelivered публикует событие о доставленном батче.
// Потребители: внешние подписчики (аудит, дашборды).
func (p *Publisher) PublishNotificationsDelivered(ctx context.Context, gameIDs []int64) error {
	return p.Publish(ctx, ExchangeNotifications, RoutingKeyDelivered, &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeNotificationsDelivered,
		Payload:   NotificationsDeliveredPayload{GameIDs: gameIDs},
		Timestamp: time.Now(),
	})
}
