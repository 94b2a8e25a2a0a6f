package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"gopherai-docqa/internal/model"
)

// MessagePublisher queues chat messages for the persistence worker. One channel is reused
// and reopened after the broker closes it.
type MessagePublisher struct {
	conn      *amqp.Connection
	queueName string
	logger    *zap.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

func NewMessagePublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) *MessagePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessagePublisher{
		conn:      conn,
		queueName: queueName,
		logger:    logger,
	}
}

func (p *MessagePublisher) Publish(ctx context.Context, msg model.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message payload failed: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    msg.CreatedAt,
		Body:         payload,
		DeliveryMode: amqp.Persistent,
	}); err != nil {
		_ = ch.Close()
		p.ch = nil
		return fmt.Errorf("publish message failed: %w", err)
	}
	return nil
}

// Close releases the publishing channel; the connection belongs to the caller.
func (p *MessagePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}

func (p *MessagePublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	if err := DeclareQueue(ch, p.queueName); err != nil {
		_ = ch.Close()
		return nil, err
	}
	p.logger.Debug("publisher channel opened", zap.String("queue", p.queueName))
	p.ch = ch
	return ch, nil
}
