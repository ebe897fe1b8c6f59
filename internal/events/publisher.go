// Package events publishes ledger notifications to RabbitMQ. Delivery is
// best-effort: the ledger has already committed by the time an event is
// published, so failures are logged and never surfaced to the caller's
// request.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/finbook/ledger/internal/domain"
)

// TransactionPostedEvent is the wire payload for a committed transaction.
type TransactionPostedEvent struct {
	EventID         string `json:"eventId"`
	TransactionID   string `json:"transactionId"`
	AccountID       string `json:"accountId"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	ReferenceNumber string `json:"referenceNumber"`
	Status          string `json:"status"`
	FromAccountID   string `json:"fromAccountId,omitempty"`
	ToAccountID     string `json:"toAccountId,omitempty"`
	Timestamp       string `json:"timestamp"`
}

// Publisher emits transaction.posted events on a topic exchange.
type Publisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	log        *zap.Logger
}

// NewPublisher connects to RabbitMQ and declares the topic exchange.
func NewPublisher(url, exchange, routingKey string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:       conn,
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
		log:        log,
	}, nil
}

// PublishTransactionPosted implements domain.EventPublisher.
func (p *Publisher) PublishTransactionPosted(ctx context.Context, txn *domain.Transaction) error {
	event := TransactionPostedEvent{
		EventID:         uuid.NewString(),
		TransactionID:   txn.ID.String(),
		AccountID:       txn.AccountID.String(),
		Type:            string(txn.Type),
		Amount:          txn.Amount.StringFixed(2),
		ReferenceNumber: txn.ReferenceNumber,
		Status:          string(txn.Status),
		Timestamp:       txn.TransactionDate.UTC().Format(time.RFC3339),
	}
	if txn.FromAccountID != nil {
		event.FromAccountID = txn.FromAccountID.String()
	}
	if txn.ToAccountID != nil {
		event.ToAccountID = txn.ToAccountID.String()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		p.log.Warn("failed to publish transaction event",
			zap.String("transaction_id", event.TransactionID),
			zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn("failed to close channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
