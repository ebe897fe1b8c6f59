package events_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/finbook/ledger/internal/domain"
	"github.com/finbook/ledger/internal/events"
)

// TestPublishTransactionPosted spins up a RabbitMQ container, publishes a
// posted-transaction event and consumes it back through the declared
// exchange.
func TestPublishTransactionPosted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, rabbitURL := startRabbitMQContainer(t, ctx)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	}()

	const (
		exchange   = "ledger.events"
		routingKey = "ledger.transaction.posted"
	)

	publisher, err := events.NewPublisher(rabbitURL, exchange, routingKey, zap.NewNop())
	require.NoError(t, err)
	defer publisher.Close()

	eventChan := startEventConsumer(t, rabbitURL, exchange, routingKey)
	time.Sleep(500 * time.Millisecond)

	from, to := uuid.New(), uuid.New()
	txn := domain.NewTransaction(from, domain.TransactionTypeDebit, decimal.RequireFromString("75.00"), "Savings")
	txn.ReferenceNumber = "TXN1234567890ABCDEFGH"
	txn.TransactionDate = time.Now()
	txn.FromAccountID = &from
	txn.ToAccountID = &to
	require.NoError(t, txn.MarkCompleted())

	require.NoError(t, publisher.PublishTransactionPosted(ctx, txn))

	select {
	case event := <-eventChan:
		assert.Equal(t, txn.ID.String(), event["transactionId"])
		assert.Equal(t, from.String(), event["accountId"])
		assert.Equal(t, "DEBIT", event["type"])
		assert.Equal(t, "75.00", event["amount"])
		assert.Equal(t, "COMPLETED", event["status"])
		assert.Equal(t, txn.ReferenceNumber, event["referenceNumber"])
		assert.Equal(t, from.String(), event["fromAccountId"])
		assert.Equal(t, to.String(), event["toAccountId"])
		assert.NotEmpty(t, event["eventId"])
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func startEventConsumer(t *testing.T, rabbitURL, exchange, routingKey string) <-chan map[string]any {
	t.Helper()

	conn, err := amqp.Dial(rabbitURL)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	channel, err := conn.Channel()
	require.NoError(t, err)

	queue, err := channel.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, channel.QueueBind(queue.Name, routingKey, exchange, false, nil))

	deliveries, err := channel.Consume(queue.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	out := make(chan map[string]any, 1)
	go func() {
		for delivery := range deliveries {
			var event map[string]any
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				continue
			}
			out <- event
		}
	}()
	return out
}

// startRabbitMQContainer starts a RabbitMQ testcontainer and returns the
// AMQP URL.
func startRabbitMQContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-management",
		ExposedPorts: []string{"5672/tcp"},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": "guest",
			"RABBITMQ_DEFAULT_PASS": "guest",
		},
		WaitingFor: wait.ForLog("Server startup complete"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start rabbitmq container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get rabbitmq host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5672")
	if err != nil {
		t.Fatalf("failed to get rabbitmq port: %v", err)
	}

	return container, fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}
