package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbook/ledger/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.NotEmpty(t, cfg.Database.URL)
	assert.Empty(t, cfg.RabbitMQ.URL)
	assert.Equal(t, "ledger.events", cfg.RabbitMQ.Exchange)
	assert.Equal(t, "ledger.transaction.posted", cfg.RabbitMQ.RoutingKey)
	assert.True(t, cfg.Ledger.CreditOverdraw)
	assert.Equal(t, 5, cfg.Ledger.ReferenceAttempts)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LEDGER_HTTP_ADDR", ":9999")
	t.Setenv("LEDGER_DATABASE_URL", "postgres://env:env@db:5432/envdb")
	t.Setenv("LEDGER_RABBITMQ_URL", "amqp://guest:guest@mq:5672/")
	t.Setenv("LEDGER_LEDGER_CREDIT_OVERDRAW", "false")
	t.Setenv("LEDGER_LEDGER_REFERENCE_ATTEMPTS", "8")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, "postgres://env:env@db:5432/envdb", cfg.Database.URL)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitMQ.URL)
	assert.False(t, cfg.Ledger.CreditOverdraw)
	assert.Equal(t, 8, cfg.Ledger.ReferenceAttempts)
}
