package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Checkout.MaxRetries)
	assert.Equal(t, "0000000000", cfg.Checkout.AnonymousPhone)
	assert.Equal(t, "Diamond", cfg.Checkout.RankTierHigh)
	assert.Empty(t, cfg.Events.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.Events.PollInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("CHECKOUT_MAX_RETRIES", "5")
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 5, cfg.Checkout.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNegativeRetries(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CHECKOUT_MAX_RETRIES", "-1")

	_, err := Load()
	assert.Error(t, err)
}
