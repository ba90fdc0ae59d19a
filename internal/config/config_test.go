package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
application:
  env: test
  port: 9090
  secret_key: secret
db:
  name: storefront_test
  host: localhost
  username: postgres
  password: postgres
payment:
  webhook_secret: whsec_test
outbox:
  interval: 250ms
`

func TestLoad(t *testing.T) {
	c := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}).
		WithContext(context.Background())

	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "storefront.yaml"), []byte(testConfig), 0o600)
	require.NoError(t, err)

	t.Run("given yaml file should unmarshal values and defaults", func(t *testing.T) {
		cfg, err := Load(c, dir, "storefront")
		require.NoError(t, err)

		assert.Equal(t, "test", cfg.Application.Env)
		assert.Equal(t, 9090, cfg.Application.Port)
		assert.Equal(t, "storefront_test", cfg.Database.Name)
		assert.EqualValues(t, 5432, cfg.Database.Port)
		assert.Equal(t, "whsec_test", cfg.Payment.WebhookSecret)
		assert.Equal(t, "eur", cfg.Payment.Currency)
		assert.Equal(t, 250*time.Millisecond, cfg.Outbox.Interval)
		assert.EqualValues(t, 50, cfg.Outbox.BatchSize)
		assert.Equal(t, 24*time.Hour, cfg.Application.TokenTTL)
		assert.Equal(t, 9090, cfg.Application.MetricsPort)
	})

	t.Run("given environment override should prefer environment", func(t *testing.T) {
		t.Setenv("STOREFRONT_DB_HOST", "db.internal")
		t.Setenv("STOREFRONT_BROKER_KIND", "kafka")

		cfg, err := Load(c, dir, "storefront")
		require.NoError(t, err)

		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, "kafka", cfg.Broker.Kind)
	})

	t.Run("given missing file should return error", func(t *testing.T) {
		_, err := Load(c, dir, "missing")
		assert.Error(t, err)
	})
}
