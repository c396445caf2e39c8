package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092 ")

	cfg, err := LoadConfig(context.Background(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, 8*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 15*time.Minute, cfg.S3PresignExpiry)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "order.events", cfg.KafkaTopic)
	assert.False(t, cfg.needsAWS())
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		t.Setenv("STORAGE_DRIVER", "memory")
		_, err := LoadConfig(context.Background(), zap.NewNop())
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("postgres needs credentials", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("STORAGE_DRIVER", "postgres")
		t.Setenv("POSTGRES_USER", "")
		t.Setenv("POSTGRES_PASSWORD", "")
		_, err := LoadConfig(context.Background(), zap.NewNop())
		assert.ErrorContains(t, err, "POSTGRES_USER")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("STORAGE_DRIVER", "mongo")
		_, err := LoadConfig(context.Background(), zap.NewNop())
		assert.ErrorContains(t, err, "STORAGE_DRIVER")
	})

	t.Run("bad rate limit", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("RATE_LIMIT_RPS", "fast")
		_, err := LoadConfig(context.Background(), zap.NewNop())
		assert.Error(t, err)
	})
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MP_INT", "nope")
	t.Setenv("MP_DUR", "90s")
	assert.Equal(t, 7, getEnvInt("MP_INT", 7))
	assert.Equal(t, 90*time.Second, getEnvDuration("MP_DUR", time.Minute))
	assert.Equal(t, "fallback", getEnv("MP_UNSET_KEY", "fallback"))
	assert.Nil(t, splitList(""))
}
