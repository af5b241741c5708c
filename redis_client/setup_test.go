package redis_client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leeforge/imgpress/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfig_Addr(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{"localhost", Config{Host: "localhost", Port: "16379"}, "localhost:16379"},
		{"hostname", Config{Host: "redis.example.com", Port: "6380"}, "redis.example.com:6380"},
		{"IPv6 address", Config{Host: "::1", Port: "6379"}, "[::1]:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.Addr())
		})
	}
}

func miniredisConfig(t *testing.T) Config {
	t.Helper()
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	return Config{Host: host, Port: port, DialTimeout: time.Second}
}

func TestNewRedis_ConnectsAndRedactsPassword(t *testing.T) {
	cfg := miniredisConfig(t)
	core, logs := observer.New(zapcore.InfoLevel)

	client, err := NewRedis(context.Background(), cfg, logging.FromZap(zap.New(core)))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	val, err := client.Get(context.Background(), "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	entries := logs.FilterMessage("redis connected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "<empty>", entries[0].ContextMap()["password"])
}

func TestNewRedis_ConnectionFailure(t *testing.T) {
	_, err := NewRedis(context.Background(), Config{Host: "127.0.0.1", Port: "1", DialTimeout: 200 * time.Millisecond}, nil)
	assert.Error(t, err)
}

func TestRedactedPassword(t *testing.T) {
	assert.Equal(t, "[REDACTED]", redactedPassword("super-secret"))
	assert.Equal(t, "<empty>", redactedPassword(""))
}
