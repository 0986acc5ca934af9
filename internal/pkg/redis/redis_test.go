package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRedisAddr = "localhost:6379"
)

// setupTestClient 连接本地 Redis，不可用时跳过测试
func setupTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Addr = testRedisAddr
	cfg.KeyPrefix = "chatgw-test:"
	cfg.DialTimeout = time.Second

	client, err := New(cfg, logger.Nop())
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}

	return client
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"missing addr", func(c *Config) { c.Addr = "" }, true},
		{"sentinel without master name", func(c *Config) {
			c.Mode = ModeSentinel
			c.SentinelAddrs = []string{"localhost:26379"}
		}, true},
		{"cluster without addrs", func(c *Config) { c.Mode = ModeCluster }, true},
		{"invalid mode", func(c *Config) { c.Mode = "read-write" }, true},
		{"invalid db", func(c *Config) { c.DB = 16 }, true},
		{"invalid pool size", func(c *Config) { c.PoolSize = 0 }, true},
		{"min idle exceeds pool", func(c *Config) { c.MinIdleConns = 20 }, true},
		{"invalid dial timeout", func(c *Config) { c.DialTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_Key(t *testing.T) {
	c := &Client{config: &Config{KeyPrefix: "p:"}}
	assert.Equal(t, "p:media", c.Key("media"))
}

func TestClient_HashOps(t *testing.T) {
	client := setupTestClient(t)
	defer client.Close()

	ctx := context.Background()
	key := fmt.Sprintf("hash-%d", time.Now().UnixNano())
	defer client.Del(ctx, key)

	_, err := client.HSet(ctx, key, "abc", "abc.png", "def", "def.jpg")
	require.NoError(t, err)

	val, err := client.HGet(ctx, key, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc.png", val)

	_, err = client.HGet(ctx, key, "nope")
	assert.True(t, IsNil(err))
}
