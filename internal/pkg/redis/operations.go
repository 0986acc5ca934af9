package redis

import (
	"context"
	"time"
)

// ==================== Key 操作 ====================

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.Key(k)
	}

	start := time.Now()
	n, err := c.rdb.Del(ctx, prefixed...).Result()
	c.observe("del", start, err)
	return n, err
}

// ==================== Hash 操作 ====================

// HSet 设置哈希字段
func (c *Client) HSet(ctx context.Context, key string, values ...interface{}) (int64, error) {
	start := time.Now()
	n, err := c.rdb.HSet(ctx, c.Key(key), values...).Result()
	c.observe("hset", start, err)
	return n, err
}

// HGet 获取哈希字段，字段不存在时 IsNil(err) 为 true
func (c *Client) HGet(ctx context.Context, key, field string) (string, error) {
	start := time.Now()
	val, err := c.rdb.HGet(ctx, c.Key(key), field).Result()
	c.observe("hget", start, err)
	return val, err
}
