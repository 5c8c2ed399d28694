package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client Redis 客户端，对外不暴露 go-redis 类型
type Client struct {
	rdb *goredis.Client
}

// NewClient 创建客户端并 Ping
func NewClient(cfg *Config) (*Client, error) {
	merged, err := mergeConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         merged.Addr,
		Password:     merged.Password,
		DB:           merged.DB,
		PoolSize:     merged.PoolSize,
		MinIdleConns: merged.MinIdleConns,
		DialTimeout:  merged.DialTimeout,
		ReadTimeout:  merged.ReadTimeout,
		WriteTimeout: merged.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), merged.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get 获取字符串值，键不存在返回 ErrNil
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", ErrNil
		}
		return "", err
	}
	return val, nil
}

// Set 设置值，ttl 为 0 表示不过期
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	return c.rdb.Del(ctx, keys...).Result()
}

// Exists 返回存在的键数量
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	return c.rdb.Exists(ctx, keys...).Result()
}

// TTL 获取剩余过期时间
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.rdb.TTL(ctx, key).Result()
}

// SetObject JSON 序列化后写入
func (c *Client) SetObject(ctx context.Context, key string, obj any, ttl time.Duration) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal object: %w", err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// GetObject 读取并反序列化，键不存在返回 ErrNil
func GetObject[T any](ctx context.Context, c *Client, key string) (*T, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNil
		}
		return nil, err
	}

	var obj T
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal object: %w", err)
	}
	return &obj, nil
}

// 版本号不小于已记录的才写入，数据和版本号一起更新
var setIfNewerScript = goredis.NewScript(`
local cur = redis.call("get", KEYS[2])
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call("set", KEYS[1], ARGV[2], "PX", ARGV[3])
redis.call("set", KEYS[2], ARGV[1], "PX", ARGV[4])
return 1`)

// SetObjectIfNewer versionKey 记录已写入的最大版本，旧版本写入被忽略并返回 false。
// versionTTL 应不短于 ttl，数据过期或被删除后版本号仍能拦住旧数据
func (c *Client) SetObjectIfNewer(ctx context.Context, key, versionKey string, version int64, obj any, ttl, versionTTL time.Duration) (bool, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return false, fmt.Errorf("failed to marshal object: %w", err)
	}
	if ttl <= 0 {
		return false, fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	if versionTTL < ttl {
		versionTTL = ttl
	}
	n, err := setIfNewerScript.Run(ctx, c.rdb, []string{key, versionKey},
		version, data, ttl.Milliseconds(), versionTTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
