package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr        string        `mapstructure:"redis_addr"`
	Password    string        `mapstructure:"redis_password"`
	DB          int           `mapstructure:"redis_db"`
	Prefix      string        `mapstructure:"redis_prefix"`
	DialTimeout time.Duration `mapstructure:"redis_dial_timeout"`
}

// RedisKV stores every key as a plain string under Prefix.
type RedisKV struct {
	rdb    redis.UniversalClient
	prefix string
}

// OpenRedis connects and pings.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisKV, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("storage: redis ping %s: %w", cfg.Addr, err)
	}
	return NewRedisKV(rdb, cfg.Prefix), nil
}

func NewRedisKV(rdb redis.UniversalClient, prefix string) *RedisKV {
	return &RedisKV{rdb: rdb, prefix: prefix}
}

func (r *RedisKV) Close() error {
	return r.rdb.Close()
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *RedisKV) Remove(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.prefix+key).Err()
}

// Clear deletes only keys under the prefix.
func (r *RedisKV) Clear(ctx context.Context) error {
	keys, err := r.scan(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}

func (r *RedisKV) scan(ctx context.Context) ([]string, error) {
	var cursor uint64
	out := make([]string, 0)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}
