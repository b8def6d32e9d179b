package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store on a Redis server. Values are JSON strings under
// prefix+key; SetMany runs inside MULTI/EXEC.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "shoptrail:"
	}
	return &Redis{rdb: rdb, prefix: prefix}, nil
}

func (r *Redis) Close() error {
	err := r.rdb.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, r.wrap("get key "+key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode key %s: %w", key, err)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	return r.SetMany(ctx, map[string]any{key: value})
}

func (r *Redis) SetMany(ctx context.Context, entries map[string]any) error {
	if len(entries) == 0 {
		return nil
	}

	encoded := make(map[string][]byte, len(entries))
	for key, value := range entries {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode key %s: %w", key, err)
		}
		encoded[key] = data
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range encoded {
			pipe.Set(ctx, r.prefix+key, data, 0)
		}
		return nil
	})
	if err != nil {
		return r.wrap("set keys", err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	if err := r.rdb.Del(ctx, full...).Err(); err != nil {
		return r.wrap("remove keys", err)
	}
	return nil
}

func (r *Redis) Usage(ctx context.Context, keys ...string) (map[string]int64, error) {
	usage := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return usage, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make(map[string]*redis.IntCmd, len(keys))
	for _, k := range keys {
		cmds[k] = pipe.StrLen(ctx, r.prefix+k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, r.wrap("kv usage", err)
	}

	for k, cmd := range cmds {
		if n := cmd.Val(); n > 0 {
			usage[k] = n
		}
	}
	return usage, nil
}

func (r *Redis) wrap(op string, err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("%s: %w", op, err)
}
