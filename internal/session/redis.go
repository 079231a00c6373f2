package session

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "lisa:session:"

// Redis stores each conversation as a list of JSON entries that expires
// ttl after the last append.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	maxLen int
	logger *zap.Logger
}

// NewRedis connects to url (redis://...) and pings the server.
func NewRedis(ctx context.Context, url string, ttl time.Duration, maxLen int, logger *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl, maxLen: maxLen, logger: logger.Named("session")}, nil
}

func (r *Redis) key(k string) string {
	return keyPrefix + k
}

func (r *Redis) Start(ctx context.Context, key string) error {
	return r.Clear(ctx, key)
}

func (r *Redis) Append(ctx context.Context, key string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode session entry: %w", err)
	}

	k := r.key(key)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, k, data)
		if r.maxLen > 0 {
			pipe.LTrim(ctx, k, int64(-r.maxLen), -1)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, k, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append session entry: %w", err)
	}
	return nil
}

func (r *Redis) History(ctx context.Context, key string, limit int) ([]Entry, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := r.client.LRange(ctx, r.key(key), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			r.logger.Warn("Skipping malformed session entry", zap.String("session", key), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *Redis) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
