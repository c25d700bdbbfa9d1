package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis ledger.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Redis keeps entries in one hash per key prefix, so residue from every
// runner host lands in the same place. Hash fields cannot expire on their
// own; List drops entries older than the TTL and the key itself expires once
// nothing has been written for a TTL.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ecare-e2e"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return &Redis{client: client, key: cfg.KeyPrefix + ":residue", ttl: cfg.TTL}, nil
}

func (r *Redis) Record(ctx context.Context, e Entry) (Entry, error) {
	e = prepare(e)
	if err := r.put(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (r *Redis) put(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key, e.ID, data)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store entry %s: %w", e.ID, err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]Entry, error) {
	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	out := make([]Entry, 0, len(raw))
	for id, v := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("failed to decode entry %s: %w", id, err)
		}
		out = append(out, e)
	}

	out, stale := partition(out, r.ttl, time.Now())
	if len(stale) > 0 {
		if err := r.client.HDel(ctx, r.key, stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune %d expired entries: %w", len(stale), err)
		}
	}
	sortEntries(out)
	return out, nil
}

func (r *Redis) MarkConfirmed(ctx context.Context, id string) error {
	return r.update(ctx, id, func(e *Entry) { e.Confirmed = true })
}

func (r *Redis) MarkRemoved(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, func(e *Entry) { e.RemovedAt = &at })
}

func (r *Redis) update(ctx context.Context, id string, fn func(e *Entry)) error {
	v, err := r.client.HGet(ctx, r.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load entry %s: %w", id, err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(v), &e); err != nil {
		return fmt.Errorf("failed to decode entry %s: %w", id, err)
	}
	if expired(e, r.ttl, time.Now()) {
		return ErrNotFound
	}
	fn(&e)
	return r.put(ctx, e)
}

// Clear deletes every entry under the prefix.
func (r *Redis) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
