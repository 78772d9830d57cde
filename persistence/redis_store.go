package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/courtflow/internal/tlsutil"
	"github.com/redis/go-redis/v9"
)

// RedisStoreConfig contains Redis-specific configuration
type RedisStoreConfig struct {
	Addr       string `json:"addr" yaml:"addr"`
	Password   string `json:"password" yaml:"password"`
	DB         int    `json:"db" yaml:"db"`
	PoolSize   int    `json:"pool_size" yaml:"pool_size"`
	KeyPrefix  string `json:"key_prefix" yaml:"key_prefix"`
	TLSEnabled bool   `json:"tls_enabled" yaml:"tls_enabled"`
}

// RedisRunStore is a Redis-based implementation of RunStore.
// Records are JSON strings; sorted sets keyed by creation time index them.
type RedisRunStore struct {
	client    *redis.Client
	keyPrefix string
	owned     bool
}

// NewRedisRunStore dials Redis and creates a run store that owns the connection.
func NewRedisRunStore(config RedisStoreConfig) (*RedisRunStore, error) {
	opts := &redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	}
	if config.TLSEnabled {
		opts.TLSConfig = tlsutil.DefaultTLSConfig()
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := NewRedisRunStoreWithClient(client, config.KeyPrefix)
	store.owned = true
	return store, nil
}

// NewRedisRunStoreWithClient creates a run store on a shared client.
// Close does not close a shared client.
func NewRedisRunStoreWithClient(client *redis.Client, keyPrefix string) *RedisRunStore {
	if keyPrefix == "" {
		keyPrefix = "courtflow:"
	}
	return &RedisRunStore{client: client, keyPrefix: keyPrefix + "run:"}
}

// Close closes the store
func (s *RedisRunStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

// Ping checks if the store is healthy
func (s *RedisRunStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisRunStore) dataKey(id string) string {
	return s.keyPrefix + "data:" + id
}

func (s *RedisRunStore) topicKey(topic string) string {
	return s.keyPrefix + "topic:" + topic
}

func (s *RedisRunStore) allKey() string {
	return s.keyPrefix + "all"
}

// SaveRun persists a run record
func (s *RedisRunStore) SaveRun(ctx context.Context, record *RunRecord) error {
	if err := prepare(record); err != nil {
		return err
	}

	// Topic may change on overwrite; drop the stale index entry.
	old, err := s.GetRun(ctx, record.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	score := float64(record.CreatedAt.UnixNano())
	pipe := s.client.TxPipeline()
	if old != nil && old.Topic != record.Topic {
		pipe.ZRem(ctx, s.topicKey(old.Topic), record.ID)
	}
	pipe.Set(ctx, s.dataKey(record.ID), data, 0)
	pipe.ZAdd(ctx, s.allKey(), redis.Z{Score: score, Member: record.ID})
	pipe.ZAdd(ctx, s.topicKey(record.Topic), redis.Z{Score: score, Member: record.ID})

	_, err = pipe.Exec(ctx)
	return err
}

// GetRun retrieves a run record by ID
func (s *RedisRunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	data, err := s.client.Get(ctx, s.dataKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return &record, nil
}

// ListRuns retrieves run records matching the filter, newest first
func (s *RedisRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error) {
	index := s.allKey()
	if filter.Topic != "" {
		index = s.topicKey(filter.Topic)
	}

	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*RunRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.GetRun(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !filter.matches(record) {
			continue
		}
		out = append(out, record)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// DeleteRun removes a run record and its index entries
func (s *RedisRunStore) DeleteRun(ctx context.Context, id string) error {
	record, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.dataKey(id))
	pipe.ZRem(ctx, s.allKey(), id)
	pipe.ZRem(ctx, s.topicKey(record.Topic), id)
	_, err = pipe.Exec(ctx)
	return err
}
