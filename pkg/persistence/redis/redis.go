// Package redis provides a Redis backed change ledger store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowsmith/pkg/ledger"
	"github.com/dukex/flowsmith/pkg/models"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "flowsmith:ledger:"

	// LockTTL bounds how long a crashed writer can hold the lock.
	LockTTL = 30 * time.Second

	lockRetry = 50 * time.Millisecond
)

// ErrLockReleased is returned by unlock when the lock expired or was taken over.
var ErrLockReleased = errors.New("ledger lock was already released")

// releaseScript deletes the lock key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LedgerStore keeps the change records of one namespace in a Redis hash,
// one JSON encoded record per path.
type LedgerStore struct {
	client    *redis.Client
	logger    *slog.Logger
	namespace string
}

// NewLedgerStore connects to the Redis server addressed by redisURL.
func NewLedgerStore(ctx context.Context, logger *slog.Logger, redisURL, namespace string) (*LedgerStore, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger = logger.With("component", "redis_ledger")
	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return &LedgerStore{
		client:    client,
		logger:    logger,
		namespace: namespace,
	}, nil
}

func (s *LedgerStore) recordsKey() string {
	return keyPrefix + s.namespace
}

func (s *LedgerStore) lockKey() string {
	return keyPrefix + s.namespace + ":lock"
}

// Load returns every record of the namespace.
func (s *LedgerStore) Load(ctx context.Context) (models.ChangeRecords, error) {
	values, err := s.client.HGetAll(ctx, s.recordsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read change records: %w", err)
	}

	records := make(models.ChangeRecords, len(values))

	for path, value := range values {
		var record models.ChangeRecord

		err := json.Unmarshal([]byte(value), &record)
		if err != nil {
			return nil, fmt.Errorf("%w: record %s: %v", ledger.ErrLedgerCorrupted, path, err)
		}

		record.Path = path
		records[path] = &record
	}

	return records, nil
}

// Save replaces the namespace hash with records atomically.
func (s *LedgerStore) Save(ctx context.Context, records models.ChangeRecords) error {
	fields := make(map[string]any, len(records))

	for path, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode change record %s: %w", path, err)
		}

		fields[path] = string(data)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.recordsKey())

		if len(fields) > 0 {
			pipe.HSet(ctx, s.recordsKey(), fields)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save change records: %w", err)
	}

	return nil
}

// Lock takes the namespace lock key with SET NX, retrying until ctx is done.
func (s *LedgerStore) Lock(ctx context.Context) (ledger.Unlock, error) {
	token := uuid.NewString()

	for {
		acquired, err := s.client.SetNX(ctx, s.lockKey(), token, LockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to take ledger lock: %w", err)
		}

		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to take ledger lock: %w", ctx.Err())
		case <-time.After(lockRetry):
		}
	}

	return func() error {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		released, err := releaseScript.Run(releaseCtx, s.client, []string{s.lockKey()}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release ledger lock: %w", err)
		}

		if released == 0 {
			s.logger.Warn("Ledger lock expired before release", "key", s.lockKey())

			return ErrLockReleased
		}

		return nil
	}, nil
}

// HealthCheck pings the server.
func (s *LedgerStore) HealthCheck(ctx context.Context) error {
	err := s.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

// Close closes the client.
func (s *LedgerStore) Close(_ context.Context) error {
	err := s.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}
