package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comalice/statesvc/internal/core"
)

var (
	ErrFailedToParseRedisURL = errors.New("failed to parse redis connection url")
	ErrRedisNotReady         = errors.New("redis is not ready")
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	URL            string        `env:"URL" envDefault:"redis://localhost:6379/0"`
	Channel        string        `env:"CHANNEL" envDefault:"statesvc:transitions"`
	KeyPrefix      string        `env:"KEY_PREFIX" envDefault:"statesvc:snapshot:"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
	RetryAttempts  int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"RETRY_INTERVAL" envDefault:"1s"`
}

// RedisStore publishes transition records on a Redis channel and keeps the
// latest snapshot of each machine under a key.
type RedisStore struct {
	client    redis.UniversalClient
	channel   string
	keyPrefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, channel, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, channel: channel, keyPrefix: keyPrefix}
}

// ConnectRedis connects to Redis, retrying until cfg.RetryAttempts pings have
// failed or cfg.ConnectTimeout has passed.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisURL, err)
	}

	for range max(cfg.RetryAttempts, 1) {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return NewRedisStore(client, cfg.Channel, cfg.KeyPrefix), nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, ErrRedisNotReady
}

// Publish sends record as JSON on the configured channel.
func (s *RedisStore) Publish(ctx context.Context, record core.TransitionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe returns a subscription to the configured channel. Messages carry
// JSON-encoded TransitionRecords; see DecodeRecord.
func (s *RedisStore) Subscribe(ctx context.Context) *redis.PubSub {
	return s.client.Subscribe(ctx, s.channel)
}

// DecodeRecord decodes a message payload received through Subscribe.
func DecodeRecord(msg *redis.Message) (core.TransitionRecord, error) {
	var rec core.TransitionRecord
	if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
		return core.TransitionRecord{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, snapshot core.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+snapshot.MachineID, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, machineID string) (core.Snapshot, error) {
	payload, err := s.client.Get(ctx, s.keyPrefix+machineID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.Snapshot{}, fmt.Errorf("machine %q: %w", machineID, ErrSnapshotNotFound)
		}
		return core.Snapshot{}, fmt.Errorf("redis get: %w", err)
	}
	var snapshot core.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return core.Snapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return checkSnapshot(snapshot, machineID)
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
