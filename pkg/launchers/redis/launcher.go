// Package redis provides a queue-backed launcher: launch configurations are
// pushed onto a Redis list consumed by an external batch-submission bridge,
// which reports job status back through a Redis hash.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pipecraft/campd/pkg/protocol"
	redis "github.com/redis/go-redis/v9"
)

const (
	// DefaultQueueKey is the list the bridge consumes submissions from.
	DefaultQueueKey = "campd:launch:queue"
	// DefaultStatusKey is the hash the bridge reports job status into.
	DefaultStatusKey = "campd:launch:status"

	connectTimeout = 5 * time.Second
)

// Launcher implements the launcher capability on top of Redis.
type Launcher struct {
	client    redis.UniversalClient
	queueKey  string
	statusKey string
	logger    *slog.Logger
}

// submission is the wire form of one queued launch.
type submission struct {
	Handle      string         `json:"handle"`
	Config      map[string]any `json:"config"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// NewLauncher connects to Redis and returns a launcher using the default
// queue and status keys.
func NewLauncher(ctx context.Context, logger *slog.Logger, addr, password string, db int) (*Launcher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	err := client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis launcher backend", "addr", addr, "db", db)

	return NewLauncherWithClient(client, logger), nil
}

// NewLauncherWithClient wraps an existing client, for tests and custom
// connection setups.
func NewLauncherWithClient(client redis.UniversalClient, logger *slog.Logger) *Launcher {
	return &Launcher{
		client:    client,
		queueKey:  DefaultQueueKey,
		statusKey: DefaultStatusKey,
		logger:    logger.With("module", "redis_launcher"),
	}
}

// Launch queues the configuration for the bridge and seeds the handle's
// status as running.
func (l *Launcher) Launch(ctx context.Context, config map[string]any) (string, error) {
	handle := uuid.New().String()

	payload, err := json.Marshal(submission{
		Handle:      handle,
		Config:      config,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal launch submission: %w", err)
	}

	seed, err := json.Marshal(protocol.CheckResult{
		State:     protocol.LaunchStateRunning,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal initial status: %w", err)
	}

	err = l.client.HSet(ctx, l.statusKey, handle, seed).Err()
	if err != nil {
		return "", fmt.Errorf("failed to seed launch status: %w", err)
	}

	err = l.client.LPush(ctx, l.queueKey, payload).Err()
	if err != nil {
		return "", fmt.Errorf("failed to queue launch submission: %w", err)
	}

	l.logger.InfoContext(ctx, "Queued launch submission", "handle", handle)

	return handle, nil
}

// Check reads the bridge-reported status for a handle.
func (l *Launcher) Check(ctx context.Context, handle string) (*protocol.CheckResult, error) {
	raw, err := l.client.HGet(ctx, l.statusKey, handle).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("unknown launch handle %s", handle)
		}

		return nil, fmt.Errorf("failed to read launch status: %w", err)
	}

	var result protocol.CheckResult

	err = json.Unmarshal([]byte(raw), &result)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal launch status: %w", err)
	}

	return &result, nil
}

// Close releases the Redis connection.
func (l *Launcher) Close() error {
	return l.client.Close()
}
