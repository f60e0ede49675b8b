package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/fixora/agentpulse/internal/logger"
	"github.com/fixora/agentpulse/internal/ports"
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config configures the sync lock backend
type Config struct {
	Enabled  bool
	RedisURL string
	Timeout  time.Duration
}

// RedisLocker implements SyncLocker with SET NX PX
type RedisLocker struct {
	client redis.Cmdable
	logger logger.Logger

	mu     sync.Mutex
	tokens map[string]string
}

// NewSyncLocker returns a Redis-backed locker, or a process-local one when Redis is disabled
func NewSyncLocker(config Config, log logger.Logger) (ports.SyncLocker, error) {
	if !config.Enabled {
		log.Info(context.Background(), "Redis sync lock disabled, using in-process lock", nil)
		return NewLocalLocker(), nil
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info(ctx, "Redis sync lock initialized", map[string]interface{}{"addr": opt.Addr})
	return NewRedisLocker(client, log), nil
}

// NewRedisLocker wraps an existing Redis client
func NewRedisLocker(client redis.Cmdable, log logger.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		logger: log,
		tokens: make(map[string]string),
	}
}

// Acquire takes the lock for ttl; false means another holder owns it
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		l.logger.Debug(ctx, "Lock held elsewhere", map[string]interface{}{"key": key})
		return false, nil
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()
	return true, nil
}

// Release drops the lock if it still carries this locker's token
func (l *RedisLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token, ok := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// LocalLocker serializes syncs inside one process
type LocalLocker struct {
	mu      sync.Mutex
	holders map[string]time.Time
	now     func() time.Time
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{holders: make(map[string]time.Time), now: time.Now}
}

// Acquire takes the lock unless an unexpired holder exists
func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expires, held := l.holders[key]; held && l.now().Before(expires) {
		return false, nil
	}
	l.holders[key] = l.now().Add(ttl)
	return true, nil
}

// Release drops the lock
func (l *LocalLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	delete(l.holders, key)
	l.mu.Unlock()
	return nil
}
