package ports

import (
	"context"
	"time"
)

// SyncLocker serializes sync runs across processes
type SyncLocker interface {
	// Acquire takes the named lock for at most ttl. It returns false when
	// another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops the lock if this locker still owns it
	Release(ctx context.Context, key string) error
}

// SyncRecorder receives the outcome of every finished sync run
type SyncRecorder interface {
	RecordSync(mode string, success bool, duration time.Duration, agents, tickets, metrics int)
}
