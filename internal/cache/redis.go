package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Cache keys
const (
	SummaryKeyPattern = "summary:%d:*"
	SummaryGenKeyFmt  = "summarygen:%d"
	RevokedKeyFmt     = "session:revoked:%s"
	LockKeyFmt        = "lock:%s"
)

// Redis wraps the shared client. Every method is a no-op (or a miss) when
// the client is nil so the server keeps working without redis.
type Redis struct {
	client *redis.Client
	locker *redislock.Client
}

// Connect opens a client and pings it. On failure the client is closed and
// the error returned; callers fall back to running without a cache.
func Connect(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return New(client), nil
}

// New wraps an existing client
func New(client *redis.Client) *Redis {
	return &Redis{client: client, locker: redislock.New(client)}
}

// Client returns the underlying client, nil when disabled
func (r *Redis) Client() *redis.Client {
	if r == nil {
		return nil
	}
	return r.client
}

func (r *Redis) enabled() bool {
	return r != nil && r.client != nil
}

// Ping checks the connection for health reporting
func (r *Redis) Ping(ctx context.Context) error {
	if !r.enabled() {
		return errors.New("redis disabled")
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if !r.enabled() {
		return nil
	}
	return r.client.Close()
}

// ============================================
// Summary cache
// ============================================

// GetSummary returns cached summary JSON if available
func (r *Redis) GetSummary(ctx context.Context, key string) ([]byte, bool) {
	if !r.enabled() {
		return nil, false
	}
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetSummary stores summary JSON with a TTL
func (r *Redis) SetSummary(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if !r.enabled() {
		return
	}
	r.client.Set(ctx, key, data, ttl)
}

// Generation returns the branch's summary generation; 0 until the first
// invalidation.
func (r *Redis) Generation(ctx context.Context, branchID int) (int64, bool) {
	if !r.enabled() {
		return 0, false
	}
	gen, err := r.client.Get(ctx, fmt.Sprintf(SummaryGenKeyFmt, branchID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		return 0, false
	}
	return gen, true
}

// InvalidateBranch bumps the branch generation, orphaning any summary still
// being built, then clears the cached windows
func (r *Redis) InvalidateBranch(ctx context.Context, branchID int) {
	if !r.enabled() {
		return
	}
	r.client.Incr(ctx, fmt.Sprintf(SummaryGenKeyFmt, branchID))

	pattern := fmt.Sprintf(SummaryKeyPattern, branchID)
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if iter.Err() == nil && len(keys) > 0 {
		r.client.Del(ctx, keys...)
	}
}

// ============================================
// Session denylist
// ============================================

// Revoke denylists a token ID until its expiry
func (r *Redis) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if !r.enabled() {
		return errors.New("session store unavailable")
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, fmt.Sprintf(RevokedKeyFmt, tokenID), 1, ttl).Err()
}

// IsRevoked reports whether a token ID was logged out
func (r *Redis) IsRevoked(ctx context.Context, tokenID string) bool {
	if !r.enabled() || tokenID == "" {
		return false
	}
	n, err := r.client.Exists(ctx, fmt.Sprintf(RevokedKeyFmt, tokenID)).Result()
	return err == nil && n > 0
}

// ============================================
// Distributed lock
// ============================================

// TryLock obtains a short-lived lock on name. ok is false when another
// holder has it. Without redis the lock is always granted locally.
func (r *Redis) TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error) {
	if !r.enabled() {
		return func() {}, true, nil
	}
	lock, err := r.locker.Obtain(ctx, fmt.Sprintf(LockKeyFmt, name), ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return func() { _ = lock.Release(context.Background()) }, true, nil
}
