package cache

import (
	"context"
	"testing"
	"time"
)

func TestDisabledCacheDegrades(t *testing.T) {
	ctx := context.Background()
	var r *Redis

	if _, ok := r.GetSummary(ctx, "summary:1:2024-03-15:2024-03-15"); ok {
		t.Fatalf("expected miss without redis")
	}
	if _, ok := r.Generation(ctx, 1); ok {
		t.Fatalf("expected no generation without redis")
	}
	r.SetSummary(ctx, "summary:1:x", []byte("{}"), time.Minute)
	r.InvalidateBranch(ctx, 1)

	if r.IsRevoked(ctx, "jti") {
		t.Fatalf("expected nothing revoked without redis")
	}
	if err := r.Revoke(ctx, "jti", time.Now().Add(time.Hour)); err == nil {
		t.Fatalf("expected revoke to fail without redis")
	}

	release, ok, err := r.TryLock(ctx, "nightly:2024-03-15", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected local lock grant, got ok=%v err=%v", ok, err)
	}
	release()

	if r.Client() != nil {
		t.Fatalf("expected nil client")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestConnectFailsFast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Connect(ctx, "127.0.0.1:1", "", 0); err == nil {
		t.Fatalf("expected connection error")
	}
}
