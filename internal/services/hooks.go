package services

import (
	"context"
	"time"

	"carwash-backend/internal/models"
)

// SummaryCache stores rendered summaries. Implemented by internal/cache;
// a nil SummaryCache disables caching.
type SummaryCache interface {
	// Generation is the branch's cache generation, bumped by every
	// InvalidateBranch. ok is false when it cannot be read.
	Generation(ctx context.Context, branchID int) (gen int64, ok bool)
	GetSummary(ctx context.Context, key string) ([]byte, bool)
	SetSummary(ctx context.Context, key string, data []byte, ttl time.Duration)
	InvalidateBranch(ctx context.Context, branchID int)
}

// JobPublisher receives committed jobs. Implemented by internal/live.
type JobPublisher interface {
	PublishJob(job *models.WashJob)
}

// SessionRevoker remembers logged-out token IDs until they expire.
type SessionRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) bool
}
