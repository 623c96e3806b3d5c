package redis

import (
	"context"
	"time"
)

const (
	BatchLockTTL       = 10 * time.Minute
	RateLimitWindowTTL = 1 * time.Minute
)

func BatchLockKey() string {
	return "scorer:batch:lock"
}

func ProviderRateLimitKey() string {
	return "ratelimit:provider"
}

// AcquireBatchLock claims the batch-run lock. Overlapping schedule triggers
// and manual invocations contend on this key so only one run spends provider
// calls at a time. The token identifies the owning run.
func (c *Cache) AcquireBatchLock(ctx context.Context, token string) (bool, error) {
	return c.SetNX(ctx, BatchLockKey(), token, BatchLockTTL)
}

func (c *Cache) ReleaseBatchLock(ctx context.Context) error {
	return c.Delete(ctx, BatchLockKey())
}

func (c *Cache) IncrementProviderRateLimit(ctx context.Context) (int64, error) {
	return c.IncrementWithExpiry(ctx, ProviderRateLimitKey(), RateLimitWindowTTL)
}

func (c *Cache) GetProviderRateLimit(ctx context.Context) (int64, error) {
	return c.GetInt(ctx, ProviderRateLimitKey())
}
