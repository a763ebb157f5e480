package cache

import (
	"context"
	"log/slog"
	"time"
)

// The Safe* wrappers make the fail-open policy explicit at the call site:
// cache failures are logged and swallowed, never surfaced to the caller.

// SafeSet stores a value, logging instead of returning on failure.
func SafeSet(ctx context.Context, helper *CacheHelper, key string, value interface{}, ttl time.Duration) {
	if err := helper.Set(ctx, key, value, ttl); err != nil {
		slog.ErrorContext(ctx, "Failed to set cache key",
			"error", err,
			"key", key)
	}
}

// SafeDelete deletes cache keys, logging instead of returning on failure.
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// SafeInvalidatePattern invalidates a key pattern, logging on failure.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if _, err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// InvalidateScheduleCache drops the date-bucket entries touched by a write
// together with the creator's schedule list. Invalidation is best-effort and
// unordered relative to the store write; staleness is bounded by the TTL.
func InvalidateScheduleCache(ctx context.Context, helper *CacheHelper, creatorID string, buckets ...string) {
	keys := make([]string, 0, len(buckets)+1)
	for _, bucket := range buckets {
		keys = append(keys, ScheduleBucketKey(bucket))
	}
	keys = append(keys, UserSchedulesKey(creatorID))
	SafeDelete(ctx, helper, keys...)
}

// InvalidateUserNotifications drops a recipient's notification list entry.
func InvalidateUserNotifications(ctx context.Context, helper *CacheHelper, userID string) {
	SafeDelete(ctx, helper, UserNotificationsKey(userID))
}

// InvalidateUser drops a user's profile entry.
func InvalidateUser(ctx context.Context, helper *CacheHelper, userID string) {
	SafeDelete(ctx, helper, UserKey(userID))
}
