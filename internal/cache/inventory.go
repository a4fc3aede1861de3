package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	UserKeyPrefix       = "user:%s"
	OwnerStatsKeyPrefix = "owner:%s:stats"
)

const (
	UserTTL       = 5 * time.Minute
	OwnerStatsTTL = 2 * time.Minute
)

func UserKey(userID uuid.UUID) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func OwnerStatsKey(ownerID uuid.UUID) string {
	return fmt.Sprintf(OwnerStatsKeyPrefix, ownerID)
}

// Invalidate deletes keys, ignoring a disabled cache.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uuid.UUID) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateOwnerStats drops cached listing stats for each non-nil owner.
func InvalidateOwnerStats(ctx context.Context, owners ...*uuid.UUID) {
	keys := make([]string, 0, len(owners))
	for _, o := range owners {
		if o != nil {
			keys = append(keys, OwnerStatsKey(*o))
		}
	}
	Invalidate(ctx, keys...)
}
