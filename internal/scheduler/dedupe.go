package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const staleAlertKeyPrefix = "crm:stale-alert:"

// AlertDeduper remembers which leads were alerted within the TTL window.
type AlertDeduper struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewAlertDeduper(rdb redis.Cmdable, ttl time.Duration) *AlertDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AlertDeduper{rdb: rdb, ttl: ttl}
}

// Claim reports whether the caller may alert for leadID now. The first
// claim inside the window wins; later claims return false until it expires.
func (d *AlertDeduper) Claim(ctx context.Context, leadID uuid.UUID) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, staleAlertKeyPrefix+leadID.String(), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim stale alert: %w", err)
	}
	return ok, nil
}

// Release forgets a claim so the lead is alerted again on the next scan.
func (d *AlertDeduper) Release(ctx context.Context, leadID uuid.UUID) error {
	if err := d.rdb.Del(ctx, staleAlertKeyPrefix+leadID.String()).Err(); err != nil {
		return fmt.Errorf("release stale alert: %w", err)
	}
	return nil
}
