package redisstore

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

// Merge implements verdict.Store. HSET only touches the given fields, so
// anything else living in the entity's safety hash survives the write.
func (s *Store) Merge(ctx context.Context, v domain.SafetyVerdict) error {
	fields := map[string]any{
		"safe":         strconv.FormatBool(v.Safe),
		"min_distance": formatDistance(v.MinDistance),
		"updated_at":   domain.Now().UTC().Format(time.RFC3339),
	}
	return s.rdb.HSet(ctx, verdictKeyPrefix+v.EntityID, fields).Err()
}

// Verdict reads the stored safety hash for one entity. An empty map means
// no verdict has been published yet.
func (s *Store) Verdict(ctx context.Context, entityID string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, verdictKeyPrefix+entityID).Result()
}

// formatDistance renders the degree distance, with the empty string
// standing in for "no hazardous points anywhere".
func formatDistance(d float64) string {
	if math.IsInf(d, 1) {
		return ""
	}
	return strconv.FormatFloat(d, 'f', -1, 64)
}
