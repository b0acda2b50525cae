package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

// CreateReport assigns an identifier and stores the incident report.
func (s *Store) CreateReport(ctx context.Context, r domain.IncidentReport) (domain.IncidentReport, error) {
	r.ID = uuid.NewString()
	r.CreatedAt = domain.Now().UTC()

	payload, err := json.Marshal(r)
	if err != nil {
		return domain.IncidentReport{}, fmt.Errorf("encoding report: %w", err)
	}
	if err := s.rdb.HSet(ctx, reportsKey, r.ID, payload).Err(); err != nil {
		return domain.IncidentReport{}, err
	}
	return r, nil
}

// ListReports returns every stored incident report, skipping entries that
// no longer parse.
func (s *Store) ListReports(ctx context.Context) ([]domain.IncidentReport, error) {
	raw, err := s.rdb.HGetAll(ctx, reportsKey).Result()
	if err != nil {
		return nil, err
	}

	reports := make([]domain.IncidentReport, 0, len(raw))
	for id, value := range raw {
		var r domain.IncidentReport
		if err := json.Unmarshal([]byte(value), &r); err != nil {
			s.logger.Warn("skipping malformed report", "report", id, "error", err)
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}
