package hazard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPSource implements Source against the prediction API service
// (GET /api/scenarios, GET /api/scenario/{name}).
type HTTPSource struct {
	client *resty.Client
	logger *slog.Logger
}

// NewHTTPSource creates a hazard source client for the given API base URL.
func NewHTTPSource(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HTTPSource{client: client, logger: logger}
}

// Scenarios fetches the list of scenario names.
func (s *HTTPSource) Scenarios(ctx context.Context) ([]string, error) {
	resp, err := s.client.R().SetContext(ctx).Get("/api/scenarios")
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	if resp.IsError() {
		return nil, &FetchError{Err: fmt.Errorf("scenario list: status %d", resp.StatusCode())}
	}

	var body struct {
		Scenarios []string `json:"scenarios"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("decode scenario list: %w", err)}
	}
	return body.Scenarios, nil
}

// Load fetches a scenario dataset and normalizes it into a Snapshot.
func (s *HTTPSource) Load(ctx context.Context, scenario string) (*Snapshot, error) {
	resp, err := s.client.R().SetContext(ctx).
		Get("/api/scenario/" + url.PathEscape(scenario))
	if err != nil {
		return nil, &FetchError{Scenario: scenario, Err: err}
	}
	if resp.IsError() {
		return nil, &FetchError{Scenario: scenario, Err: fmt.Errorf("status %d", resp.StatusCode())}
	}

	var docs []map[string]any
	if err := json.Unmarshal(resp.Body(), &docs); err != nil {
		return nil, &FetchError{Scenario: scenario, Err: fmt.Errorf("decode dataset: %w", err)}
	}

	snap := NewSnapshot(scenario, docs)
	if snap.Dropped > 0 {
		s.logger.Warn("dropped unparseable hazard points",
			"scenario", scenario,
			"dropped", snap.Dropped,
			"kept", len(snap.Points),
		)
	}

	s.logger.Info("hazard scenario loaded",
		"scenario", scenario,
		"points", len(snap.Points),
		"hazardous", len(snap.Hazardous),
	)
	return snap, nil
}
