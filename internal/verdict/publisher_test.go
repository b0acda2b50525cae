package verdict

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
	"github.com/shadan-pk/wildfire-alert-system/internal/observability"
)

type mockStore struct {
	merged []domain.SafetyVerdict
	err    error
}

func (m *mockStore) Merge(_ context.Context, v domain.SafetyVerdict) error {
	if m.err != nil {
		return m.err
	}
	m.merged = append(m.merged, v)
	return nil
}

type mockAlertSink struct {
	published []domain.SafetyVerdict
	err       error
}

func (m *mockAlertSink) Publish(_ context.Context, v domain.SafetyVerdict) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, v)
	return nil
}

func newTestPublisher(store Store, alerts AlertSink) *Publisher {
	return NewPublisher(store, alerts, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestPublisher_WritesChangedVerdicts(t *testing.T) {
	store := &mockStore{}
	p := newTestPublisher(store, nil)

	safe := domain.SafetyVerdict{EntityID: "user-1", Safe: true, MinDistance: math.Inf(1)}
	unsafe := domain.SafetyVerdict{EntityID: "user-1", Safe: false, MinDistance: 0.01}

	assert.True(t, p.Publish(context.Background(), safe))
	assert.True(t, p.Publish(context.Background(), unsafe))
	assert.True(t, p.Publish(context.Background(), safe))

	require.Len(t, store.merged, 3)
	if diff := cmp.Diff([]domain.SafetyVerdict{safe, unsafe, safe}, store.merged); diff != "" {
		t.Errorf("merged verdicts mismatch (-want +got):\n%s", diff)
	}
}

func TestPublisher_SuppressesUnchangedVerdicts(t *testing.T) {
	store := &mockStore{}
	p := newTestPublisher(store, nil)

	v := domain.SafetyVerdict{EntityID: "user-1", Safe: true, MinDistance: math.Inf(1)}

	assert.True(t, p.Publish(context.Background(), v))
	assert.False(t, p.Publish(context.Background(), v))
	assert.False(t, p.Publish(context.Background(), v))

	assert.Len(t, store.merged, 1)
}

func TestPublisher_InfiniteDistancesCompareEqual(t *testing.T) {
	store := &mockStore{}
	p := newTestPublisher(store, nil)

	assert.True(t, p.Publish(context.Background(), domain.SafetyVerdict{EntityID: "user-1", Safe: true, MinDistance: math.Inf(1)}))
	// A second pass with no hazardous points produces +Inf again; no write.
	assert.False(t, p.Publish(context.Background(), domain.SafetyVerdict{EntityID: "user-1", Safe: true, MinDistance: math.Inf(1)}))

	assert.Len(t, store.merged, 1)
}

func TestPublisher_WriteFailureDoesNotRecordVerdict(t *testing.T) {
	store := &mockStore{err: errors.New("redis down")}
	p := newTestPublisher(store, nil)

	v := domain.SafetyVerdict{EntityID: "user-1", Safe: false, MinDistance: 0.01}
	assert.False(t, p.Publish(context.Background(), v))

	// Store recovers: the same verdict must be retried, not suppressed.
	store.err = nil
	assert.True(t, p.Publish(context.Background(), v))
	assert.Len(t, store.merged, 1)
}

func TestPublisher_WriteFailureIsolatedPerEntity(t *testing.T) {
	store := &mockStore{err: errors.New("redis down")}
	p := newTestPublisher(store, nil)

	assert.False(t, p.Publish(context.Background(), domain.SafetyVerdict{EntityID: "user-1", Safe: true, MinDistance: math.Inf(1)}))

	store.err = nil
	assert.True(t, p.Publish(context.Background(), domain.SafetyVerdict{EntityID: "user-2", Safe: true, MinDistance: math.Inf(1)}))
}

func TestPublisher_ResetRepublishesEverything(t *testing.T) {
	store := &mockStore{}
	p := newTestPublisher(store, nil)

	v := domain.SafetyVerdict{EntityID: "user-1", Safe: true, MinDistance: math.Inf(1)}
	assert.True(t, p.Publish(context.Background(), v))
	assert.False(t, p.Publish(context.Background(), v))

	p.Reset()

	assert.True(t, p.Publish(context.Background(), v))
	assert.Len(t, store.merged, 2)
}

func TestPublisher_AlertSinkReceivesWrites(t *testing.T) {
	store := &mockStore{}
	sink := &mockAlertSink{}
	p := newTestPublisher(store, sink)

	v := domain.SafetyVerdict{EntityID: "user-1", Safe: false, MinDistance: 0.02}
	assert.True(t, p.Publish(context.Background(), v))
	assert.False(t, p.Publish(context.Background(), v))

	require.Len(t, sink.published, 1)
	assert.Equal(t, v, sink.published[0])
}

func TestPublisher_AlertFailureDoesNotFailPublish(t *testing.T) {
	store := &mockStore{}
	sink := &mockAlertSink{err: errors.New("kafka unreachable")}
	p := newTestPublisher(store, sink)

	v := domain.SafetyVerdict{EntityID: "user-1", Safe: false, MinDistance: 0.02}
	assert.True(t, p.Publish(context.Background(), v))
	assert.Len(t, store.merged, 1)

	// Verdict was recorded despite the alert failure; no rewrite.
	assert.False(t, p.Publish(context.Background(), v))
}
