package classifier

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(command ...string) *Runner {
	return New(command, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunner_PredictParsesOutput(t *testing.T) {
	// cat echoes stdin, so shaping the input rows like classifier output
	// exercises the full round trip without a real model.
	r := newTestRunner("cat")

	predictions, err := r.Predict(context.Background(), []map[string]any{
		{"lat": 11.0400, "lon": 76.2630, "prediction": 1},
		{"lat": 11.1000, "lon": 76.3000, "prediction": 0},
	})

	require.NoError(t, err)
	require.Len(t, predictions, 2)
	assert.Equal(t, 11.0400, predictions[0].Lat)
	assert.Equal(t, 1, predictions[0].Prediction)
	assert.Equal(t, 0, predictions[1].Prediction)
}

func TestRunner_EmptyInputSkipsProcess(t *testing.T) {
	r := newTestRunner("/nonexistent-classifier")

	predictions, err := r.Predict(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, predictions)
}

func TestRunner_NonZeroExitIncludesStderr(t *testing.T) {
	r := newTestRunner("sh", "-c", "echo 'model file missing' >&2; exit 3")

	_, err := r.Predict(context.Background(), []map[string]any{{"lat": 1.0}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model file missing")
}

func TestRunner_MalformedOutputFails(t *testing.T) {
	r := newTestRunner("sh", "-c", "echo 'Traceback (most recent call last)'")

	_, err := r.Predict(context.Background(), []map[string]any{{"lat": 1.0}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding classifier output")
}

func TestRunner_NonBinaryPredictionFails(t *testing.T) {
	r := newTestRunner("cat")

	_, err := r.Predict(context.Background(), []map[string]any{
		{"lat": 11.0400, "lon": 76.2630, "prediction": 7},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not binary")
}

func TestRunner_TimeoutKillsProcess(t *testing.T) {
	r := New([]string{"sleep", "10"}, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	start := time.Now()
	_, err := r.Predict(context.Background(), []map[string]any{{"lat": 1.0}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 2*time.Second)
}
