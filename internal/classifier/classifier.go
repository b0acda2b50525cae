// Package classifier bridges to the external fire-risk inference process.
// The model runs out of process: input rows go in as JSON on stdin, one
// prediction per row comes back as JSON on stdout.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

// Runner invokes the classifier command once per dataset. Each call is an
// isolated process; there is no long-lived worker to keep healthy.
type Runner struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Runner for the given command line (program plus arguments).
func New(command []string, timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{command: command, timeout: timeout, logger: logger}
}

// Predict classifies every input row. The whole batch fails on a non-zero
// exit or unparseable output; partial classifier output is never stored.
func (r *Runner) Predict(ctx context.Context, rows []map[string]any) ([]domain.Prediction, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	input, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encoding classifier input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("classifier timed out after %s", r.timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("classifier failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("classifier failed: %w", err)
	}

	var predictions []domain.Prediction
	if err := json.Unmarshal(stdout.Bytes(), &predictions); err != nil {
		return nil, fmt.Errorf("decoding classifier output: %w", err)
	}
	for i, p := range predictions {
		if p.Prediction != 0 && p.Prediction != 1 {
			return nil, fmt.Errorf("classifier output row %d: prediction %d is not binary", i, p.Prediction)
		}
	}

	r.logger.Info("classifier run complete",
		"rows", len(rows),
		"predictions", len(predictions),
		"duration", time.Since(start),
	)
	return predictions, nil
}
