package files

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// SweepResult summarizes one sweep.
type SweepResult struct {
	Removed int
	Bytes   int64
}

// Janitor removes files older than a retention period from a fixed set of
// directories.
type Janitor struct {
	dirs      []string
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewJanitor creates a janitor for dirs. Empty directory names are ignored.
func NewJanitor(retention time.Duration, logger *slog.Logger, dirs ...string) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Janitor{
		retention: retention,
		logger:    logger.With(slog.String("component", "janitor")),
		now:       time.Now,
	}
	for _, dir := range dirs {
		if dir != "" {
			j.dirs = append(j.dirs, dir)
		}
	}
	return j
}

// Sweep removes every stale file once. Failures on single files are
// collected and do not stop the sweep.
func (j *Janitor) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	if j.retention <= 0 {
		return result, nil
	}
	cutoff := j.now().Add(-j.retention)

	var errs []error
	for _, dir := range j.dirs {
		found, err := Discover(dir, "")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, file := range OlderThan(found, cutoff) {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("failed to remove %s: %w", file.Path, err))
				continue
			}
			result.Removed++
			result.Bytes += file.Size
		}
	}

	if result.Removed > 0 {
		j.logger.InfoContext(ctx, "Removed stale files",
			slog.Int("count", result.Removed),
			slog.Int64("bytes", result.Bytes),
			slog.Duration("retention", j.retention))
	}
	return result, errors.Join(errs...)
}

// Run sweeps immediately and then every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	if j.retention <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
			j.logger.WarnContext(ctx, "Sweep failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
