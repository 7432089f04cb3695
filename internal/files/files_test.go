package files

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlinspector/internal/shared/testutil"
)

func writeAged(t *testing.T, dir, name string, size int, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	testutil.Touch(t, path, age)
	return path
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, dir, "upload-b.csv", 3, time.Minute)
	writeAged(t, dir, "upload-a.xlsx", 5, time.Hour)
	writeAged(t, dir, "notes.txt", 1, 2*time.Hour)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "upload-dir"), 0755))

	all, err := Discover(dir, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "notes.txt", all[0].Name, "oldest first")
	assert.Equal(t, int64(9), TotalSize(all))

	uploads, err := Discover(dir, "upload-*")
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, "upload-a.xlsx", uploads[0].Name)
	assert.Equal(t, filepath.Join(dir, "upload-b.csv"), uploads[1].Path)

	stale := OlderThan(all, time.Now().Add(-30*time.Minute))
	assert.Len(t, stale, 2)

	missing, err := Discover(filepath.Join(dir, "nope"), "")
	assert.NoError(t, err)
	assert.Empty(t, missing)

	_, err = Discover(dir, "[")
	assert.ErrorContains(t, err, "invalid pattern")
}

func TestJanitor_Sweep(t *testing.T) {
	uploads, exports := t.TempDir(), t.TempDir()
	oldUpload := writeAged(t, uploads, "upload-1.csv", 10, 48*time.Hour)
	freshUpload := writeAged(t, uploads, "upload-2.csv", 10, time.Minute)
	oldExport := writeAged(t, exports, "etl_analysis_r1.pdf", 4, 25*time.Hour)

	logger, logs := testutil.NewLogger(t)
	j := NewJanitor(24*time.Hour, logger, uploads, "", exports)

	result, err := j.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Removed: 2, Bytes: 14}, result)
	assert.NoFileExists(t, oldUpload)
	assert.NoFileExists(t, oldExport)
	assert.FileExists(t, freshUpload)

	record, ok := logs.Find(slog.LevelInfo, "Removed stale files")
	require.True(t, ok)
	assert.Equal(t, int64(2), record.Attrs["count"])
	assert.Equal(t, "janitor", record.Attrs["component"])

	result, err = j.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Removed)
	assert.Equal(t, 1, logs.Count(slog.LevelInfo), "quiet when nothing is removed")
}

func TestJanitor_Disabled(t *testing.T) {
	dir := t.TempDir()
	old := writeAged(t, dir, "upload-1.csv", 1, 1000*time.Hour)

	j := NewJanitor(0, nil, dir)
	result, err := j.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Removed)
	assert.FileExists(t, old)

	done := make(chan struct{})
	go func() {
		j.Run(context.Background(), time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when retention is zero")
	}
}

func TestJanitor_Run(t *testing.T) {
	dir := t.TempDir()
	j := NewJanitor(time.Hour, nil, dir)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	path := writeAged(t, dir, "upload-late.csv", 1, 2*time.Hour)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
