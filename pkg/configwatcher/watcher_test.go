package configwatcher

import (
	"context"
	"lms_backend/internal/config"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchConfigReloads(t *testing.T) {
	debounce = 50 * time.Millisecond
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(replaceLevel("info")), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, file, func(cfg *config.Config) { reloaded <- cfg })
	}()

	// 等待 watcher 就绪后再写入
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte(replaceLevel("debug")), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "debug", cfg.Log.Level)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func replaceLevel(level string) string {
	return "database:\n  driver: sqlite\nstorage:\n  type: minio\nlog:\n  level: " + level + "\n"
}
