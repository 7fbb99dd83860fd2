package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotnamer/internal/config"
	"shotnamer/internal/daemon"
	"shotnamer/internal/logging"
	"shotnamer/internal/pipeline"
)

type fixedCaptioner string

func (c fixedCaptioner) Caption(context.Context, string) (string, error) { return string(c), nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Watch.Dir = filepath.Join(base, "shots")
	cfg.Watch.SettleDelayMS = 0
	cfg.Paths.StateDir = filepath.Join(base, "state")
	require.NoError(t, os.MkdirAll(cfg.Watch.Dir, 0o755))
	return &cfg
}

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	p := pipeline.New(pipeline.OptionsFromConfig(cfg), fixedCaptioner("Weekly Metrics"), logging.NewNop())
	d, err := daemon.New(cfg, p, logging.NewNop())
	require.NoError(t, err)
	return d
}

func TestDaemonRenamesNewScreenshots(t *testing.T) {
	cfg := testConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, d.Start(ctx))
	t.Cleanup(d.Stop)

	status := d.Status()
	assert.True(t, status.Running)
	assert.Equal(t, cfg.Watch.Dir, status.WatchDir)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Watch.Dir, "Screenshot 1.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Watch.Dir, "notes.png"), []byte("x"), 0o644))

	target := filepath.Join(cfg.Watch.Dir, "weekly_metrics.png")
	assert.Eventually(t, func() bool {
		_, err := os.Stat(target)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.FileExists(t, filepath.Join(cfg.Watch.Dir, "notes.png"))
}

func TestDaemonLockIsExclusivePerDirectory(t *testing.T) {
	cfg := testConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, first.Start(ctx))
	err := second.Start(ctx)
	assert.True(t, errors.Is(err, daemon.ErrAlreadyRunning), "got %v", err)

	first.Stop()
	assert.False(t, first.Status().Running)

	require.NoError(t, second.Start(ctx))
	second.Stop()
}

func TestDaemonStartTwiceFails(t *testing.T) {
	cfg := testConfig(t)
	d := newDaemon(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, d.Start(ctx))
	defer d.Stop()
	assert.Error(t, d.Start(ctx))
}

func TestDaemonMissingWatchDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Watch.Dir = filepath.Join(t.TempDir(), "missing")
	d := newDaemon(t, cfg)

	require.Error(t, d.Start(context.Background()))
	assert.False(t, d.Status().Running)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	d := newDaemon(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	require.Eventually(t, func() bool { return d.Status().Running }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.False(t, d.Status().Running)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := daemon.New(nil, nil, nil)
	assert.Error(t, err)
}
