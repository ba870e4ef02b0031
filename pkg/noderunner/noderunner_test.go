package noderunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureExecutableChmodsScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "start.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\ntrue\n"), 0o644))

	require.NoError(t, EnsureExecutable(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111)
}

func TestRestartSequenceCallsStopThenStart(t *testing.T) {
	origQuiescence := Quiescence
	Quiescence = 10 * time.Millisecond
	defer func() { Quiescence = origQuiescence }()

	var order []string
	stop := func(ctx context.Context) error { order = append(order, "stop"); return nil }
	start := func(ctx context.Context) error { order = append(order, "start"); return nil }

	err := restartSequence(context.Background(), stop, start)
	require.NoError(t, err)
	assert.Equal(t, []string{"stop", "start"}, order)
}

func TestGenerateScriptsWritesExecutableFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := ScriptNodeRunnerConfig{
		WorkerName:      "node-0",
		WorkDir:         dir,
		StartScript:     filepath.Join(dir, "start.sh"),
		StopScript:      filepath.Join(dir, "stop.sh"),
		LivenessPattern: "node-0-config",
		LogPath:         filepath.Join(dir, "node.log"),
		NodeBinary:      "/usr/local/bin/node",
		ConfigPath:      filepath.Join(dir, "config.ini"),
		GenerateScripts: true,
	}
	runner, err := NewScriptNodeRunner(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.LogPath, runner.PanicLogPath())

	for _, p := range []string{cfg.StartScript, cfg.StopScript} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&0o111)
	}
}
