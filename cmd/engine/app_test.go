package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Should bootstrap config into the data dir and apply flags", func(t *testing.T) {
		dir := t.TempDir()
		cfg, path, err := loadConfig(&rootFlags{dataDir: dir, logLevel: "debug", logJSON: true})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "config.yml"), path)
		assert.FileExists(t, path)
		assert.Equal(t, dir, cfg.App.DataDir)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.JSON)
	})

	t.Run("Should overlay companies.yml next to the config", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "companies.yml"),
			[]byte("sources:\n  smarthirepro:\n    for: [leapfrog]\n"), 0o644))
		cfg, _, err := loadConfig(&rootFlags{dataDir: dir})
		require.NoError(t, err)
		assert.Equal(t, []string{"leapfrog"}, cfg.Sources.SmartHirePro.For)
	})
}

func TestBootstrap(t *testing.T) {
	t.Run("Should open and migrate the sqlite store", func(t *testing.T) {
		dir := t.TempDir()
		a, err := bootstrap(context.Background(), &rootFlags{dataDir: dir, logLevel: "error"})
		require.NoError(t, err)
		defer a.Close()

		assert.FileExists(t, filepath.Join(dir, "jobsync.db"))
		n, err := a.db.Count(context.Background(), "jobs")
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NotNil(t, a.newRunner(nil))
	})

	t.Run("Should reject an invalid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte("app:\n  port: -1\n"), 0o644))
		_, err := bootstrap(context.Background(), &rootFlags{configPath: path, dataDir: dir, logLevel: "error"})
		require.ErrorContains(t, err, "app.port")
	})
}
