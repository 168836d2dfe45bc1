package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/sorma/internal/model"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{EnvConfig, EnvDataDir, EnvBackend, EnvAPIKey, EnvOllama} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 50, cfg.Memory.ShortTermLimit)
	assert.Equal(t, 0, cfg.Memory.LongTermLimit)
	assert.Equal(t, 5, cfg.Memory.ContextLimit)
	assert.Equal(t, []string{"cloud", "local"}, cfg.Models.Prefer)
	assert.Equal(t, 12*time.Hour, cfg.Server.SessionTTL)
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Addr())
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_SORMA_KEY", "sk-from-env")
	path := writeConfigFile(t, `
data_dir: /var/lib/sorma
storage:
  backend: json
memory:
  short_term_limit: 20
  long_term_limit: 500
owner:
  name: Chandan
  auth_phrases: ["unlock agent chandan"]
  wake_words: [sorma]
models:
  prefer: [local]
  local:
    model: mistral
    timeout: 90s
  cloud:
    api_key: ${TEST_SORMA_KEY}
server:
  port: 9090
  session_ttl: 30m
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/sorma", cfg.DataDir)
	assert.Equal(t, "json", cfg.Storage.Backend)
	assert.Equal(t, 20, cfg.Memory.ShortTermLimit)
	assert.Equal(t, 500, cfg.Memory.LongTermLimit)
	assert.Equal(t, 5, cfg.Memory.ContextLimit, "unset fields keep defaults")
	assert.Equal(t, "Chandan", cfg.Owner.Name)
	assert.Equal(t, []string{"local"}, cfg.Models.Prefer)
	assert.Equal(t, "mistral", cfg.Models.Local.Model)
	assert.Equal(t, 90*time.Second, cfg.Models.Local.Timeout)
	assert.Equal(t, "sk-from-env", cfg.Models.Cloud.APIKey)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, "/tmp/sorma-env")
	t.Setenv(EnvBackend, "json")
	t.Setenv(EnvAPIKey, "sk-env")
	t.Setenv(EnvOllama, "http://gpu-box:11434")

	cfg, err := Load(writeConfigFile(t, "data_dir: /ignored\nstorage:\n  backend: sqlite\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/sorma-env", cfg.DataDir)
	assert.Equal(t, "json", cfg.Storage.Backend)
	assert.Equal(t, "sk-env", cfg.Models.Cloud.APIKey)
	assert.Equal(t, "http://gpu-box:11434", cfg.Models.Local.URL)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := map[string]string{
		"backend":    "storage:\n  backend: mongo\n",
		"redis addr": "storage:\n  backend: redis\n",
		"short":      "memory:\n  short_term_limit: 0\n",
		"long":       "memory:\n  long_term_limit: -1\n",
		"prefer":     "models:\n  prefer: [gpt]\n",
		"port":       "server:\n  port: 70000\n",
		"level":      "logging:\n  level: loud\n",
		"format":     "logging:\n  format: xml\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfigFile(t, "memory: [not, a, map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestResolve(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	assert.Equal(t, "/explicit.yaml", Resolve("/explicit.yaml"))
	assert.Equal(t, "", Resolve(""))

	t.Setenv(EnvConfig, "/from/env.yaml")
	assert.Equal(t, "/from/env.yaml", Resolve(""))
}

func TestOwnerApplyTo(t *testing.T) {
	assert.Nil(t, OwnerConfig{}.ApplyTo(nil))

	stored := &model.OwnerProfile{Name: "Old", AuthPhrase: "legacy", WakeWords: []string{"hey"}}
	got := OwnerConfig{AuthPhrases: []string{"new phrase"}}.ApplyTo(stored)
	assert.Equal(t, "Old", got.Name)
	assert.Equal(t, []string{"new phrase"}, got.Phrases())
	assert.Equal(t, []string{"hey"}, got.WakeWords)
	assert.Equal(t, "legacy", stored.AuthPhrase, "input is not mutated")

	fresh := OwnerConfig{Name: "Chandan", AuthPhrases: []string{"x"}}.ApplyTo(nil)
	require.NotNil(t, fresh)
	assert.Equal(t, "Chandan", fresh.Name)
}

func TestManagerReload(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "owner:\n  name: First\n")
	mgr, err := NewManager(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, "First", mgr.Get().Owner.Name)

	var seen atomic.Value
	mgr.OnChange(func(c *Config) { seen.Store(c.Owner.Name) })

	require.NoError(t, os.WriteFile(path, []byte("owner:\n  name: Second\n"), 0o644))
	mgr.Reload()
	assert.Equal(t, "Second", mgr.Get().Owner.Name)
	assert.Equal(t, "Second", seen.Load())

	// Invalid file keeps the current config.
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o644))
	mgr.Reload()
	assert.Equal(t, "Second", mgr.Get().Owner.Name)
}

func TestManagerWatch(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "owner:\n  name: Before\n")
	mgr, err := NewManager(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	mgr.debounce = 10 * time.Millisecond

	changed := make(chan string, 4)
	mgr.OnChange(func(c *Config) { changed <- c.Owner.Name })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, mgr.Watch(ctx))
	defer mgr.Close()

	require.NoError(t, os.WriteFile(path, []byte("owner:\n  name: After\n"), 0o644))

	select {
	case name := <-changed:
		assert.Equal(t, "After", name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestManagerWatchWithoutFile(t *testing.T) {
	clearEnv(t)
	mgr, err := NewManager("", nil)
	require.NoError(t, err)
	require.NoError(t, mgr.Watch(context.Background()))
	require.NoError(t, mgr.Close())
}
