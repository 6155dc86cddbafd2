package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "sbawk31qvbdug7ikco", cfg.Provider.ClientKey)
	assert.Equal(t, "user.info.basic", cfg.Provider.Scope)
	assert.Equal(t, "https://www.tiktok.com/v2/auth/authorize/", cfg.Provider.AuthorizeURL)
	assert.Empty(t, cfg.Provider.RedirectURI)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.DevURL)
	assert.Equal(t, "https://emmanueltech.store", cfg.Backend.ProdURL)
	assert.Len(t, cfg.Backend.KnownHosts, 2)
	assert.Equal(t, 5*time.Second, cfg.Backend.ProbeTimeout.Duration)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.PollInterval.Duration)
	assert.False(t, cfg.IsProd())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"http_port": 8081,
		"environment": "production",
		"backend": {
			"dev_url": "http://127.0.0.1:9000",
			"prod_url": "https://backend.example.com",
			"known_hosts": ["https://backend.example.com", "https://api.backend.example.com"],
			"probe_timeout": "2s"
		},
		"scheduler": {
			"poll_interval": "10s",
			"num_workers": 4
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.HTTPPort)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, "http://127.0.0.1:9000", cfg.Backend.DevURL)
	assert.Equal(t, 2*time.Second, cfg.Backend.ProbeTimeout.Duration)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.PollInterval.Duration)
	assert.Equal(t, 4, cfg.Scheduler.NumWorkers)
	// Untouched fields keep their defaults.
	assert.Equal(t, "sbawk31qvbdug7ikco", cfg.Provider.ClientKey)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TIKTOK_CLIENT_KEY", "envkey123")
	t.Setenv("HTTP_PORT", "4000")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PROBE_TIMEOUT", "750ms")
	t.Setenv("DB_PATH", "/tmp/env.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "envkey123", cfg.Provider.ClientKey)
	assert.Equal(t, 4000, cfg.HTTPPort)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, 750*time.Millisecond, cfg.Backend.ProbeTimeout.Duration)
	assert.Equal(t, "/tmp/env.db", cfg.DBPath)
}

func TestLoadInvalidEnvOverride(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-port")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{
			name:   "bad environment",
			mutate: func(cfg *Config) { cfg.Environment = "staging" },
		},
		{
			name:   "bad log level",
			mutate: func(cfg *Config) { cfg.LogLevel = "verbose" },
		},
		{
			name:   "missing client key",
			mutate: func(cfg *Config) { cfg.Provider.ClientKey = "" },
		},
		{
			name:   "wrong known host count",
			mutate: func(cfg *Config) { cfg.Backend.KnownHosts = []string{"https://only.example"} },
		},
		{
			name:   "probe timeout too small",
			mutate: func(cfg *Config) { cfg.Backend.ProbeTimeout = Duration{time.Millisecond} },
		},
		{
			name:   "no workers",
			mutate: func(cfg *Config) { cfg.Scheduler.NumWorkers = 0 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			data, err := json.Marshal(cfg)
			require.NoError(t, err)
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, data, 0o600))

			_, err = Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration)

	require.NoError(t, json.Unmarshal([]byte(`5000000000`), &d))
	assert.Equal(t, 5*time.Second, d.Duration)

	assert.Error(t, json.Unmarshal([]byte(`"banana"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}
