package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every RECIPE_* variable inherited from the environment so
// the tests only see what they set.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "http://localhost:5173", cfg.HTTP.AllowedOrigin)
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeouts.Read)
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeouts.Write)
	assert.Equal(t, 60*time.Second, cfg.HTTP.Timeouts.Idle)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeouts.Shutdown)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "data/recipes.db", cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	// no secret by default, so the defaults alone are not runnable
	assert.Error(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
http:
  port: 9000
  allowedOrigin: https://recipes.example
  timeouts:
    read: 5s
auth:
  jwtSecret: file-secret-0123456789
storage:
  driver: bolt
  path: /tmp/recipes.bolt
`)
	t.Setenv("RECIPE_HTTP_PORT", "9100")
	t.Setenv("RECIPE_AUTH_JWTSECRET", "env-secret-0123456789")
	t.Setenv("RECIPE_LOG_FORMAT", "json")
	t.Setenv("RECIPE_HTTP_TIMEOUTS_IDLE", "2m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTP.Port, "env overrides file")
	assert.Equal(t, "https://recipes.example", cfg.HTTP.AllowedOrigin)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeouts.Read)
	assert.Equal(t, 2*time.Minute, cfg.HTTP.Timeouts.Idle)
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeouts.Write, "unset keys keep defaults")
	assert.Equal(t, "env-secret-0123456789", cfg.Auth.JWTSecret)
	assert.Equal(t, DriverBolt, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/recipes.bolt", cfg.Storage.Path)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PathFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "storage:\n  driver: bolt\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverBolt, cfg.Storage.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.HTTP.Port = 8080
		cfg.Auth.JWTSecret = "0123456789abcdef"
		cfg.Auth.BcryptCost = 12
		cfg.Storage.Driver = DriverSQLite
		cfg.Storage.Path = ":memory:"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bolt driver", func(c *Config) { c.Storage.Driver = DriverBolt }, false},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "0123456789abcde" }, true},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }, true},
		{"port too big", func(c *Config) { c.HTTP.Port = 70000 }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, true},
		{"empty path", func(c *Config) { c.Storage.Path = "" }, true},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCanonicalizeEnvKey(t *testing.T) {
	existing := defaults()

	tests := []struct {
		envKey string
		want   string
	}{
		{"AUTH_JWTSECRET", "auth.jwtSecret"},
		{"AUTH_BCRYPTCOST", "auth.bcryptCost"},
		{"HTTP_ALLOWEDORIGIN", "http.allowedOrigin"},
		{"HTTP_TIMEOUTS_SHUTDOWN", "http.timeouts.shutdown"},
		{"STORAGE_DRIVER", "storage.driver"},
		{"NEW_FEATURE_FLAG", "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalizeEnvKey(tt.envKey, existing))
		})
	}
}
