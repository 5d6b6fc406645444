package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(LoadOptions{DataDir: dir, EnvFile: filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2, cfg.API.EndAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "logs", "examquest.log"), cfg.Log.File)
	assert.Equal(t, "general", cfg.ExamID)
	assert.False(t, cfg.Offline)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EXAMQUEST_API_URL", "https://api.example.test")
	t.Setenv("EXAMQUEST_TOKEN", "tok")
	t.Setenv("EXAMQUEST_TIMEOUT", "3s")
	t.Setenv("EXAMQUEST_OFFLINE", "true")
	t.Setenv("EXAMQUEST_API_END_ATTEMPTS", "5")

	cfg, err := Load(LoadOptions{DataDir: dir, EnvFile: filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.test", cfg.API.BaseURL)
	assert.Equal(t, "tok", cfg.Auth.Token)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5, cfg.API.EndAttempts)
	assert.True(t, cfg.Offline)
}

func TestLoad_ConfigFileAndDotenv(t *testing.T) {
	dir := t.TempDir()
	yaml := "api:\n  base_url: https://from-file.test\nexam_id: jee\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("EXAMQUEST_EXAM_ID=neet\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("EXAMQUEST_EXAM_ID") })

	cfg, err := Load(LoadOptions{DataDir: dir, EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, "https://from-file.test", cfg.API.BaseURL)
	assert.Equal(t, "neet", cfg.ExamID, "environment beats the config file")
}

func TestLoad_ExplicitConfigFileMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(LoadOptions{
		DataDir:    dir,
		ConfigFile: filepath.Join(dir, "nope.yaml"),
		EnvFile:    filepath.Join(dir, "missing.env"),
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := DefaultConfig(t.TempDir())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"offline needs nothing", func(c *Config) { c.Offline = true }, false},
		{"missing url", func(c *Config) { c.Auth.Token = "t" }, true},
		{"missing token", func(c *Config) { c.API.BaseURL = "http://x" }, true},
		{"static token", func(c *Config) { c.API.BaseURL = "http://x"; c.Auth.Token = "t" }, false},
		{"refresh without url", func(c *Config) { c.API.BaseURL = "http://x"; c.Auth.RefreshToken = "r" }, true},
		{"bad timeout", func(c *Config) { c.API.BaseURL = "http://x"; c.Auth.Token = "t"; c.API.Timeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
