package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all client configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	DevServer DevServerConfig `mapstructure:"devserver"`

	// ExamID scopes practice sessions on the backend.
	ExamID string `mapstructure:"exam_id"`

	// Offline swaps the HTTP backend for the in-process fake.
	Offline bool `mapstructure:"offline"`
}

// APIConfig configures the backend session protocol.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Key is sent as the apikey header alongside the bearer token.
	Key string `mapstructure:"key"`
	// Timeout bounds a single request. Default: 15s.
	Timeout time.Duration `mapstructure:"timeout"`
	// EndAttempts is how many times practice-end is tried before giving up.
	EndAttempts int `mapstructure:"end_attempts"`
}

// AuthConfig configures the identity token source. A refresh token with a
// token URL takes precedence over a static access token.
type AuthConfig struct {
	Token        string `mapstructure:"token"`
	TokenURL     string `mapstructure:"token_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	// Console mirrors log output to stderr.
	Console bool `mapstructure:"console"`
}

// DevServerConfig configures the local development backend.
type DevServerConfig struct {
	Addr   string `mapstructure:"addr"`
	Secret string `mapstructure:"secret"`
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit config file. When empty, config.yaml is
	// looked up in DataDir.
	ConfigFile string
	// DataDir is the application data directory.
	DataDir string
	// EnvFile is a dotenv file loaded before reading the environment.
	// Missing files are ignored. Default: ".env".
	EnvFile string
}

// envBindings maps config keys to their short environment variable names.
var envBindings = map[string]string{
	"api.base_url":       "EXAMQUEST_API_URL",
	"api.key":            "EXAMQUEST_API_KEY",
	"api.timeout":        "EXAMQUEST_TIMEOUT",
	"auth.token":         "EXAMQUEST_TOKEN",
	"auth.refresh_token": "EXAMQUEST_REFRESH_TOKEN",
	"exam_id":            "EXAMQUEST_EXAM_ID",
	"offline":            "EXAMQUEST_OFFLINE",
	"log.file":           "EXAMQUEST_LOG_FILE",
	"log.level":          "EXAMQUEST_LOG_LEVEL",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(dataDir string) Config {
	return Config{
		API: APIConfig{
			Timeout:     15 * time.Second,
			EndAttempts: 2,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dataDir, "logs", "examquest.log"),
		},
		DevServer: DevServerConfig{
			Addr:   "127.0.0.1:8787",
			Secret: "examquest-dev-secret",
		},
		ExamID: "general",
	}
}

// Load reads configuration from defaults, an optional config file, a dotenv
// file and the environment, in increasing priority.
func Load(opts LoadOptions) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig(opts.DataDir))

	v.SetEnvPrefix("EXAMQUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if opts.DataDir != "" {
			v.AddConfigPath(opts.DataDir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.key", d.API.Key)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.end_attempts", d.API.EndAttempts)
	v.SetDefault("auth.token", d.Auth.Token)
	v.SetDefault("auth.token_url", d.Auth.TokenURL)
	v.SetDefault("auth.client_id", d.Auth.ClientID)
	v.SetDefault("auth.client_secret", d.Auth.ClientSecret)
	v.SetDefault("auth.refresh_token", d.Auth.RefreshToken)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("devserver.addr", d.DevServer.Addr)
	v.SetDefault("devserver.secret", d.DevServer.Secret)
	v.SetDefault("exam_id", d.ExamID)
	v.SetDefault("offline", d.Offline)
}

// Validate checks that an online client has a backend to talk to.
func (c Config) Validate() error {
	if c.Offline {
		return nil
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("EXAMQUEST_API_URL is required unless --offline is set")
	}
	if c.Auth.Token == "" && c.Auth.RefreshToken == "" {
		return fmt.Errorf("EXAMQUEST_TOKEN or EXAMQUEST_REFRESH_TOKEN is required unless --offline is set")
	}
	if c.Auth.RefreshToken != "" && c.Auth.TokenURL == "" {
		return fmt.Errorf("auth.token_url is required with a refresh token")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	return nil
}
