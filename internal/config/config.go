package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	History HistoryConfig `mapstructure:"history"`
	UI      UIConfig      `mapstructure:"ui"`
	Log     LogConfig     `mapstructure:"log"`
}

// BackendConfig locates the policy QA service.
type BackendConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	UploadPath string        `mapstructure:"upload_path"`
	QueryPath  string        `mapstructure:"query_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// HistoryConfig holds sqlite settings for the local query history.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	PickerDir string `mapstructure:"picker_dir"`
}

// LogConfig controls the slog sink.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

const (
	DefaultBaseURL    = "http://localhost:8000"
	DefaultUploadPath = "/upload-pdf/"
	DefaultQueryPath  = "/process-query/"
	DefaultTimeout    = 60 * time.Second
)

// Load reads configuration from file and env. Env var overrides use prefix POLICYQA_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("POLICYQA_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "policyqa"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("POLICYQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// a missing default config is fine; an explicit path must be readable
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		return Config{}, fmt.Errorf("backend.base_url is required")
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = DefaultTimeout
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	home := os.Getenv("HOME")
	v.SetDefault("backend.base_url", DefaultBaseURL)
	v.SetDefault("backend.upload_path", DefaultUploadPath)
	v.SetDefault("backend.query_path", DefaultQueryPath)
	v.SetDefault("backend.timeout", DefaultTimeout)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", filepath.Join(home, ".local", "share", "policyqa", "history.db"))
	v.SetDefault("ui.picker_dir", ".")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "policyqa", "policyqa.log"))
}

// Path is where Save writes: $POLICYQA_CONFIG or the default location.
func Path() string {
	if p := os.Getenv("POLICYQA_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "policyqa", "config.toml")
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("backend.base_url", cfg.Backend.BaseURL)
	v.Set("backend.upload_path", cfg.Backend.UploadPath)
	v.Set("backend.query_path", cfg.Backend.QueryPath)
	v.Set("backend.timeout", cfg.Backend.Timeout.String())
	v.Set("history.enabled", cfg.History.Enabled)
	v.Set("history.path", cfg.History.Path)
	v.Set("ui.picker_dir", cfg.UI.PickerDir)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.path", cfg.Log.Path)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Endpoint joins the base URL with a configured path.
func (b BackendConfig) Endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return b.BaseURL + path
}
