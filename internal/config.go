package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/halvard/munin/internal/store"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	Chat    ChatConfig        `yaml:"chat"`
	MCP     MCPConfig         `yaml:"mcp"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Chat.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects the entry store backend. The backend is
// resolved once at startup and never switches at runtime.
//
// Global, when true, files every user's entries under one shared
// collection instead of per-user ones.
type StorageConfig struct {
	Backend string           `yaml:"backend"`
	Global  bool             `yaml:"global"`
	SQLite  SQLitePathConfig `yaml:"sqlite"`
	File    FilePathConfig   `yaml:"file"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = store.BackendSQLite
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(store.BackendSQLite, store.BackendFile, store.BackendMemory)),
	); err != nil {
		return err
	}
	switch c.Backend {
	case store.BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("storage: backend is %q but sqlite.path is empty", c.Backend)
		}
	case store.BackendFile:
		if c.File.Path == "" {
			return fmt.Errorf("storage: backend is %q but file.path is empty", c.Backend)
		}
	}
	return nil
}

// SQLitePathConfig holds the SQLite database path.
type SQLitePathConfig struct {
	Path string `yaml:"path"`
}

// FilePathConfig holds the JSON document path for the file backend.
type FilePathConfig struct {
	Path string `yaml:"path"`
}

// Duration wraps time.Duration so YAML values like "24h" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// AuthConfig holds session and user-directory configuration.
//
// Secret signs session tokens and must be set (use the
// MUNIN_AUTH_SECRET environment variable via config expansion).
// UsersFile optionally replaces the built-in demo users.
type AuthConfig struct {
	Secret    string   `yaml:"secret"`
	TTL       Duration `yaml:"ttl"`
	UsersFile string   `yaml:"users_file"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.TTL == 0 {
		c.TTL = Duration(24 * time.Hour)
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Secret, validation.Required, validation.Length(16, 0)),
	); err != nil {
		return err
	}
	if c.TTL.Std() < time.Minute {
		return fmt.Errorf("auth: ttl %s is below one minute", c.TTL.Std())
	}
	return nil
}

// ChatConfig holds the optional chat relay configuration. An empty
// APIKey disables the feature.
type ChatConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Validate validates the chat configuration.
func (c *ChatConfig) Validate() error {
	if c.APIKey == "" {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Model, validation.Required),
	)
}

// MCPConfig configures the stdio MCP server mode.
type MCPConfig struct {
	Username string `yaml:"username"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Backend: store.BackendSQLite,
			SQLite:  SQLitePathConfig{Path: "./munin.db"},
			File:    FilePathConfig{Path: "./munin.json"},
		},
		Auth: AuthConfig{
			TTL: Duration(24 * time.Hour),
		},
		Chat: ChatConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		MCP: MCPConfig{
			Username: "demo",
		},
	}
}
