package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notebundle/internal/exporter"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config is the full notebundle configuration, one section per YAML key.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Events EventsConfig      `yaml:"events"`
	Export exporter.Settings `yaml:"export"`
}

// Validate checks every section and reports the first failure, prefixed
// with the section name.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    validation.Validatable
	}{
		{"app", &c.App},
		{"vault", &c.Vault},
		{"sqlite", &c.SQLite},
		{"auth", &c.Auth},
		{"events", &c.Events},
		{"export", &c.Export},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// ApplicationConfig covers logging and the HTTP listener.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate checks the HTTP section.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig is where serve listens.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns the listen address. An empty host listens on all interfaces.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig points at the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the location of the link index database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig guards the API. Mode "disabled" (the default) lets every
// request through. Mode "token" requires "Authorization: Bearer <Token>"
// on every /api request.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration. An empty mode becomes
// "disabled".
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
		validation.Field(&c.Token, validation.When(c.Mode == AuthModeToken,
			validation.Required.Error("token is empty while mode is "+AuthModeToken))),
	)
}

// AuthEnabled reports whether /api requires a bearer token.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EventsConfig tunes the server-sent event stream.
type EventsConfig struct {
	// IndexThrottle is the minimum gap between two index.updated events.
	IndexThrottle time.Duration `yaml:"index_throttle"`
	// KeepAlive is how often idle streams get a comment line; zero disables.
	KeepAlive time.Duration `yaml:"keep_alive"`
}

func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IndexThrottle, validation.Min(time.Duration(0))),
		validation.Field(&c.KeepAlive, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a Config with the defaults used when no file
// is present.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP:     HTTPConfig{Port: 8080},
		},
		Vault:  VaultConfig{Path: "./vault"},
		SQLite: SQLiteConfig{Path: "./notebundle.db"},
		Auth:   AuthConfig{Mode: AuthModeDisabled},
		Events: EventsConfig{
			IndexThrottle: 2 * time.Second,
			KeepAlive:     30 * time.Second,
		},
		Export: exporter.DefaultSettings(),
	}
}
