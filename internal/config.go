package internal

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/metadata"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config is the process configuration read from config/config.yaml. User
// settings such as the notes folder live in their own document at
// Settings.Path.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Database DatabaseConfig    `yaml:"database"`
	Settings SettingsConfig    `yaml:"settings"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate checks every section and names the first one that fails.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    validation.Validatable
	}{
		{"app", &c.App},
		{"database", &c.Database},
		{"settings", &c.Settings},
		{"auth", &c.Auth},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// ApplicationConfig holds the logger level and the HTTP listener.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate implements validation.Validatable.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig is the REST listener. An empty Host listens on all interfaces.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns host:port for http.Server.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate implements validation.Validatable.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DatabaseConfig locates the SQLite metadata file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// Zero means metadata.DefaultMaxOpenConns.
	MaxOpenConns int `yaml:"max_open_conns"`
}

// Validate implements validation.Validatable.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MaxOpenConns, validation.Min(0), validation.Max(64)),
	)
}

// SettingsConfig locates the user settings document.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// Validate implements validation.Validatable.
func (c *SettingsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig guards the /api routes. In token mode every request must carry
// the static bearer Token; an empty Mode means disabled.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate normalizes an empty Mode and requires a Token in token mode.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(AuthModeDisabled, AuthModeToken)),
		validation.Field(&c.Token, validation.When(c.Mode == AuthModeToken, validation.Required)),
	)
}

// AuthEnabled reports whether bearer tokens are checked.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns the configuration used for keys the file omits.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP:     HTTPConfig{Port: 8080},
		},
		Database: DatabaseConfig{
			Path:         "./quire.db",
			MaxOpenConns: metadata.DefaultMaxOpenConns,
		},
		Settings: SettingsConfig{Path: "./settings.yaml"},
		Auth:     AuthConfig{Mode: AuthModeDisabled},
	}
}
