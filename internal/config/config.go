// Package config provides application configuration management.
// Process settings come from environment variables; application identity,
// mode and database credentials come from a YAML file.
package config

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
)

// ExpectedAppName is the value AppConfig/Name must carry.
const ExpectedAppName = "FlaskBasicApp"

// Mode selects which per-mode database block is used.
type Mode string

// Supported configuration modes.
const (
	ModeDev  Mode = "DEV"
	ModeTest Mode = "TEST"
	ModeProd Mode = "PROD"
)

// Modes lists every accepted Mode.
var Modes = []Mode{ModeDev, ModeTest, ModeProd}

// ParseMode validates s against Modes.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected one of %v)", ErrInvalidMode, s, Modes)
}

// YAML paths.
const (
	pathAppName     = "AppConfig/Name"
	pathConfigMode  = "AppConfig/ConfigMode"
	pathDatabaseApp = "Database-Connections/Postgres/APP"
	pathSampleData  = "SampleData/Dependents"
)

// DatabaseConfig holds the per-mode connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// URL assembles a postgres connection string.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// SampleDependent is a dependents row created at startup when no row
// with the same name and age exists.
type SampleDependent struct {
	Name string
	Age  int
}

// Config holds all application configuration.
// It is built once by Load and passed to the components that need it.
type Config struct {
	AppPort int `env:"APP_PORT" envDefault:"8080"`

	// YAML location
	ConfigDir  string `env:"APP_CONFIG_DIR" envDefault:"YAML_CONFIG"`
	YAMLConfig string `env:"APP_YAML_CONFIG" envDefault:"app_config.yaml"`

	// Overrides the mode declared in the YAML file when set.
	ConfigModeOverride string `env:"APP_CONFIG_MODE"`

	// Overrides the URL assembled from the YAML database block when set.
	DatabaseURLOverride string `env:"DATABASE_URL"`
	AutoMigrate         bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	// Header token auth for /api/v1. Empty token means open access.
	AuthToken  string `env:"API_AUTH_TOKEN"`
	AuthHeader string `env:"API_AUTH_HEADER" envDefault:"Authorization"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	MetricsEnabled     bool     `env:"METRICS_ENABLED" envDefault:"true"`
	MaxRequestBodySize int64    `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Resolved from YAML by Load.
	AppName  string
	Mode     Mode
	Database DatabaseConfig
	Samples  []SampleDependent
}

// IsDevelopment returns true if running in DEV mode.
func (c *Config) IsDevelopment() bool {
	return c.Mode == ModeDev
}

// IsProduction returns true if running in PROD mode.
func (c *Config) IsProduction() bool {
	return c.Mode == ModeProd
}

// YAMLPath returns the location of the YAML config file.
func (c *Config) YAMLPath() string {
	return filepath.Join(c.ConfigDir, c.YAMLConfig)
}

// DatabaseURL returns the connection string, preferring DATABASE_URL.
func (c *Config) DatabaseURL() string {
	if c.DatabaseURLOverride != "" {
		return c.DatabaseURLOverride
	}
	return c.Database.URL()
}

// Load parses environment variables, reads the YAML file they point at
// and returns a resolved Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	src, err := LoadSource(cfg.YAMLPath())
	if err != nil {
		return nil, err
	}

	if err := cfg.Resolve(src); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve fills the YAML-backed fields of c from src.
func (c *Config) Resolve(src *Source) error {
	name, err := src.String(pathAppName)
	if err != nil {
		return err
	}
	if name != ExpectedAppName {
		return &Error{Source: "yaml", Key: pathAppName, Err: fmt.Errorf("%w: got %q, want %q", ErrAppNameMismatch, name, ExpectedAppName)}
	}
	c.AppName = name

	rawMode := c.ConfigModeOverride
	modeSource := "env"
	if rawMode == "" {
		rawMode, err = src.String(pathConfigMode)
		if err != nil {
			return err
		}
		modeSource = "yaml"
	}

	mode, err := ParseMode(rawMode)
	if err != nil {
		return &Error{Source: modeSource, Key: pathConfigMode, Err: err}
	}
	c.Mode = mode

	db, err := resolveDatabase(src, mode)
	if err != nil {
		return err
	}
	c.Database = db

	samples, err := resolveSamples(src)
	if err != nil {
		return err
	}
	c.Samples = samples

	return nil
}

func resolveDatabase(src *Source, mode Mode) (DatabaseConfig, error) {
	base := pathDatabaseApp + "/" + string(mode) + "/"

	var db DatabaseConfig
	for _, field := range []struct {
		key string
		dst *string
	}{
		{"DB_HOST", &db.Host},
		{"DB_USER", &db.User},
		{"DB_PASS", &db.Password},
		{"DB_NAME", &db.Name},
	} {
		value, err := src.String(base + field.key)
		if err != nil {
			return DatabaseConfig{}, err
		}
		*field.dst = value
	}

	port, err := strconv.Atoi(src.StringOr(base+"DB_PORT", "5432"))
	if err != nil {
		return DatabaseConfig{}, &Error{Source: "yaml", Key: base + "DB_PORT", Err: err}
	}
	db.Port = port
	db.SSLMode = src.StringOr(base+"DB_SSLMODE", "disable")

	return db, nil
}

// resolveSamples reads the optional SampleData/Dependents list. Each item
// carries name_2 and age_2.
func resolveSamples(src *Source) ([]SampleDependent, error) {
	raw := src.GetOr(pathSampleData, nil)
	if raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, &Error{Source: "yaml", Key: pathSampleData, Err: fmt.Errorf("expected a list, got %T", raw)}
	}

	samples := make([]SampleDependent, 0, len(items))
	for i, item := range items {
		key := fmt.Sprintf("%s[%d]", pathSampleData, i)

		fields, ok := item.(map[string]any)
		if !ok {
			return nil, &Error{Source: "yaml", Key: key, Err: fmt.Errorf("expected a mapping, got %T", item)}
		}

		name, ok := fields["name_2"].(string)
		if !ok || name == "" {
			return nil, &Error{Source: "yaml", Key: key + "/name_2", Err: ErrMissingKey}
		}
		age, ok := fields["age_2"].(int)
		if !ok {
			return nil, &Error{Source: "yaml", Key: key + "/age_2", Err: fmt.Errorf("expected an integer, got %T", fields["age_2"])}
		}

		samples = append(samples, SampleDependent{Name: name, Age: age})
	}

	return samples, nil
}
