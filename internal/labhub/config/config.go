// Package config holds the LabHub gateway configuration. Configuration is
// read from a TOML file with environment overrides for the two upstream
// endpoints (API_BASE for the main backend, LAMBDA_ANALYSIS_URL for the
// analysis service). A missing analysis URL is a warning at load time and a
// per-request failure, never a startup crash.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// SessionConfig holds lab session lifecycle parameters.
type SessionConfig struct {
	InitialTTL      string `toml:"initial_ttl" validate:"required"`      // lifetime granted at session start
	ExtendIncrement string `toml:"extend_increment" validate:"required"` // fixed increment per extend call
	MaxLifetime     string `toml:"max_lifetime" validate:"required"`     // ceiling on total session lifetime
	SweepInterval   string `toml:"sweep_interval"`                       // expiry check period
}

func (s *SessionConfig) GetInitialTTL() time.Duration {
	return mustParseDuration("session.initial_ttl", s.InitialTTL)
}

func (s *SessionConfig) GetExtendIncrement() time.Duration {
	return mustParseDuration("session.extend_increment", s.ExtendIncrement)
}

func (s *SessionConfig) GetMaxLifetime() time.Duration {
	return mustParseDuration("session.max_lifetime", s.MaxLifetime)
}

func (s *SessionConfig) GetSweepInterval() time.Duration {
	if s.SweepInterval == "" {
		return time.Minute
	}
	return mustParseDuration("session.sweep_interval", s.SweepInterval)
}

// BackendConfig holds the main backend connection parameters.
type BackendConfig struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout string `toml:"request_timeout"`
	RetryAttempts  uint   `toml:"retry_attempts"`
}

func (b *BackendConfig) GetRequestTimeout() time.Duration {
	if b.RequestTimeout == "" {
		return 30 * time.Second
	}
	return mustParseDuration("backend.request_timeout", b.RequestTimeout)
}

// AnalysisConfig holds the Lambda analysis service endpoint.
type AnalysisConfig struct {
	URL string `toml:"url"`
}

// AuthConfig holds token validation parameters.
type AuthConfig struct {
	TokenSecret string `toml:"token_secret" validate:"required"` // HS256 shared secret
	ClockSkew   string `toml:"clock_skew"`                       // allowed skew on exp/nbf claims
}

func (a *AuthConfig) GetClockSkew() time.Duration {
	if a.ClockSkew == "" {
		return time.Minute
	}
	return mustParseDuration("auth.clock_skew", a.ClockSkew)
}

// StateConfig holds the client-state store location.
type StateConfig struct {
	Path string `toml:"path"`
}

// ConfigParam holds all configuration parameters for the gateway.
type ConfigParam struct {
	FormatVersion string `toml:"format_version" validate:"required"`

	ServerHostName     string `toml:"server_hostname"`
	ServerPort         string `toml:"server_port" validate:"required"`
	HandleCORS         bool   `toml:"handle_cors"`
	MaxRequestBodySize int64  `toml:"max_request_body_size"`
	RequestTimeout     string `toml:"request_timeout"`

	Backend  BackendConfig  `toml:"backend"`
	Analysis AnalysisConfig `toml:"analysis"`
	Session  SessionConfig  `toml:"session"`
	Auth     AuthConfig     `toml:"auth"`
	State    StateConfig    `toml:"state"`
}

func (c *ConfigParam) GetRequestTimeout() time.Duration {
	if c.RequestTimeout == "" {
		return 60 * time.Second
	}
	return mustParseDuration("request_timeout", c.RequestTimeout)
}

// Version is the supported configuration file format version.
const Version = "0.1.0"

// APIVersion is the public API version prefix.
const APIVersion = "v1"

var cfg *ConfigParam

// Config returns the current configuration.
func Config() *ConfigParam {
	return cfg
}

// LoadConfig loads configuration from a TOML file, applies environment
// overrides, and validates the result.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	c := &ConfigParam{}
	if _, err := toml.Decode(string(content), c); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

	applyEnvOverrides(c)

	if err := ValidateConfig(c); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	cfg = c
	return nil
}

// applyEnvOverrides lets the deployment environment point the gateway at
// its upstreams without editing the config file. A .env file is honored
// when present.
func applyEnvOverrides(c *ConfigParam) {
	godotenv.Load()

	if v := os.Getenv("API_BASE"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("LAMBDA_ANALYSIS_URL"); v != "" {
		c.Analysis.URL = v
	}
}

// ValidateConfig checks that all required configuration values are present
// and parseable. Missing upstream URLs are warnings, not errors: the routes
// that need them fail per-request instead.
func ValidateConfig(c *ConfigParam) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.FormatVersion != Version {
		return fmt.Errorf("unsupported config file format version: %s", c.FormatVersion)
	}
	for name, value := range map[string]string{
		"session.initial_ttl":      c.Session.InitialTTL,
		"session.extend_increment": c.Session.ExtendIncrement,
		"session.max_lifetime":     c.Session.MaxLifetime,
	} {
		if _, err := ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %v", name, err)
		}
	}
	if initial, _ := ParseDuration(c.Session.InitialTTL); initial > mustParseDuration("session.max_lifetime", c.Session.MaxLifetime) {
		return fmt.Errorf("session.initial_ttl exceeds session.max_lifetime")
	}
	if c.Backend.BaseURL == "" {
		log.Warn().Msg("backend base URL not configured; API_BASE override not set")
	}
	if c.Analysis.URL == "" {
		log.Warn().Msg("analysis service URL not configured; analysis routes will return 500")
	}
	return nil
}

// ParseDuration parses a duration string in the format "<number><unit>"
// where unit is one of s, m, h, or d.
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}

	var duration time.Duration
	switch unit {
	case "s":
		duration = time.Duration(value) * time.Second
	case "m":
		duration = time.Duration(value) * time.Minute
	case "h":
		duration = time.Duration(value) * time.Hour
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}

func mustParseDuration(name, input string) time.Duration {
	d, err := ParseDuration(input)
	if err != nil {
		panic(fmt.Sprintf("invalid %s: %v", name, err))
	}
	return d
}

var isTest = false

func IsTest() bool {
	return isTest
}

// TestInit loads the sample configuration from the project root for tests.
func TestInit() {
	isTest = true
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}
	if err := LoadConfig(filepath.Join(projectRoot, "labhubd.conf")); err != nil {
		panic(fmt.Errorf("error loading config: %v", err))
	}
}
