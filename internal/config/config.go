// Package config resolves the server configuration from defaults, an optional
// YAML file and the environment. Command-line flags are applied on top by the
// caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rusq/osenv/v2"
	"gopkg.in/yaml.v3"

	"github.com/ramp/ramp-mcp-server/internal/ramp"
	"github.com/ramp/ramp-mcp-server/internal/resource"
	"github.com/ramp/ramp-mcp-server/internal/store"
)

// Environment variables.
const (
	EnvClientID     = "RAMP_CLIENT_ID"
	EnvClientSecret = "RAMP_CLIENT_SECRET"
	EnvAccessToken  = "RAMP_ACCESS_TOKEN"
	EnvRampEnv      = "RAMP_ENV"
	EnvBaseURL      = "RAMP_BASE_URL"
	EnvScopes       = "RAMP_MCP_SCOPES"
	EnvLogLevel     = "RAMP_MCP_LOG_LEVEL"
	EnvLogDir       = "RAMP_MCP_LOG_DIR"
	EnvLogStderr    = "RAMP_MCP_LOG_STDERR"
	EnvHTTPToken    = "RAMP_MCP_HTTP_TOKEN"
	EnvAllowlist    = "RAMP_MCP_HTTP_ALLOWLIST"
	EnvConfigFile   = "RAMP_MCP_CONFIG"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the complete server configuration.
type Config struct {
	Env       string   `yaml:"env" validate:"oneof=demo qa prd"`
	BaseURL   string   `yaml:"base_url" validate:"omitempty,url"`
	Scopes    []string `yaml:"scopes" validate:"min=1,dive,required"`
	Transport string   `yaml:"transport" validate:"oneof=stdio http"`

	Client ClientConfig `yaml:"client"`
	Query  QueryConfig  `yaml:"query"`
	Log    LogConfig    `yaml:"log"`
	HTTP   HTTPConfig   `yaml:"http"`

	// Credentials only come from the environment.
	Credentials ramp.Credentials `yaml:"-"`
}

type ClientConfig struct {
	PageSize          int           `yaml:"page_size" validate:"min=2,max=100"`
	MaxPages          int           `yaml:"max_pages" validate:"min=1"`
	MaxRetries        int           `yaml:"max_retries" validate:"min=0,max=10"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gt=0"`
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxBackoff        time.Duration `yaml:"max_backoff" validate:"gt=0"`
}

type QueryConfig struct {
	MaxRows  int `yaml:"max_rows" validate:"min=1"`
	MaxBytes int `yaml:"max_bytes" validate:"min=1024"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Dir   string `yaml:"dir" validate:"required"`
	// Stderr logs to standard error instead of Dir. Only allowed with the http transport.
	Stderr bool `yaml:"stderr"`
}

type HTTPConfig struct {
	Addr  string `yaml:"addr" validate:"required"`
	Token string `yaml:"token"`
	// Allowlist admits remote clients, so it is only accepted together with a token.
	Allowlist string `yaml:"allowlist" validate:"excluded_without=Token"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Env:       ramp.DefaultEnv,
		Scopes:    append([]string(nil), resource.DefaultScopes...),
		Transport: "stdio",
		Client: ClientConfig{
			PageSize:          ramp.DefaultPageSize,
			MaxPages:          ramp.DefaultMaxPages,
			MaxRetries:        ramp.DefaultMaxRetries,
			RequestsPerSecond: ramp.DefaultRPS,
			Timeout:           ramp.DefaultTimeout,
			MaxBackoff:        ramp.DefaultMaxBackoff,
		},
		Query: QueryConfig{
			MaxRows:  store.DefaultMaxRows,
			MaxBytes: store.DefaultMaxBytes,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
		},
		HTTP: HTTPConfig{
			Addr: ":3333",
		},
	}
}

// Options tells Load where to look.
type Options struct {
	// File is the YAML config file; empty falls back to RAMP_MCP_CONFIG.
	File string
	// DotEnv is loaded before anything else; empty means ".env", which may be missing.
	DotEnv string
}

// Load builds the configuration: defaults, then the YAML file, then the
// environment. It does not validate; call Validate after applying flags.
func Load(opts Options) (Config, error) {
	dotenv := opts.DotEnv
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && (opts.DotEnv != "" || !errors.Is(err, fs.ErrNotExist)) {
		return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
	}

	cfg := Default()
	file := opts.File
	if file == "" {
		file = osenv.Value(EnvConfigFile, "")
	}
	if file != "" {
		if err := LoadFile(file, &cfg); err != nil {
			return Config{}, err
		}
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

// LoadFile decodes a YAML file over cfg. Unknown keys are an error.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with the environment. Secrets are removed from the
// process environment once read.
func ApplyEnv(cfg *Config) {
	cfg.Env = osenv.Value(EnvRampEnv, cfg.Env)
	cfg.BaseURL = osenv.Value(EnvBaseURL, cfg.BaseURL)
	if s := osenv.Value(EnvScopes, ""); s != "" {
		cfg.Scopes = ParseScopes(s)
	}
	cfg.Log.Level = osenv.Value(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Dir = osenv.Value(EnvLogDir, cfg.Log.Dir)
	cfg.Log.Stderr = osenv.Value(EnvLogStderr, cfg.Log.Stderr)
	cfg.HTTP.Token = osenv.Secret(EnvHTTPToken, cfg.HTTP.Token)
	cfg.HTTP.Allowlist = osenv.Value(EnvAllowlist, cfg.HTTP.Allowlist)

	cfg.Credentials.ClientID = osenv.Value(EnvClientID, cfg.Credentials.ClientID)
	cfg.Credentials.ClientSecret = osenv.Secret(EnvClientSecret, cfg.Credentials.ClientSecret)
	cfg.Credentials.AccessToken = osenv.Secret(EnvAccessToken, cfg.Credentials.AccessToken)
}

// ParseScopes splits a comma separated scope list, dropping blanks and duplicates.
func ParseScopes(s string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Validate checks cfg and reports every failing field.
func Validate(cfg Config) error {
	var msgs []string
	if err := validator.New().Struct(cfg); err != nil {
		var vErr validator.ValidationErrors
		if !errors.As(err, &vErr) {
			return err
		}
		for _, fe := range vErr {
			msgs = append(msgs, describe(fe))
		}
	}
	if cfg.Log.Stderr && cfg.Transport != "http" {
		msgs = append(msgs, fmt.Sprintf("Log.Stderr requires Transport http, got %q", cfg.Transport))
	}
	if len(msgs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "min", "max", "gt":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	case "excluded_without":
		return fmt.Sprintf("%s requires %s to be set", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a URL", field)
	}
	return fmt.Sprintf("%s failed %q", field, fe.Tag())
}

// ResolveBaseURL returns the explicit base URL or the environment's.
func (c Config) ResolveBaseURL() (string, error) {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/"), nil
	}
	return ramp.BaseURL(c.Env)
}
