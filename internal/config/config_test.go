package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvClientID, EnvClientSecret, EnvAccessToken, EnvRampEnv, EnvBaseURL, EnvScopes,
		EnvLogLevel, EnvLogDir, EnvLogStderr, EnvHTTPToken, EnvAllowlist, EnvConfigFile} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) = %v", err)
	}
	if strings.Join(cfg.Scopes, ",") != "transactions:read,reimbursements:read,bills:read" {
		t.Fatalf("default scopes = %v", cfg.Scopes)
	}
	u, err := cfg.ResolveBaseURL()
	if err != nil || u != "https://demo-api.ramp.com/developer/v1" {
		t.Fatalf("ResolveBaseURL = %q, %v", u, err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	file := writeFile(t, "ramp.yaml", `
env: prd
scopes: [users:read]
client:
  page_size: 50
  timeout: 5s
log:
  level: debug
`)
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvAccessToken, "tok")

	cfg, err := Load(Options{File: file, DotEnv: writeFile(t, ".env", "RAMP_MCP_LOG_DIR=/tmp/ramp-logs\n")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "prd" || cfg.Client.PageSize != 50 || cfg.Client.Timeout != 5*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Client.MaxPages != 100 {
		t.Fatalf("defaults must survive a partial file, max_pages = %d", cfg.Client.MaxPages)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("env must override file, level = %q", cfg.Log.Level)
	}
	if cfg.Log.Dir != "/tmp/ramp-logs" {
		t.Fatalf(".env not loaded, dir = %q", cfg.Log.Dir)
	}
	if strings.Join(cfg.Scopes, ",") != "users:read" {
		t.Fatalf("scopes = %v", cfg.Scopes)
	}
	if cfg.Credentials.AccessToken != "tok" {
		t.Fatalf("access token not read")
	}
	if _, ok := os.LookupEnv(EnvAccessToken); ok {
		t.Fatalf("secret must be cleared from the environment")
	}
}

func TestLoadMissingDotEnvIsFine(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	if _, err := Load(Options{}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := Load(Options{DotEnv: "does-not-exist.env"}); err == nil {
		t.Fatal("an explicit missing .env must fail")
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := LoadFile(writeFile(t, "bad.yaml", "env: demo\npage_size: 10\n"), &cfg)
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidateReportsFields(t *testing.T) {
	cfg := Default()
	cfg.Env = "staging"
	cfg.Client.PageSize = 500
	cfg.Scopes = nil
	cfg.HTTP.Allowlist = "10.0.0.0/8"

	err := Validate(cfg)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v", err)
	}
	for _, want := range []string{"Env must be one of", "Client.PageSize must be max 100", "Scopes", "HTTP.Allowlist requires Token"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLogStderrNeedsHTTP(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogStderr, "true")
	cfg, err := Load(Options{DotEnv: writeFile(t, ".env", "")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Log.Stderr {
		t.Fatal("RAMP_MCP_LOG_STDERR not applied")
	}
	err = Validate(cfg)
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "Log.Stderr requires Transport http") {
		t.Fatalf("stdio with stderr logging: err = %v", err)
	}

	cfg.Transport = "http"
	if err := Validate(cfg); err != nil {
		t.Fatalf("http with stderr logging: %v", err)
	}

	file := writeFile(t, "ramp.yaml", "transport: http\nlog:\n  stderr: true\n")
	fromFile := Default()
	if err := LoadFile(file, &fromFile); err != nil {
		t.Fatal(err)
	}
	if !fromFile.Log.Stderr || Validate(fromFile) != nil {
		t.Fatalf("log.stderr from file = %+v", fromFile.Log)
	}
}

func TestParseScopes(t *testing.T) {
	got := ParseScopes(" bills:read, ,users:read,bills:read ")
	if strings.Join(got, ",") != "bills:read,users:read" {
		t.Fatalf("ParseScopes = %v", got)
	}
}

func TestResolveBaseURLOverride(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "http://localhost:8080/developer/v1/"
	u, err := cfg.ResolveBaseURL()
	if err != nil || u != "http://localhost:8080/developer/v1" {
		t.Fatalf("ResolveBaseURL = %q, %v", u, err)
	}
	cfg.BaseURL, cfg.Env = "", "nope"
	if _, err := cfg.ResolveBaseURL(); err == nil {
		t.Fatal("expected unknown env error")
	}
}
