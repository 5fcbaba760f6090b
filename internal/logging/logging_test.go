package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesComponentFile(t *testing.T) {
	dir := t.TempDir()
	lg, cleanup, err := New("ramp-mcp", Options{Dir: dir, Level: "debug"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lg.WithField("resource", "bills").Debug("loaded")
	cleanup()

	raw, err := os.ReadFile(filepath.Join(dir, "ramp-mcp.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(raw)
	if !strings.Contains(out, "component=ramp-mcp") || !strings.Contains(out, "resource=bills") {
		t.Fatalf("missing fields in log output: %q", out)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New("x", Options{Dir: t.TempDir(), Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewLevelFilters(t *testing.T) {
	dir := t.TempDir()
	lg, cleanup, err := New("quiet", Options{Dir: dir, Level: "warn"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lg.Info("hidden")
	lg.Warn("shown")
	cleanup()

	raw, err := os.ReadFile(filepath.Join(dir, "quiet.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(raw), "hidden") {
		t.Fatalf("info line should be filtered at warn level")
	}
	if !strings.Contains(string(raw), "shown") {
		t.Fatalf("warn line missing")
	}
}
