package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateWritesManifestAndSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	dir := t.TempDir()
	raw, pubB64, err := Generate(Options{
		Version:    "v1.2.3",
		OutputDir:  dir,
		PrivKeyB64: base64.StdEncoding.EncodeToString(priv),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if pubB64 != base64.StdEncoding.EncodeToString(pub) {
		t.Fatalf("public key mismatch")
	}

	sig, err := os.ReadFile(filepath.Join(dir, "tools.json.sig"))
	if err != nil {
		t.Fatalf("sig not written: %v", err)
	}
	if !ed25519.Verify(pub, raw, sig) {
		t.Fatal("signature does not verify")
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Version != "1.2.3" || m.Name != "ramp-mcp" {
		t.Fatalf("header = %s %s", m.Name, m.Version)
	}
	byName := map[string]ManifestTool{}
	for _, tool := range m.Tools {
		if tool.Name == "" || tool.InputSchema == nil {
			t.Fatalf("incomplete tool %+v", tool)
		}
		byName[tool.Name] = tool
	}
	if got := byName["load_spend_export"].Scopes; len(got) != 3 {
		t.Fatalf("load_spend_export scopes = %v", got)
	}
	if got := byName["execute_query"].Scopes; len(got) != 0 {
		t.Fatalf("execute_query scopes = %v", got)
	}
}

func TestGenerateUnsigned(t *testing.T) {
	dir := t.TempDir()
	_, pubB64, err := Generate(Options{Version: "0.1.0", OutputDir: dir})
	if err != nil || pubB64 != "" {
		t.Fatalf("Generate = %q, %v", pubB64, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tools.json.sig")); !os.IsNotExist(err) {
		t.Fatalf("unsigned run must not write a signature: %v", err)
	}
	if _, _, err := Generate(Options{OutputDir: dir, PrivKeyB64: "not base64!"}); err == nil {
		t.Fatal("expected key error")
	}
}
