// Command manifestgen writes tools.json, the catalog of every tool the server
// can expose with the scopes each one needs. With a private key it also writes
// an ed25519 signature next to it.
package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rusq/osenv/v2"

	"github.com/ramp/ramp-mcp-server/internal/app"
	"github.com/ramp/ramp-mcp-server/internal/protocol"
	"github.com/ramp/ramp-mcp-server/internal/resource"
	"github.com/ramp/ramp-mcp-server/internal/version"
)

const envPrivKey = "RAMP_MCP_MANIFEST_PRIVKEY_B64"

// Options captures manifest generation settings.
type Options struct {
	Version    string
	OutputDir  string
	PrivKeyB64 string
}

// Manifest is the content of tools.json.
type Manifest struct {
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Scopes  []string       `json:"scopes"`
	Tools   []ManifestTool `json:"tools"`
}

type ManifestTool struct {
	protocol.ToolDescriptor
	Scopes []string `json:"scopes,omitempty"`
}

func main() {
	opts := parseFlags()
	raw, pubB64, err := Generate(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("manifest written to %s (%d bytes)\n", filepath.Join(opts.OutputDir, "tools.json"), len(raw))
	if pubB64 != "" {
		fmt.Printf("signature written to %s\n", filepath.Join(opts.OutputDir, "tools.json.sig"))
		fmt.Printf("public key (base64): %s\n", pubB64)
	}
}

func parseFlags() Options {
	var (
		ver     = flag.String("version", version.Get().Version, "version string (vX.Y.Z or X.Y.Z)")
		outDir  = flag.String("output_dir", ".", "output directory")
		privB64 = flag.String("privkey_b64", "", "ed25519 private key (base64, 64 bytes); env "+envPrivKey)
	)
	flag.Parse()

	priv := *privB64
	if priv == "" {
		priv = osenv.Secret(envPrivKey, "")
	}
	return Options{
		Version:    strings.TrimPrefix(*ver, "v"),
		OutputDir:  *outDir,
		PrivKeyB64: priv,
	}
}

// Build describes every registered tool. No session is needed: descriptors
// only depend on the resource catalog.
func Build(ver string) Manifest {
	all := resource.Scopes()
	tb := app.NewToolbox(all, &app.Session{})
	descs := map[string]protocol.ToolDescriptor{}
	for _, d := range tb.Describe() {
		descs[d.Name] = d
	}
	m := Manifest{Name: version.Name, Version: strings.TrimPrefix(ver, "v"), Scopes: all}
	for _, e := range app.Registry() {
		m.Tools = append(m.Tools, ManifestTool{ToolDescriptor: descs[e.Name], Scopes: e.Scopes})
	}
	return m
}

// Generate writes tools.json and, when a key is given, tools.json.sig.
// It returns the bytes written and the base64 public key (empty when unsigned).
func Generate(opts Options) ([]byte, string, error) {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, "", err
	}
	raw, err := json.MarshalIndent(Build(opts.Version), "", "  ")
	if err != nil {
		return nil, "", err
	}
	raw = append(raw, '\n')

	manifestPath := filepath.Join(opts.OutputDir, "tools.json")
	if err := os.WriteFile(manifestPath, raw, 0o644); err != nil {
		return nil, "", err
	}
	if opts.PrivKeyB64 == "" {
		return raw, "", nil
	}

	priv, err := base64.StdEncoding.DecodeString(opts.PrivKeyB64)
	if err != nil {
		return nil, "", fmt.Errorf("decode privkey: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, "", fmt.Errorf("invalid private key length: %d", len(priv))
	}
	privKey := ed25519.PrivateKey(priv)
	pubB64 := base64.StdEncoding.EncodeToString(privKey.Public().(ed25519.PublicKey))
	if err := os.WriteFile(manifestPath+".sig", ed25519.Sign(privKey, raw), 0o644); err != nil {
		return nil, "", err
	}
	return raw, pubB64, nil
}
