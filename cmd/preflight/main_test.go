package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hamed0406/endpointresolver/internal/config"
)

func TestCheck_ConfigFromFile(t *testing.T) {
	for _, k := range []string{"BOOTSTRAP_URLS", "KNOWN_SERVICES", "CALL_API_URL"} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "resolver.yaml")
	body := `
bootstrap_urls: [https://cfg.example/global]
known_services: [chat, call]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var out, errOut bytes.Buffer
	if !check(cfg, &out, &errOut) {
		t.Fatalf("file-configured deployment should pass:\n%s", errOut.String())
	}
	if !strings.Contains(out.String(), "preflight passed") {
		t.Fatalf("missing pass line: %s", out.String())
	}
}

func TestCheck_MissingBootstrapFails(t *testing.T) {
	cfg := config.Config{KnownServices: []string{"chat"}}
	cfg.SetDefaults()

	var out, errOut bytes.Buffer
	if check(cfg, &out, &errOut) {
		t.Fatal("empty bootstrap list should fail")
	}
	if !strings.Contains(errOut.String(), "BOOTSTRAP_URLS is empty") {
		t.Fatalf("unexpected output: %s", errOut.String())
	}
}

func TestCheck_BadURLFails(t *testing.T) {
	cfg := config.Config{BootstrapURLs: []string{"ftp://x"}, KnownServices: []string{"chat"}}
	cfg.SetDefaults()

	var out, errOut bytes.Buffer
	if check(cfg, &out, &errOut) {
		t.Fatal("non-http bootstrap URL should fail")
	}
}
