package mqttserver

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildTLSConfigEmpty(t *testing.T) {
	cfg, err := BuildTLSConfig("", "", "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config without paths")
	}
}

func TestBuildTLSConfigErrors(t *testing.T) {
	if _, err := BuildTLSConfig("", "cert.pem", ""); err == nil {
		t.Fatalf("expected error for cert without key")
	}
	if _, err := BuildTLSConfig(filepath.Join(t.TempDir(), "missing.pem"), "", ""); err == nil {
		t.Fatalf("expected error for missing CA")
	}
	bad := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(bad, []byte("not a certificate"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := BuildTLSConfig(bad, "", ""); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTruncatePayload(t *testing.T) {
	long := make([]byte, 3000)
	if got := truncatePayload(long); len(got) != 2048+3 {
		t.Fatalf("unexpected length %d", len(got))
	}
	if got := truncatePayload([]byte("ok")); got != "ok" {
		t.Fatalf("short payloads are unchanged")
	}
}
