package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_ReadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "token"))
	if tok, ok := s.Read(); ok || tok != "" {
		t.Fatalf("expected no credential, got %q ok=%v", tok, ok)
	}
}

func TestStore_WriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	s := NewStore(path)
	if err := s.Write("  jwt-abc \n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	tok, ok := s.Read()
	if !ok || tok != "jwt-abc" {
		t.Fatalf("expected trimmed token, got %q ok=%v", tok, ok)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 perms, got %v", info.Mode().Perm())
	}
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "token"))
	if err := s.Write("   "); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	s := NewStore(path)
	if err := s.Write("jwt"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := s.Read(); ok {
		t.Fatalf("expected cleared credential")
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clearing twice must be fine: %v", err)
	}
}

func TestDefaultPath_EnvOverride(t *testing.T) {
	t.Setenv("RAGCHAT_TOKEN_FILE", "/tmp/custom-token")
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if path != "/tmp/custom-token" {
		t.Fatalf("unexpected path: %q", path)
	}
}
