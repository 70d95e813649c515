package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mindvault/internal/config"
)

func TestStartRefusesWithoutJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: memory\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	err := runServer(context.Background(), path, "0")
	if !errors.Is(err, config.ErrJWTSecretRequired) {
		t.Fatalf("expected ErrJWTSecretRequired, got %v", err)
	}
}

func TestTokenRefusesWithoutJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	cmd := NewTokenCmd(&path)
	cmd.SetArgs([]string{"--sub", "alice"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); !errors.Is(err, config.ErrJWTSecretRequired) {
		t.Fatalf("expected ErrJWTSecretRequired, got %v", err)
	}
}
