package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFSStorePutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir, "http://localhost:8080/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := store.Put(context.Background(), "concepts/u1/img.png", "image/png", strings.NewReader("png-bytes"), 9)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://localhost:8080/uploads/concepts/u1/img.png" {
		t.Fatalf("unexpected url %s", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "concepts", "u1", "img.png"))
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("expected stored file, got %q err=%v", data, err)
	}

	if err := store.Delete(context.Background(), "concepts/u1/img.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(context.Background(), "concepts/u1/img.png"); err != nil {
		t.Fatalf("delete missing file should succeed: %v", err)
	}
}

func TestFSStoreKeepsKeysInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(filepath.Join(dir, "uploads"), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Put(context.Background(), "../escape.png", "image/png", strings.NewReader("x"), 1); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.png")); !os.IsNotExist(err) {
		t.Fatalf("expected file to stay inside base dir")
	}
	if _, err := os.Stat(filepath.Join(dir, "uploads", "escape.png")); err != nil {
		t.Fatalf("expected file inside base dir: %v", err)
	}
}

func TestFSStoreKeyOf(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	url, err := store.Put(context.Background(), "concepts/u1/a.png", "image/png", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key, ok := store.KeyOf(url); !ok || key != "concepts/u1/a.png" {
		t.Fatalf("expected own url to map back to its key, got %q %v", key, ok)
	}

	for _, raw := range []string{
		"http://169.254.169.254/uploads/concepts/u1/a.png",
		"http://localhost:8080.evil.test/uploads/concepts/u1/a.png",
		"http://localhost:8080/uploads/concepts/u1/../../etc/passwd",
		"http://localhost:8080/uploads/concepts/u1/%2e%2e/a.png",
		"http://localhost:8080/uploads/concepts/u1/a.png?x=1",
		"http://localhost:8080/other/a.png",
	} {
		if key, ok := store.KeyOf(raw); ok {
			t.Fatalf("expected %s to be refused, got key %q", raw, key)
		}
	}
}
