package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	key, err := s.Put(ctx, "PDF", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasSuffix(key, ".pdf") {
		t.Errorf("key %q should keep the extension", key)
	}

	rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "hello" {
		t.Errorf("Get = %q, want hello", data)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
}

func TestFSStoreUniqueKeys(t *testing.T) {
	s, _ := NewFSStore(t.TempDir())
	a, _ := s.Put(context.Background(), ".txt", strings.NewReader("a"))
	b, _ := s.Put(context.Background(), ".txt", strings.NewReader("b"))
	if a == b {
		t.Errorf("keys collide: %q", a)
	}
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	s, _ := NewFSStore(t.TempDir())
	for _, key := range []string{"../etc/passwd", "/etc/passwd", "a/b.txt", ""} {
		if _, err := s.Get(context.Background(), key); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q): expected ErrNotFound, got %v", key, err)
		}
	}
}

func TestFSStorePutCanceled(t *testing.T) {
	s, _ := NewFSStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, ".txt", strings.NewReader("data")); err == nil {
		t.Error("expected error for canceled context")
	}
}
