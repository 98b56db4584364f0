package blob

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFSStorePutGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir(), "https://cdn.example.com/")
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	data := []byte("%PDF-1.7 fake")
	u, err := s.Put(ctx, "My CV.PDF", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(u, "https://cdn.example.com/media/") || !strings.HasSuffix(u, ".pdf") {
		t.Fatalf("URL = %q, want https://cdn.example.com/media/<key>.pdf", u)
	}

	got, err := s.Get(ctx, u)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Get returned %q, want %q", got, data)
	}
}

func TestFSStorePutUsesDistinctKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFSStore(t.TempDir(), "")

	a, _ := s.Put(ctx, "a.jpg", []byte("one"))
	b, _ := s.Put(ctx, "a.jpg", []byte("two"))
	if a == b {
		t.Fatalf("expected distinct URLs, both %q", a)
	}
	if !strings.HasPrefix(a, "/media/") {
		t.Fatalf("URL = %q, want host-relative /media/ URL", a)
	}
}

func TestFSStoreGetMissing(t *testing.T) {
	s, _ := NewFSStore(t.TempDir(), "")
	_, err := s.Get(context.Background(), "/media/nope.jpg")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestKeyFromURLRejectsTraversal(t *testing.T) {
	for _, raw := range []string{"", "/media/", "/media/..", "/media/.hidden", `/media/a\b`} {
		if key, err := KeyFromURL(raw); err == nil {
			t.Errorf("KeyFromURL(%q) = %q, want error", raw, key)
		}
	}
	key, err := KeyFromURL("https://x.dev/media/abc.jpg?v=2")
	if err != nil || key != "abc.jpg" {
		t.Fatalf("KeyFromURL = (%q, %v), want abc.jpg", key, err)
	}
}
