package blob

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestReceiptKeyLayout(t *testing.T) {
	k1 := ReceiptKey("uid-1")
	k2 := ReceiptKey("uid-1")
	if !strings.HasPrefix(k1, "users/uid-1/receipts/") || !strings.HasSuffix(k1, ".jpg") {
		t.Fatalf("unexpected key %q", k1)
	}
	if k1 == k2 {
		t.Fatal("keys must be unique")
	}
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"users/a/receipts/x.jpg", "users/a/receipts/x.jpg", false},
		{"/users/a/x.jpg", "users/a/x.jpg", false},
		{"", "", true},
		{"../etc/passwd", "", true},
		{"users/../../x", "", true},
		{"users//a", "", true},
	}
	for _, tt := range tests {
		got, err := CleanKey(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("CleanKey(%q) err=%v, want ErrInvalidKey", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("CleanKey(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestLocalStorePutGet(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/blobs/")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	url, err := s.Put(ctx, "users/u/receipts/r.jpg", "image/jpeg", bytes.NewReader([]byte("jpeg-bytes")))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "/blobs/users/u/receipts/r.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	data, err := s.Get(ctx, "users/u/receipts/r.jpg")
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("get: %q %v", data, err)
	}
	if _, err := s.Get(ctx, "users/u/receipts/missing.jpg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := s.Put(ctx, "../x", "", strings.NewReader("")); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("want ErrInvalidKey, got %v", err)
	}
}

func TestLocalStoreHonoursCancellation(t *testing.T) {
	s, _ := NewLocalStore(t.TempDir(), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, "k.jpg", "", strings.NewReader("data")); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestPublicURL(t *testing.T) {
	if got := PublicURL("bkt", "users/a/r.jpg"); got != "https://storage.googleapis.com/bkt/users/a/r.jpg" {
		t.Fatalf("got %q", got)
	}
}
