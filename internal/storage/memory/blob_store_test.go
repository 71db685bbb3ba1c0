package memory

import (
	"bytes"
	"context"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "images_Madrid/a.jpg", "image/jpeg", bytes.NewReader([]byte("content")))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://images_Madrid/a.jpg" {
		t.Fatalf("unexpected uri %s", uri)
	}
	got, ok := store.Get("images_Madrid/a.jpg")
	if !ok || string(got) != "content" {
		t.Fatalf("unexpected stored content %q", got)
	}
	got[0] = 'C'
	again, _ := store.Get("images_Madrid/a.jpg")
	if string(again) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", again)
	}
	if paths := store.Paths(); len(paths) != 1 || paths[0] != "images_Madrid/a.jpg" {
		t.Fatalf("unexpected paths %v", paths)
	}
}
