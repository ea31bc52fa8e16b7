package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediastudio/internal/domain"
	"mediastudio/internal/providers/failure"
)

func TestFileStoreUploadOpenDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	ctx := context.Background()

	obj, err := store.Upload(ctx, []byte("audio"), Hint{Folder: "podcasts/audio", Name: "My Episode!", ContentType: "audio/mpeg"})
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if !strings.HasPrefix(obj.ID, "podcasts/audio/my-episode-") || !strings.HasSuffix(obj.ID, ".mp3") {
		t.Fatalf("unexpected id %q", obj.ID)
	}
	if obj.URL != "http://localhost:8080/static/"+obj.ID {
		t.Fatalf("unexpected url %q", obj.URL)
	}

	rc, err := store.Open(ctx, obj)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "audio" {
		t.Fatalf("content = %q", data)
	}

	if err := store.Delete(ctx, obj.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(obj.ID))); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if err := store.Delete(ctx, obj.ID); err != nil {
		t.Fatalf("second Delete must be a no-op, got %v", err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	err = store.Delete(context.Background(), "../../etc/passwd")
	if !errors.Is(err, failure.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := store.Open(context.Background(), domain.StoredObject{ID: ".."}); !errors.Is(err, failure.ErrInvalidInput) {
		t.Fatalf("expected invalid input on open, got %v", err)
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "/videos/scenes/a.png", want: "videos/scenes/a.png"},
		{in: "./a\\b.png", want: "a/b.png"},
		{in: "a/../../b", wantErr: true},
		{in: " ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestObjectNameAndResourceType(t *testing.T) {
	name := objectName(Hint{Folder: "/videos/thumbnails/", ContentType: "image/png"})
	if !strings.HasPrefix(name, "videos/thumbnails/object-") || !strings.HasSuffix(name, ".png") {
		t.Fatalf("objectName = %q", name)
	}
	if resourceType("audio/mpeg") != "video" || resourceType("image/png") != "image" || resourceType("text/plain") != "raw" {
		t.Fatalf("unexpected resource type mapping")
	}
	if err := classifyCloudinary("upload", "Invalid Signature abc"); !errors.Is(err, failure.ErrUnauthorized) {
		t.Fatalf("signature errors are unauthorized, got %v", err)
	}
}
