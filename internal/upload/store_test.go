package upload

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveScopesBlobByCaller(t *testing.T) {
	s, err := NewStore(t.TempDir(), "http://localhost:8080/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := s.Save(KindAvatar, "user-1", "photo.png", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:8080/uploads/avatars/user-1/") {
		t.Fatalf("unexpected url: %q", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Fatalf("extension should be preserved: %q", url)
	}

	rel := strings.TrimPrefix(url, "http://localhost:8080/uploads/")
	data, err := os.ReadFile(filepath.Join(s.Root(), filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestSaveDefaultsExtension(t *testing.T) {
	s, err := NewStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := s.Save(KindUniversityID, "user-1", "", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(url, ".jpg") {
		t.Fatalf("expected .jpg default, got %q", url)
	}
}

func TestSaveRejectsEmptyFile(t *testing.T) {
	s, err := NewStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, err := s.Save(KindAvatar, "user-1", "a.jpg", strings.NewReader("")); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}
