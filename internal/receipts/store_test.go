package receipts

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HelloBroCode/web-tracker1/internal/log"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := log.New("test", log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	s, err := NewStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"receipt.png", true},
		{"receipt.JPG", true},
		{"scan.jpeg", true},
		{"invoice.pdf", true},
		{"script.exe", false},
		{"noextension", false},
		{"archive.tar.gz", false},
	}
	for _, tt := range tests {
		if got := Allowed(tt.filename); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestSaveAndOpen(t *testing.T) {
	s := testStore(t)

	path, err := s.Save(7, "receipt.png", strings.NewReader("image-bytes"), "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(path, "7"+string(filepath.Separator)) {
		t.Errorf("path should be under the user directory, got %q", path)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Errorf("path should keep the extension, got %q", path)
	}

	f, err := s.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "image-bytes" {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestSaveRejectsBadExtension(t *testing.T) {
	s := testStore(t)
	if _, err := s.Save(7, "malware.exe", strings.NewReader("x"), ""); err == nil {
		t.Fatal("expected error for disallowed extension")
	}
}

func TestSaveRemovesOldReceipt(t *testing.T) {
	s := testStore(t)

	old, err := s.Save(7, "first.png", strings.NewReader("one"), "")
	if err != nil {
		t.Fatalf("Save old: %v", err)
	}
	newer, err := s.Save(7, "second.pdf", strings.NewReader("two"), old)
	if err != nil {
		t.Fatalf("Save new: %v", err)
	}
	if newer == old {
		t.Fatal("new receipt should get a fresh name")
	}
	if _, err := s.Open(old); !os.IsNotExist(err) {
		t.Errorf("old receipt should be removed, got %v", err)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	s := testStore(t)
	if _, err := s.Open("../outside.txt"); err == nil {
		t.Fatal("expected error for path traversal")
	}
}
