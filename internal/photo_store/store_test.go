package photo_store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestSaveAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := New(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data := []byte{0xff, 0xd8, 0xff, 0xe0}
	ref, err := s.Save(context.Background(), 42, data)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Dir(ref) != dir || !strings.HasPrefix(filepath.Base(ref), "42_") || !strings.HasSuffix(ref, ".jpg") {
		t.Errorf("unexpected reference %q", ref)
	}
	got, err := os.ReadFile(ref)
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("stored photo mismatch: %v", err)
	}

	other, err := s.Save(context.Background(), 42, data)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if other == ref {
		t.Error("two photos share one reference")
	}

	if err := s.Remove(ref); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(ref); !os.IsNotExist(err) {
		t.Errorf("photo still present: %v", err)
	}
	if err := s.Remove(ref); err != nil {
		t.Errorf("second Remove: %v", err)
	}
	if err := s.Remove(""); err != nil {
		t.Errorf("Remove empty: %v", err)
	}
}
