package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/readalong/internal/document"
)

func TestFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "positions.json")

	s := NewFile(path)
	if _, _, ok, err := s.Get("book"); err != nil || ok {
		t.Fatalf("Get on missing file = ok:%v err:%v", ok, err)
	}

	if err := s.Set("book", document.Location("epubcfi(/6/4)"), 7); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set("notes.md", document.Page(3), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A fresh store reads what the first one wrote.
	reopened := NewFile(path)
	pos, idx, ok, err := reopened.Get("book")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok:%v err:%v", ok, err)
	}
	if !pos.Equal(document.Location("epubcfi(/6/4)")) || idx != 7 {
		t.Errorf("got %v/%d, want location:epubcfi(/6/4)/7", pos, idx)
	}

	pos, idx, _, _ = reopened.Get("notes.md")
	if !pos.Equal(document.Page(3)) || idx != 1 {
		t.Errorf("got %v/%d, want page:3/1", pos, idx)
	}

	if err := reopened.Forget("book"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if _, _, ok, _ := NewFile(path).Get("book"); ok {
		t.Error("forgotten document still stored")
	}
}

func TestFile_CorruptFileIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewFile(path)
	if _, _, ok, err := s.Get("x"); err != nil || ok {
		t.Fatalf("Get = ok:%v err:%v", ok, err)
	}
	if err := s.Set("x", document.Page(1), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
}

func TestFile_RejectsZeroPosition(t *testing.T) {
	s := NewFile(filepath.Join(t.TempDir(), "p.json"))
	if err := s.Set("x", document.Position{}, 0); err == nil {
		t.Error("expected error for empty position")
	}
}

func TestMemory(t *testing.T) {
	var s Store = NewMemory()
	if err := s.Set("doc", document.Page(2), 4); err != nil {
		t.Fatal(err)
	}
	pos, idx, ok, _ := s.Get("doc")
	if !ok || !pos.Equal(document.Page(2)) || idx != 4 {
		t.Errorf("got %v/%d/%v", pos, idx, ok)
	}
}
