package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSecureEraseRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("sensitive"), 0600); err != nil {
		t.Fatal(err)
	}

	result, err := SecureErase(path)
	if err != nil {
		t.Fatalf("SecureErase failed: %v", err)
	}
	if !result.Overwritten {
		t.Fatal("writable file was not overwritten before deletion")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file survived SecureErase")
	}
}

func TestSecureEraseTreeKeepsRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b"), 0700); err != nil {
		t.Fatal(err)
	}
	files := []string{
		filepath.Join(root, "top.txt"),
		filepath.Join(root, "a", "mid.txt"),
		filepath.Join(root, "a", "b", "deep.txt"),
	}
	for _, f := range files {
		if err := os.WriteFile(f, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	result, err := SecureEraseTree(root)
	if err != nil {
		t.Fatalf("SecureEraseTree failed: %v", err)
	}
	if result.Files != len(files) {
		t.Fatalf("erased %d files, want %d", result.Files, len(files))
	}
	if result.Overwritten != len(files) {
		t.Fatalf("overwrote %d files, want %d", result.Overwritten, len(files))
	}
	if len(result.Degraded) != 0 {
		t.Fatalf("unexpected degradations: %v", result.Degraded)
	}

	// Root survives for the volume release; contents do not.
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("root removed by SecureEraseTree: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("tree not emptied: %d entries remain", len(entries))
	}
}
