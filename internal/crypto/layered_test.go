package crypto

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	vaulterrors "github.com/tmvault/tmvault/internal/errors"
)

func testKeys() [][]byte {
	return [][]byte{
		[]byte("alpha"),
		[]byte("bravo"),
		[]byte("charlie"),
	}
}

func newTestCipher(t *testing.T) *LayeredCipher {
	t.Helper()
	return NewLayeredCipher(NewSecretboxEngine(), filepath.Join(t.TempDir(), ".scratch"))
}

func TestLayeredRoundTrip(t *testing.T) {
	cipher := newTestCipher(t)
	keys := testKeys()
	plaintext := []byte("the quick brown fox")

	sealed, err := cipher.Seal(plaintext, keys)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("ciphertext contains the plaintext")
	}

	opened, err := cipher.Open(sealed, keys)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", opened, plaintext)
	}
}

func TestLayeredWrongKeyReportsLayer(t *testing.T) {
	cipher := newTestCipher(t)
	keys := testKeys()

	sealed, err := cipher.Seal([]byte("secret"), keys)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// Layers open in reverse order, so a bad third key fails first.
	badKeys := [][]byte{keys[0], keys[1], []byte("delta")}
	_, err = cipher.Open(sealed, badKeys)
	if err == nil {
		t.Fatal("Open succeeded with a wrong key")
	}

	var keyErr *vaulterrors.KeyError
	if !errors.As(err, &keyErr) {
		t.Fatalf("expected KeyError, got %T: %v", err, err)
	}
	if keyErr.Layer != 3 {
		t.Fatalf("expected failure at layer 3, got layer %d", keyErr.Layer)
	}
	if !errors.Is(err, vaulterrors.ErrWrongKey) {
		t.Fatal("KeyError does not unwrap to ErrWrongKey")
	}
}

func TestLayeredWrongInnerKey(t *testing.T) {
	cipher := newTestCipher(t)
	keys := testKeys()

	sealed, err := cipher.Seal([]byte("secret"), keys)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	badKeys := [][]byte{[]byte("delta"), keys[1], keys[2]}
	_, err = cipher.Open(sealed, badKeys)

	var keyErr *vaulterrors.KeyError
	if !errors.As(err, &keyErr) {
		t.Fatalf("expected KeyError, got %T: %v", err, err)
	}
	if keyErr.Layer != 1 {
		t.Fatalf("expected failure at layer 1, got layer %d", keyErr.Layer)
	}
}

func TestLayeredRejectsBadKeySets(t *testing.T) {
	cipher := newTestCipher(t)

	if _, err := cipher.Seal([]byte("x"), nil); !errors.Is(err, vaulterrors.ErrNoKeys) {
		t.Fatalf("expected ErrNoKeys, got %v", err)
	}
	if _, err := cipher.Seal([]byte("x"), [][]byte{[]byte("a"), {}}); !errors.Is(err, vaulterrors.ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestFileRoundTripCleansScratch(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), ".scratch")
	cipher := NewLayeredCipher(NewSecretboxEngine(), scratch)
	keys := testKeys()
	dir := t.TempDir()

	src := filepath.Join(dir, "plain.txt")
	sealed := filepath.Join(dir, "plain.txt.enc")
	opened := filepath.Join(dir, "plain-again.txt")
	content := []byte("file round trip content")

	if err := os.WriteFile(src, content, 0600); err != nil {
		t.Fatal(err)
	}
	if err := cipher.SealFile(src, sealed, keys); err != nil {
		t.Fatalf("SealFile failed: %v", err)
	}
	if err := cipher.OpenFile(sealed, opened, keys); err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}

	got, err := os.ReadFile(opened)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, content)
	}

	// No intermediates may survive the calls.
	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("scratch dir unreadable: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch dir not empty after calls: %d entries", len(entries))
	}
}

func TestSealFileRefusesExistingDestination(t *testing.T) {
	cipher := newTestCipher(t)
	dir := t.TempDir()

	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	if err := os.WriteFile(src, []byte("data"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("already here"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := cipher.SealFile(src, dst, testKeys()); err == nil {
		t.Fatal("SealFile overwrote an existing destination")
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "already here" {
		t.Fatal("existing destination was modified")
	}
}

func TestSealFileFailureLeavesNoDestination(t *testing.T) {
	cipher := newTestCipher(t)
	dir := t.TempDir()

	dst := filepath.Join(dir, "dst")
	if err := cipher.SealFile(filepath.Join(dir, "missing"), dst, testKeys()); err == nil {
		t.Fatal("SealFile succeeded on a missing source")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatal("failed seal left a destination file behind")
	}
}

func TestEmptyPlaintextRoundTrips(t *testing.T) {
	cipher := newTestCipher(t)
	keys := testKeys()
	dir := t.TempDir()

	src := filepath.Join(dir, "empty")
	sealed := filepath.Join(dir, "empty.enc")
	opened := filepath.Join(dir, "empty-again")

	if err := os.WriteFile(src, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if err := cipher.SealFile(src, sealed, keys); err != nil {
		t.Fatalf("SealFile failed on empty plaintext: %v", err)
	}

	info, err := os.Stat(sealed)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Fatal("sealing an empty file produced empty ciphertext")
	}

	if err := cipher.OpenFile(sealed, opened, keys); err != nil {
		t.Fatalf("OpenFile failed on empty plaintext: %v", err)
	}
	got, err := os.ReadFile(opened)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty plaintext, got %d bytes", len(got))
	}
}
