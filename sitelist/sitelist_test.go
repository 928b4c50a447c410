package sitelist

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joncooperworks/passacre/crypto"
	"github.com/joncooperworks/passacre/errs"
	"github.com/joncooperworks/passacre/generator"
)

var testOptions = generator.Options{Algorithm: crypto.Keccak, Iterations: 10}

func testKey(t *testing.T, password string) *[32]byte {
	t.Helper()
	key, err := DeriveKey(password, testOptions)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	return key
}

func TestDeriveKey(t *testing.T) {
	key := testKey(t, "passacre")
	raw, err := generator.DeriveBytes("", "passacre", KeySite, 32, testOptions)
	if err != nil {
		t.Fatalf("DeriveBytes() error = %v", err)
	}
	for i := range raw {
		if key[i] != raw[31-i] {
			t.Fatalf("key byte %d = %#x, want %#x", i, key[i], raw[31-i])
		}
	}
	if other := testKey(t, "not-passacre"); *other == *key {
		t.Error("different passwords derived the same key")
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sites.enc")
	key := testKey(t, "passacre")

	f := NewFile(path, key)
	if err := f.Write([]byte("first")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := f.Write([]byte("second")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}; !bytes.Equal(data[:12], want) {
		t.Errorf("counter bytes = %x, want %x", data[:12], want)
	}

	reader := NewFile(path, key)
	got, err := reader.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Read() = %q, want second", got)
	}
	if err := reader.Write([]byte("third")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if c := reader.Counter(); c[0] != 3 {
		t.Errorf("counter after read and write = %d, want 3", c[0])
	}
}

func TestFileDecryptionFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.enc")
	if err := NewFile(path, testKey(t, "passacre")).Write([]byte("secret")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if _, err := NewFile(path, testKey(t, "wrong")).Read(); !errors.Is(err, ErrDecryption) {
		t.Errorf("Read(wrong key) error = %v, want ErrDecryption", err)
	}

	data, _ := os.ReadFile(path)
	data[len(data)-1] ^= 1
	tampered := filepath.Join(dir, "tampered.enc")
	os.WriteFile(tampered, data, 0o600)
	if _, err := NewFile(tampered, testKey(t, "passacre")).Read(); errs.KindOf(err) != errs.User {
		t.Errorf("Read(tampered) error = %v, want user error", err)
	}

	short := filepath.Join(dir, "short.enc")
	os.WriteFile(short, []byte("tiny"), 0o600)
	if _, err := NewFile(short, testKey(t, "passacre")).Read(); !errors.Is(err, ErrDecryption) {
		t.Errorf("Read(short) error = %v, want ErrDecryption", err)
	}
}

func TestCounterCarry(t *testing.T) {
	c := [12]byte{0xff, 0xff, 0x01}
	incrementCounter(&c)
	if want := [12]byte{0, 0, 0x02}; c != want {
		t.Errorf("incrementCounter() = %x, want %x", c, want)
	}
}

func TestList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.enc")
	key := testKey(t, "passacre")

	l, err := Open(path, key)
	if err != nil {
		t.Fatalf("Open(missing) error = %v", err)
	}
	if len(l.Sites()) != 0 {
		t.Errorf("new list has sites %v", l.Sites())
	}
	for _, s := range []string{"schwab.com", "becu.org", "schwab.com"} {
		if err := l.Add(s); err != nil {
			t.Fatalf("Add(%q) error = %v", s, err)
		}
	}
	if err := l.Add(""); errs.KindOf(err) != errs.User {
		t.Errorf("Add(\"\") error = %v, want user error", err)
	}

	again, err := Open(path, key)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if diff := cmp.Diff([]string{"becu.org", "schwab.com"}, again.Sites()); diff != "" {
		t.Errorf("Sites() mismatch (-want +got):\n%s", diff)
	}
	if !again.Contains("becu.org") || again.Contains("fhcrc.org") {
		t.Error("Contains() disagrees with Sites()")
	}

	if err := again.Remove("becu.org"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := again.Remove("becu.org"); errs.KindOf(err) != errs.User {
		t.Errorf("second Remove() error = %v, want user error", err)
	}

	if _, err := Open(path, testKey(t, "wrong")); !errors.Is(err, ErrDecryption) {
		t.Errorf("Open(wrong key) error = %v, want ErrDecryption", err)
	}
}
