// Package sitelist keeps the list of sites a user has generated passwords
// for in a file encrypted with a key derived from the master password.
//
// The file is a 24-byte nonce followed by a NaCl secretbox. The first 12
// nonce bytes are a little-endian write counter, incremented on every
// write; the last 12 are random.
package sitelist

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/joncooperworks/passacre/crypto"
	"github.com/joncooperworks/passacre/errs"
	"github.com/joncooperworks/passacre/generator"
)

// KeySite is the site name the encryption key is derived for. Its
// configuration, if present, selects the derivation options.
const KeySite = "pencrypt"

const (
	keySize     = 32
	nonceSize   = 24
	counterSize = 12
)

// ErrDecryption is returned when a file cannot be opened with the key,
// usually because the master password is wrong.
var ErrDecryption = errs.New(errs.User, "sitelist.Read", "the site list could not be decrypted")

// DeriveKey derives the file key from password. The squeezed bytes are
// read as a big-endian integer and stored little endian.
func DeriveKey(password string, opts generator.Options) (*[keySize]byte, error) {
	raw, err := generator.DeriveBytes("", password, KeySite, keySize, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to derive site list key: %w", err)
	}
	defer crypto.Zeroize(raw)
	var key [keySize]byte
	for i, b := range raw {
		key[keySize-1-i] = b
	}
	return &key, nil
}

// File is an encrypted file.
type File struct {
	path    string
	key     *[keySize]byte
	counter [counterSize]byte
}

// NewFile returns a File at path sealed with key.
func NewFile(path string, key *[keySize]byte) *File {
	return &File{path: path, key: key}
}

// Read decrypts the file and remembers its write counter.
func (f *File) Read() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	if len(data) < nonceSize+secretbox.Overhead {
		return nil, ErrDecryption
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, f.key)
	if !ok {
		return nil, ErrDecryption
	}
	copy(f.counter[:], nonce[:counterSize])
	return plain, nil
}

// Write increments the counter and replaces the file with value sealed
// under a fresh nonce.
func (f *File) Write(value []byte) error {
	incrementCounter(&f.counter)
	var nonce [nonceSize]byte
	copy(nonce[:counterSize], f.counter[:])
	if _, err := rand.Read(nonce[counterSize:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := make([]byte, nonceSize, nonceSize+len(value)+secretbox.Overhead)
	copy(out, nonce[:])
	out = secretbox.Seal(out, value, &nonce, f.key)

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("failed to write site list: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace site list: %w", err)
	}
	return nil
}

// Counter returns the write counter of the last read or write.
func (f *File) Counter() [counterSize]byte {
	return f.counter
}

func incrementCounter(c *[counterSize]byte) {
	for i := range c {
		c[i]++
		if c[i] != 0 {
			return
		}
	}
}

// List is a set of site names persisted in an encrypted File.
type List struct {
	mu    sync.Mutex
	file  *File
	sites map[string]struct{}
}

// Open loads the list stored at path. A missing file is an empty list.
func Open(path string, key *[keySize]byte) (*List, error) {
	l := &List{file: NewFile(path, key), sites: map[string]struct{}{}}
	data, err := l.file.Read()
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, errs.Wrap(errs.User, "sitelist.Open", err)
	}
	for _, n := range names {
		l.sites[n] = struct{}{}
	}
	return l, nil
}

// Sites returns the sorted site names.
func (l *List) Sites() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sorted()
}

func (l *List) sorted() []string {
	names := make([]string, 0, len(l.sites))
	for n := range l.sites {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether site is listed.
func (l *List) Contains(site string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sites[site]
	return ok
}

// Add records site and saves the list. Adding a listed site does not
// rewrite the file.
func (l *List) Add(site string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if site == "" {
		return errs.New(errs.User, "sitelist.Add", "site cannot be empty")
	}
	if _, ok := l.sites[site]; ok {
		return nil
	}
	l.sites[site] = struct{}{}
	return l.save()
}

// Remove deletes site and saves the list.
func (l *List) Remove(site string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sites[site]; !ok {
		return errs.New(errs.User, "sitelist.Remove", "site %q is not listed", site)
	}
	delete(l.sites, site)
	return l.save()
}

func (l *List) save() error {
	data, err := json.Marshal(l.sorted())
	if err != nil {
		return fmt.Errorf("failed to encode site list: %w", err)
	}
	return l.file.Write(data)
}
