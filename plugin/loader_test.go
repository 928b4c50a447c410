package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joncooperworks/passacre/errs"
)

func TestLoadFile(t *testing.T) {
	RegisterLoader("mockplugin", func() (Loader, error) { return &TestLoader{name: "mock"}, nil })

	dir := t.TempDir()
	path := filepath.Join(dir, "pin.mockplugin")
	if err := os.WriteFile(path, []byte(`[[4, "digit"]]`), 0o600); err != nil {
		t.Fatal(err)
	}

	found, err := Find(dir, "pin")
	if err != nil || found != path {
		t.Fatalf("Find() = %q, %v; want %q", found, err, path)
	}
	p, err := LoadFile(context.Background(), found)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	defer p.Close()
	if p.Name() != "pin" {
		t.Errorf("Name() = %q, want pin", p.Name())
	}
	s, err := p.Schema(context.Background(), "bank.example.com")
	if err != nil || string(s) != `[[4, "digit"]]` {
		t.Errorf("Schema() = %s, %v", s, err)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
	}{
		{"no extension", filepath.Join(dir, "plugin")},
		{"unknown type", filepath.Join(dir, "plugin.exe")},
		{"missing file", filepath.Join(dir, "missing.wasm")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFile(context.Background(), tt.path); errs.KindOf(err) != errs.User {
				t.Errorf("LoadFile() error = %v, want user error", err)
			}
		})
	}

	if _, err := Find(dir, "absent"); errs.KindOf(err) != errs.User {
		t.Errorf("Find(absent) error = %v, want user error", err)
	}
	if _, err := Find(dir, "../escape"); errs.KindOf(err) != errs.User {
		t.Errorf("Find(../escape) error = %v, want user error", err)
	}
	if _, err := Find(dir, ""); err == nil {
		t.Error("Find(\"\") error = nil")
	}
}
