package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/joncooperworks/passacre/crypto/keystore"
	"github.com/joncooperworks/passacre/errs"
)

var keccakConfig = filepath.Join("..", "..", "testdata", "keccak.yaml")

// newTestApp returns an app whose settings live in a temporary directory
// and whose keystore is in memory, shared by every command run on it.
func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("PASSACRE_LOG_LEVEL", "disabled")
	return &app{settingsDir: t.TempDir()}
}

func run(t *testing.T, a *app, stdin string, args ...string) (string, error) {
	t.Helper()
	a.stdin = nil
	dir := a.settingsDir
	cmd := newRootCmd(a)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	base := []string{"--settings-dir", dir, "--keystore", "memory"}
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    string
		wantErr errs.Kind
	}{
		{"plain", "passacre\n", []string{"generate", "schwab.com"}, "jRWs2Wzl\n", -1},
		{"username", "passacre\n", []string{"generate", "-n", "-u", "passacre", "schwab.com"}, "JkbefmM3", -1},
		{"hashed site", "passacre\n", []string{"gen", "hashed.example.com"}, "beer bear\n", -1},
		{"confirmed", "passacre\npassacre\n", []string{"generate", "-c", "becu.org"}, "qRnda94q1srpHWCjaQUTDobnxIgJkKlO\n", -1},
		{"confirm mismatch", "passacre\npassacra\n", []string{"generate", "-c", "becu.org"}, "", errs.User},
		{"no password", "", []string{"generate", "becu.org"}, "", errs.User},
		{"missing config", "passacre\n", []string{"generate", "-f", "missing.yaml", "becu.org"}, "", errs.User},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t)
			args := append([]string{"--config", keccakConfig}, tt.args...)
			if tt.args[1] == "-f" {
				args = tt.args
			}
			got, err := run(t, a, tt.stdin, args...)
			if tt.wantErr >= 0 {
				if err == nil || errs.KindOf(err) != tt.wantErr {
					t.Fatalf("generate error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("generate error = %v", err)
			}
			if got != tt.want {
				t.Errorf("generate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashSite(t *testing.T) {
	a := newTestApp(t)
	got, err := run(t, a, "passacre\n", "--config", keccakConfig, "hash-site", "hashed.example.com")
	if err != nil {
		t.Fatalf("hash-site error = %v", err)
	}
	if want := "gN7y2jQ72IbdvQZxrZLNmC4hrlDmB-KZnGJiGpoB4VEcOCn4\n"; got != want {
		t.Errorf("hash-site = %q, want %q", got, want)
	}
}

func TestAgent(t *testing.T) {
	a := newTestApp(t)
	cfg := []string{"--config", keccakConfig}

	if got, err := run(t, a, "", append(cfg, "agent", "status")...); err != nil || got != "locked\n" {
		t.Fatalf("agent status = %q, %v; want locked", got, err)
	}
	if _, err := run(t, a, "passacre\npassacre\n", append(cfg, "agent", "unlock")...); err != nil {
		t.Fatalf("agent unlock error = %v", err)
	}
	if got, _ := run(t, a, "", append(cfg, "agent", "status")...); got != "unlocked\n" {
		t.Errorf("agent status = %q, want unlocked", got)
	}
	if _, err := run(t, a, "passacre\npassacre\n", append(cfg, "agent", "unlock")...); !errors.Is(err, keystore.ErrUnlocked) {
		t.Errorf("second unlock error = %v, want ErrUnlocked", err)
	}

	// The cached password replaces the prompt.
	got, err := run(t, a, "", append(cfg, "generate", "schwab.com")...)
	if err != nil || got != "jRWs2Wzl\n" {
		t.Errorf("generate while unlocked = %q, %v; want jRWs2Wzl", got, err)
	}

	if _, err := run(t, a, "", append(cfg, "agent", "lock")...); err != nil {
		t.Fatalf("agent lock error = %v", err)
	}
	if _, err := run(t, a, "", append(cfg, "agent", "lock")...); !errors.Is(err, keystore.ErrLocked) {
		t.Errorf("second lock error = %v, want ErrLocked", err)
	}
}

func TestSites(t *testing.T) {
	a := newTestApp(t)
	cfg := []string{"--config", keccakConfig}

	if _, err := run(t, a, "passacre\n", append(cfg, "generate", "--save", "becu.org")...); err != nil {
		t.Fatalf("generate --save error = %v", err)
	}
	if _, err := run(t, a, "passacre\n", append(cfg, "sites", "add", "schwab.com", "fhcrc.org")...); err != nil {
		t.Fatalf("sites add error = %v", err)
	}
	if _, err := run(t, a, "passacre\n", append(cfg, "sites", "rm", "fhcrc.org")...); err != nil {
		t.Fatalf("sites rm error = %v", err)
	}
	got, err := run(t, a, "passacre\n", append(cfg, "sites", "list")...)
	if err != nil {
		t.Fatalf("sites list error = %v", err)
	}
	if want := "becu.org\nschwab.com\n"; got != want {
		t.Errorf("sites list = %q, want %q", got, want)
	}
	if _, err := run(t, a, "wrong\n", append(cfg, "sites", "list")...); errs.KindOf(err) != errs.User {
		t.Errorf("sites list with wrong password error = %v, want user error", err)
	}
}

func TestEntropy(t *testing.T) {
	a := newTestApp(t)
	got, err := run(t, a, "", "--config", keccakConfig, "entropy")
	if err != nil {
		t.Fatalf("entropy error = %v", err)
	}
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "schwab.com ") {
			if fields := strings.Fields(line); len(fields) != 3 || fields[1] != "48" || fields[2] != "config" {
				t.Errorf("schwab.com entropy line = %q, want 48 bits from config", line)
			}
			return
		}
	}
	t.Errorf("entropy output has no schwab.com line:\n%s", got)
}

func TestConfigImportAndShow(t *testing.T) {
	a := newTestApp(t)
	db := filepath.Join(t.TempDir(), "passacre.sqlite")
	if _, err := run(t, a, "", "config", "import", keccakConfig, db); err != nil {
		t.Fatalf("config import error = %v", err)
	}
	got, err := run(t, a, "", "--config", db, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	for _, want := range []string{"words-file: words.txt", "schwab.com:", "increment: 5"} {
		if !strings.Contains(got, want) {
			t.Errorf("config show missing %q:\n%s", want, got)
		}
	}
}

func TestCompletion(t *testing.T) {
	a := newTestApp(t)
	got, err := run(t, a, "", "completion", "bash")
	if err != nil || !strings.Contains(got, "passacre") {
		t.Errorf("completion bash = %d bytes, %v", len(got), err)
	}
	if _, err := run(t, a, "", "completion", "tcsh"); err == nil {
		t.Error("completion tcsh error = nil")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" INFO ", zerolog.InfoLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.WarnLevel},
		{"verbose", zerolog.WarnLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
