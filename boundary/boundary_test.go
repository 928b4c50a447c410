package boundary

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/joncooperworks/passacre/errs"
)

// collector is an allocator that keeps the last buffer it handed out.
type collector struct {
	buf []byte
}

func (c *collector) alloc(size uint64, _ any) []byte {
	c.buf = make([]byte, size)
	return c.buf
}

func newContext(t *testing.T) []byte {
	t.Helper()
	ctx := make([]byte, ContextSize())
	if code := ContextInit(ctx); code != OK {
		t.Fatalf("ContextInit() = %d, want OK", code)
	}
	t.Cleanup(func() { ContextFinished(ctx) })
	return ctx
}

func newGenerator(t *testing.T, ctx []byte, algorithm uint32) []byte {
	t.Helper()
	gen := make([]byte, GeneratorSize())
	if code := GeneratorInit(ctx, gen, algorithm); code != OK {
		t.Fatalf("GeneratorInit() = %d, want OK", code)
	}
	return gen
}

func alphanumeric8(t *testing.T, ctx []byte) []byte {
	t.Helper()
	mb := make([]byte, MultiBaseSize())
	if code := MultiBaseInit(ctx, mb); code != OK {
		t.Fatalf("MultiBaseInit() = %d, want OK", code)
	}
	alnum := []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz")
	for i := 0; i < 8; i++ {
		if code := MultiBaseAddBase(ctx, mb, 1, alnum); code != OK {
			t.Fatalf("MultiBaseAddBase() = %d, want OK", code)
		}
	}
	return mb
}

func TestSizesAndAlignment(t *testing.T) {
	for name, size := range map[string]uint64{
		"context":   ContextSize(),
		"generator": GeneratorSize(),
		"multibase": MultiBaseSize(),
	} {
		if size == 0 || size%ContextAlign() != 0 {
			t.Errorf("%s size = %d, want a non-zero multiple of %d", name, size, ContextAlign())
		}
	}
	if GeneratorAlign() != ContextAlign() || MultiBaseAlign() != ContextAlign() {
		t.Errorf("alignments differ: %d %d %d", ContextAlign(), GeneratorAlign(), MultiBaseAlign())
	}
	if GeneratorScryptBufferSize() != 64 {
		t.Errorf("GeneratorScryptBufferSize() = %d, want 64", GeneratorScryptBufferSize())
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{OK, "ok"},
		{User, "user error"},
		{Domain, "domain error"},
		{Allocator, "allocator error"},
		{Code(-42), "unknown error"},
		{Code(7), "unknown error"},
	}
	for _, tt := range tests {
		if got := string(ErrorString(tt.code)); got != tt.want {
			t.Errorf("ErrorString(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestCodeKind(t *testing.T) {
	tests := []struct {
		code Code
		want errs.Kind
	}{
		{Panic, errs.Panic},
		{Skein, errs.Skein},
		{User, errs.User},
		{Allocator, errs.Allocator},
		{Code(-42), errs.Internal},
	}
	for _, tt := range tests {
		if got := tt.code.Kind(); got != tt.want {
			t.Errorf("Code(%d).Kind() = %v, want %v", tt.code, got, tt.want)
		}
		if tt.want != errs.Internal && CodeOf(errs.E(tt.want)) != tt.code {
			t.Errorf("CodeOf(%v) = %d, want %d", tt.want, CodeOf(errs.E(tt.want)), tt.code)
		}
	}
}

func TestContextLifecycle(t *testing.T) {
	ctx := make([]byte, ContextSize())
	if code := ContextInit(ctx); code != OK {
		t.Fatalf("ContextInit() = %d", code)
	}
	if code := ContextInit(ctx); code != User {
		t.Errorf("second ContextInit() = %d, want User", code)
	}
	if code := ContextFinished(ctx); code != OK {
		t.Fatalf("ContextFinished() = %d", code)
	}
	if code := ContextFinished(ctx); code != User {
		t.Errorf("second ContextFinished() = %d, want User", code)
	}
	if code := ContextInit(make([]byte, ContextSize()-1)); code != User {
		t.Errorf("ContextInit(short) = %d, want User", code)
	}

	gen := make([]byte, GeneratorSize())
	if code := GeneratorInit(ctx, gen, 0); code != User {
		t.Errorf("GeneratorInit(finished ctx) = %d, want User", code)
	}
}

func TestGeneratorPassword(t *testing.T) {
	tests := []struct {
		name      string
		algorithm uint32
		username  string
		want      string
	}{
		{"keccak", 0, "", "jRWs2Wzl"},
		{"keccak username", 0, "passacre", "JkbefmM3"},
		{"skein", 1, "", "2CFNqPya"},
		{"skein username", 1, "passacre", "sKvqo9Y0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newContext(t)
			gen := newGenerator(t, ctx, tt.algorithm)
			mb := alphanumeric8(t, ctx)

			if code := GeneratorAbsorbUsernamePasswordSite(ctx, gen, []byte(tt.username), []byte("passacre"), []byte("schwab.com")); code != OK {
				t.Fatalf("GeneratorAbsorbUsernamePasswordSite() = %d", code)
			}
			if code := GeneratorAbsorbNullRounds(ctx, gen, 10); code != OK {
				t.Fatalf("GeneratorAbsorbNullRounds() = %d", code)
			}
			var c collector
			if code := GeneratorSqueezePassword(ctx, gen, mb, c.alloc, nil); code != OK {
				t.Fatalf("GeneratorSqueezePassword() = %d", code)
			}
			if got := string(c.buf); got != tt.want {
				t.Errorf("password = %q, want %q", got, tt.want)
			}
			if code := GeneratorFinished(ctx, gen); code != OK {
				t.Errorf("GeneratorFinished() = %d", code)
			}
			if code := MultiBaseFinished(ctx, mb); code != OK {
				t.Errorf("MultiBaseFinished() = %d", code)
			}
		})
	}
}

func TestGeneratorSqueezeStream(t *testing.T) {
	ctx := newContext(t)
	gen := newGenerator(t, ctx, 0)
	if code := GeneratorAbsorbUsernamePasswordSite(ctx, gen, nil, []byte("passacre"), []byte("schwab.com")); code != OK {
		t.Fatalf("absorb = %d", code)
	}
	if code := GeneratorAbsorbNullRounds(ctx, gen, 10); code != OK {
		t.Fatalf("null rounds = %d", code)
	}
	out := make([]byte, 16)
	if code := GeneratorSqueeze(ctx, gen, out); code != OK {
		t.Fatalf("GeneratorSqueeze() = %d", code)
	}
	if got := hex.EncodeToString(out); got != "3fa43d91bba7cce06173d8f978cda08a" {
		t.Errorf("squeezed %s", got)
	}
	if code := GeneratorAbsorbNullRounds(ctx, gen, 1); code != User {
		t.Errorf("absorb after squeeze = %d, want User", code)
	}
}

func TestGeneratorStateErrors(t *testing.T) {
	ctx := newContext(t)

	gen := make([]byte, GeneratorSize())
	if code := GeneratorInit(ctx, gen, 9); code != User {
		t.Errorf("GeneratorInit(bad selector) = %d, want User", code)
	}
	if code := GeneratorSqueeze(ctx, gen, make([]byte, 4)); code != User {
		t.Errorf("GeneratorSqueeze(uninitialized) = %d, want User", code)
	}

	gen = newGenerator(t, ctx, 0)
	if code := GeneratorAbsorbNullRounds(ctx, gen, 1); code != User {
		t.Errorf("null rounds before password = %d, want User", code)
	}
	if code := GeneratorInit(ctx, gen, 0); code != User {
		t.Errorf("double GeneratorInit() = %d, want User", code)
	}
	if code := GeneratorFinished(ctx, gen); code != OK {
		t.Fatalf("GeneratorFinished() = %d", code)
	}

	gen = newGenerator(t, ctx, 0)
	if code := GeneratorUseScrypt(ctx, gen, 16, 0, 1, nil); code != OK {
		t.Fatalf("GeneratorUseScrypt() = %d", code)
	}
	if code := GeneratorAbsorbUsernamePasswordSite(ctx, gen, nil, []byte("passacre"), []byte("example.com")); code != Scrypt {
		t.Errorf("absorb with r=0 = %d, want Scrypt", code)
	}
	if code := GeneratorFinished(ctx, gen); code != OK {
		t.Fatalf("GeneratorFinished() = %d", code)
	}
	if code := GeneratorFinished(ctx, gen); code != User {
		t.Errorf("second GeneratorFinished() = %d, want User", code)
	}

	// A MultiBase block is not a generator.
	mb := alphanumeric8(t, ctx)
	if code := GeneratorSqueeze(ctx, mb, make([]byte, 4)); code != User {
		t.Errorf("GeneratorSqueeze(multibase block) = %d, want User", code)
	}
}

func TestScryptPersistenceThroughHandles(t *testing.T) {
	ctx := newContext(t)
	persisted := make([]byte, GeneratorScryptBufferSize())

	first := newGenerator(t, ctx, 0)
	if code := GeneratorUseScrypt(ctx, first, 16, 1, 1, persisted); code != OK {
		t.Fatalf("GeneratorUseScrypt() = %d", code)
	}
	if code := GeneratorAbsorbUsernamePasswordSite(ctx, first, []byte("user"), []byte("passacre"), []byte("example.com")); code != OK {
		t.Fatalf("absorb = %d", code)
	}
	want := make([]byte, 32)
	if code := GeneratorSqueeze(ctx, first, want); code != OK {
		t.Fatalf("squeeze = %d", code)
	}
	if bytes.Equal(persisted, bytes.Repeat([]byte{'x'}, len(persisted))) {
		t.Fatal("persistence buffer was not filled")
	}

	second := newGenerator(t, ctx, 0)
	if code := GeneratorUsePersistedScrypt(ctx, second, persisted); code != OK {
		t.Fatalf("GeneratorUsePersistedScrypt() = %d", code)
	}
	if code := GeneratorAbsorbUsernamePasswordSite(ctx, second, []byte("user"), []byte("ignored"), []byte("example.com")); code != OK {
		t.Fatalf("absorb = %d", code)
	}
	got := make([]byte, 32)
	if code := GeneratorSqueeze(ctx, second, got); code != OK {
		t.Fatalf("squeeze = %d", code)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("resumed output %x, want %x", got, want)
	}
}

func TestMultiBaseOperations(t *testing.T) {
	ctx := newContext(t)
	mb := make([]byte, MultiBaseSize())
	if code := MultiBaseInit(ctx, mb); code != OK {
		t.Fatalf("MultiBaseInit() = %d", code)
	}
	for _, step := range []struct {
		kind uint32
		data string
	}{{1, "0123456789"}, {0, "-"}, {1, "0123456789"}} {
		if code := MultiBaseAddBase(ctx, mb, step.kind, []byte(step.data)); code != OK {
			t.Fatalf("MultiBaseAddBase(%d, %q) = %d", step.kind, step.data, code)
		}
	}
	if code := MultiBaseAddBase(ctx, mb, 7, []byte("x")); code != User {
		t.Errorf("MultiBaseAddBase(bad kind) = %d, want User", code)
	}

	var required, bits uint64
	if code := MultiBaseRequiredBytes(ctx, mb, &required); code != OK || required != 1 {
		t.Errorf("MultiBaseRequiredBytes() = %d, %d; want OK, 1", code, required)
	}
	if code := MultiBaseEntropyBits(ctx, mb, &bits); code != OK || bits != 7 {
		t.Errorf("MultiBaseEntropyBits() = %d, %d; want OK, 7", code, bits)
	}
	if code := MultiBaseRequiredBytes(ctx, mb, nil); code != User {
		t.Errorf("MultiBaseRequiredBytes(nil) = %d, want User", code)
	}

	var enc collector
	if code := MultiBaseEncodeFromBytes(ctx, mb, []byte{42}, enc.alloc, nil); code != OK {
		t.Fatalf("MultiBaseEncodeFromBytes() = %d", code)
	}
	if got := string(enc.buf); got != "4-2" {
		t.Errorf("encoded %q, want %q", got, "4-2")
	}
	if code := MultiBaseEncodeFromBytes(ctx, mb, []byte{100}, enc.alloc, nil); code != Domain {
		t.Errorf("MultiBaseEncodeFromBytes(100) = %d, want Domain", code)
	}

	var dec collector
	if code := MultiBaseDecode(ctx, mb, []byte("9-9"), dec.alloc, nil); code != OK {
		t.Fatalf("MultiBaseDecode() = %d", code)
	}
	if !bytes.Equal(dec.buf, []byte{99}) {
		t.Errorf("decoded %x, want 63", dec.buf)
	}
	if code := MultiBaseDecode(ctx, mb, []byte("9+9"), dec.alloc, nil); code != Domain {
		t.Errorf("MultiBaseDecode(bad separator) = %d, want Domain", code)
	}
}

func TestMultiBaseWords(t *testing.T) {
	ctx := newContext(t)
	mb := make([]byte, MultiBaseSize())
	if code := MultiBaseInit(ctx, mb); code != OK {
		t.Fatalf("MultiBaseInit() = %d", code)
	}
	if code := MultiBaseAddBase(ctx, mb, 2, nil); code != User {
		t.Errorf("MultiBaseAddBase(word) without words = %d, want User", code)
	}
	if code := MultiBaseSetWords(ctx, mb, [][]byte{[]byte("alpha"), []byte("beta")}); code != OK {
		t.Fatalf("MultiBaseSetWords() = %d", code)
	}
	if code := MultiBaseSetWords(ctx, mb, [][]byte{[]byte("again")}); code != User {
		t.Errorf("second MultiBaseSetWords() = %d, want User", code)
	}
	if code := MultiBaseAddBase(ctx, mb, 2, nil); code != OK {
		t.Fatalf("MultiBaseAddBase(word) = %d", code)
	}
	var enc collector
	if code := MultiBaseEncodeFromBytes(ctx, mb, []byte{1}, enc.alloc, nil); code != OK {
		t.Fatalf("MultiBaseEncodeFromBytes() = %d", code)
	}
	if got := string(enc.buf); got != "beta" {
		t.Errorf("encoded %q, want beta", got)
	}

	other := make([]byte, MultiBaseSize())
	MultiBaseInit(ctx, other)
	if code := MultiBaseLoadWordsFromPath(ctx, other, []byte("../testdata/words.txt")); code != OK {
		t.Errorf("MultiBaseLoadWordsFromPath() = %d", code)
	}
	if code := MultiBaseLoadWordsFromPath(ctx, other, []byte("../testdata/missing.txt")); code != User {
		t.Errorf("MultiBaseLoadWordsFromPath(missing) = %d, want User", code)
	}
}

func TestAllocatorFailures(t *testing.T) {
	ctx := newContext(t)
	mb := alphanumeric8(t, ctx)

	short := func(size uint64, _ any) []byte { return make([]byte, size/2) }
	refuse := func(uint64, any) []byte { return nil }
	if code := MultiBaseEncodeFromBytes(ctx, mb, []byte{1}, short, nil); code != Allocator {
		t.Errorf("short allocator = %d, want Allocator", code)
	}
	if code := MultiBaseEncodeFromBytes(ctx, mb, []byte{1}, refuse, nil); code != Allocator {
		t.Errorf("refusing allocator = %d, want Allocator", code)
	}
	if code := MultiBaseEncodeFromBytes(ctx, mb, []byte{1}, nil, nil); code != User {
		t.Errorf("nil allocator = %d, want User", code)
	}

	var seen any
	record := func(size uint64, ud any) []byte {
		seen = ud
		return make([]byte, size)
	}
	MultiBaseEncodeFromBytes(ctx, mb, []byte{1}, record, "token")
	if seen != "token" {
		t.Errorf("allocator user data = %v, want token", seen)
	}
}

func TestPanicContainment(t *testing.T) {
	ctx := newContext(t)
	gen := newGenerator(t, ctx, 1)
	mb := alphanumeric8(t, ctx)
	GeneratorAbsorbUsernamePasswordSite(ctx, gen, nil, []byte("passacre"), []byte("schwab.com"))

	explode := func(uint64, any) []byte { panic("allocator exploded") }
	if code := GeneratorSqueezePassword(ctx, gen, mb, explode, nil); code != Panic {
		t.Fatalf("GeneratorSqueezePassword(panicking allocator) = %d, want Panic", code)
	}

	var desc collector
	if code := ContextDescribePanic(ctx, desc.alloc, nil); code != OK {
		t.Fatalf("ContextDescribePanic() = %d", code)
	}
	got := string(desc.buf)
	if !strings.Contains(got, "GeneratorSqueezePassword") || !strings.Contains(got, "allocator exploded") {
		t.Errorf("panic description = %q", got)
	}

	// The context survives and keeps serving other handles.
	if code := MultiBaseFinished(ctx, mb); code != OK {
		t.Errorf("MultiBaseFinished() after panic = %d", code)
	}
}
