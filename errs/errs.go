// Package errs defines the error taxonomy shared by every passacre package.
//
// Each failure is classified into a Kind. Kinds have stable numeric codes so
// the same classification survives the trip across the handle boundary in
// package boundary, and stable strings for the CLI.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	// Internal is an invariant violation inside passacre. It is also the
	// kind of any error that carries no classification.
	Internal Kind = iota
	// Panic is a recovered panic.
	Panic
	// Keccak is a failure of the Keccak sponge.
	Keccak
	// Skein is a failure of the Skein hash or PRNG.
	Skein
	// Scrypt is a failure of the scrypt stretch, including bad parameters.
	Scrypt
	// User is invalid input or a lifecycle violation by the caller.
	User
	// Domain is a value outside what a MultiBase can represent.
	Domain
	// Allocator is a failure of a caller-supplied allocator.
	Allocator
)

var kindStrings = map[Kind]string{
	Panic:     "panic",
	Keccak:    "keccak error",
	Skein:     "skein error",
	Scrypt:    "scrypt error",
	User:      "user error",
	Internal:  "internal error",
	Domain:    "domain error",
	Allocator: "allocator error",
}

// String returns the stable description of the kind.
func (k Kind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}
	return "unknown error"
}

// Error is a classified error.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "multibase.Encode".
	Op string
	// Context is a human readable detail such as a schema path or digit
	// position.
	Context string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Context != "" {
		b.WriteString(": ")
		b.WriteString(e.Context)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. It lets callers
// write errors.Is(err, errs.E(errs.User)).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.Context == "" && t.Err == nil && t.Kind == e.Kind
}

// E returns a bare error of the given kind, suitable as an errors.Is target.
func E(kind Kind) error {
	return &Error{Kind: kind}
}

// New returns a classified error with a formatted context message.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Context: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. It returns nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain, or
// Internal when err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
