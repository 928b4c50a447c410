// Package boundary exposes the derivation engine to callers that manage
// their own memory, such as foreign-function or WASM hosts.
//
// Callers allocate opaque handle blocks of the advertised size and pass
// them to Init, to the operations, and finally to Finished. Every operation
// returns a Code instead of an error, and never panics: a panic inside an
// operation is recovered, recorded in the context handle and reported as
// Panic. Variable-length results are written into a buffer obtained from a
// caller-supplied Allocator.
package boundary

import (
	"fmt"
	"sync"

	"github.com/joncooperworks/passacre/errs"
)

// Code is the result of a boundary operation. Zero is success and every
// failure is negative.
type Code int32

const (
	OK        Code = 0
	Panic     Code = -1
	Keccak    Code = -2
	Skein     Code = -3
	Scrypt    Code = -4
	User      Code = -5
	Internal  Code = -6
	Domain    Code = -7
	Allocator Code = -8
)

var codeKinds = map[Code]errs.Kind{
	Panic:     errs.Panic,
	Keccak:    errs.Keccak,
	Skein:     errs.Skein,
	Scrypt:    errs.Scrypt,
	User:      errs.User,
	Internal:  errs.Internal,
	Domain:    errs.Domain,
	Allocator: errs.Allocator,
}

// Kind maps a failure code back to its error kind. Unknown codes are
// Internal.
func (c Code) Kind() errs.Kind {
	if k, ok := codeKinds[c]; ok {
		return k
	}
	return errs.Internal
}

// CodeOf maps an error to its code. A nil error is OK.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	kind := errs.KindOf(err)
	for code, k := range codeKinds {
		if k == kind {
			return code
		}
	}
	return Internal
}

// ErrorString describes a code. It needs no handle.
func ErrorString(code Code) []byte {
	if code == OK {
		return []byte("ok")
	}
	kind, ok := codeKinds[code]
	if !ok {
		return []byte("unknown error")
	}
	return []byte(kind.String())
}

// AllocatorFunc returns a buffer of at least size bytes for a result. It
// is called at most once per operation. Returning nil or a short buffer
// fails the operation with Allocator.
type AllocatorFunc func(size uint64, userData any) []byte

func allocate(alloc AllocatorFunc, userData any, result []byte) Code {
	if alloc == nil {
		return User
	}
	buf := alloc(uint64(len(result)), userData)
	if buf == nil || len(buf) < len(result) {
		return Allocator
	}
	copy(buf, result)
	return OK
}

type contextState struct {
	mu    sync.Mutex
	panic string
}

func (c *contextState) recordPanic(desc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panic = desc
}

func (c *contextState) lastPanic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panic
}

// ContextSize is the size in bytes of a context block.
func ContextSize() uint64 { return blockSize }

// ContextAlign is the required alignment of every handle block.
func ContextAlign() uint64 { return blockAlign }

// ContextInit initializes a zeroed context block.
func ContextInit(ctx []byte) Code {
	return initBlock(ctx, magicContext, &contextState{})
}

// ContextFinished releases a context. Handles created with it stay valid
// but can no longer be operated on.
func ContextFinished(ctx []byte) Code {
	if _, ok := finishBlock(ctx, magicContext); !ok {
		return User
	}
	return OK
}

// ContextDescribePanic returns the description of the most recent panic
// recovered under ctx, or an empty result if there was none.
func ContextDescribePanic(ctx []byte, alloc AllocatorFunc, userData any) Code {
	c, ok := lookup[*contextState](ctx, magicContext)
	if !ok {
		return User
	}
	return allocate(alloc, userData, []byte(c.lastPanic()))
}

// guard resolves ctx and runs fn, converting a panic into Panic.
func guard(ctx []byte, op string, fn func() Code) (code Code) {
	c, ok := lookup[*contextState](ctx, magicContext)
	if !ok {
		return User
	}
	defer func() {
		if r := recover(); r != nil {
			c.recordPanic(fmt.Sprintf("%s: %v", op, r))
			code = Panic
		}
	}()
	return fn()
}
