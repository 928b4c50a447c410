package plugin

import (
	"github.com/joncooperworks/passacre/boundary"
	"github.com/joncooperworks/passacre/crypto"
	"github.com/joncooperworks/passacre/errs"
	"github.com/joncooperworks/passacre/generator"
	"github.com/joncooperworks/passacre/schema"
)

// allocResult is the allocator host calls use for results: a Go buffer
// that the caller wipes once the result is copied out.
func allocResult(size uint64, _ any) []byte {
	return make([]byte, size)
}

// engine runs host calls through boundary handles, so a failing or
// panicking derivation comes back as a code on one context instead of
// unwinding into the WASM runtime.
type engine struct {
	ctx   []byte
	alloc boundary.AllocatorFunc
}

func newEngine(alloc boundary.AllocatorFunc) (*engine, error) {
	if alloc == nil {
		alloc = allocResult
	}
	e := &engine{ctx: make([]byte, boundary.ContextSize()), alloc: alloc}
	if code := boundary.ContextInit(e.ctx); code != boundary.OK {
		return nil, errs.New(code.Kind(), "plugin.engine", "failed to initialize context: %s", boundary.ErrorString(code))
	}
	return e, nil
}

func (e *engine) close() {
	boundary.ContextFinished(e.ctx)
}

// check turns the failure code of a boundary call into an error. A
// recovered panic carries its description.
func (e *engine) check(call string, code boundary.Code) error {
	const op = "plugin.engine"
	if code == boundary.OK {
		return nil
	}
	if code != boundary.Panic {
		return errs.New(code.Kind(), op, "%s failed", call)
	}
	var desc []byte
	boundary.ContextDescribePanic(e.ctx, func(size uint64, userData any) []byte {
		desc = allocResult(size, userData)
		return desc
	}, nil)
	return errs.New(errs.Panic, op, "%s", desc)
}

// multiBase compiles a JSON schema into a MultiBase handle. Schemas from
// plugins have no word list. The caller releases the handle.
func (e *engine) multiBase(schemaJSON []byte) ([]byte, error) {
	s, err := schema.ParseJSON(schemaJSON)
	if err != nil {
		return nil, err
	}
	bases, err := schema.Compile(s, nil)
	if err != nil {
		return nil, err
	}
	mb := make([]byte, boundary.MultiBaseSize())
	if err := e.check("MultiBaseInit", boundary.MultiBaseInit(e.ctx, mb)); err != nil {
		return nil, err
	}
	for _, b := range bases {
		if err := e.check("MultiBaseAddBase", boundary.MultiBaseAddBase(e.ctx, mb, uint32(b.Kind), []byte(b.Text))); err != nil {
			boundary.MultiBaseFinished(e.ctx, mb)
			return nil, err
		}
	}
	return mb, nil
}

// entropyBits compiles a JSON schema and returns its entropy.
func (e *engine) entropyBits(schemaJSON []byte) (uint64, error) {
	mb, err := e.multiBase(schemaJSON)
	if err != nil {
		return 0, err
	}
	defer boundary.MultiBaseFinished(e.ctx, mb)
	var bits uint64
	if err := e.check("MultiBaseEntropyBits", boundary.MultiBaseEntropyBits(e.ctx, mb, &bits)); err != nil {
		return 0, err
	}
	return bits, nil
}

// derive runs one derivation through a generator handle.
func (e *engine) derive(req DeriveRequest) (string, error) {
	method := req.Method
	if method == "" {
		method = "keccak"
	}
	alg, err := crypto.ParseAlgorithm(method)
	if err != nil {
		return "", err
	}
	mb, err := e.multiBase(req.Schema)
	if err != nil {
		return "", err
	}
	defer boundary.MultiBaseFinished(e.ctx, mb)

	gen := make([]byte, boundary.GeneratorSize())
	if err := e.check("GeneratorInit", boundary.GeneratorInit(e.ctx, gen, uint32(alg))); err != nil {
		return "", err
	}
	defer boundary.GeneratorFinished(e.ctx, gen)

	username, password := []byte(req.Username), []byte(req.Password)
	defer crypto.Zeroize(password)
	site := []byte(generator.NormalizeSite(req.Site))
	if err := e.check("GeneratorAbsorbUsernamePasswordSite", boundary.GeneratorAbsorbUsernamePasswordSite(e.ctx, gen, username, password, site)); err != nil {
		return "", err
	}
	if err := e.check("GeneratorAbsorbNullRounds", boundary.GeneratorAbsorbNullRounds(e.ctx, gen, req.Iterations)); err != nil {
		return "", err
	}

	var out []byte
	code := boundary.GeneratorSqueezePassword(e.ctx, gen, mb, func(size uint64, userData any) []byte {
		out = e.alloc(size, userData)
		if uint64(len(out)) > size {
			out = out[:size]
		}
		return out
	}, nil)
	if err := e.check("GeneratorSqueezePassword", code); err != nil {
		return "", err
	}
	defer crypto.Zeroize(out)
	return string(out), nil
}
