// Package generator implements the passacre derivation pipeline: a state
// machine that absorbs identity material into a sponge, optionally stretched
// through scrypt, and squeezes rejection-sampled integers for a MultiBase.
package generator

import (
	"bytes"
	"fmt"
	"math"
	"math/big"

	"golang.org/x/crypto/scrypt"

	"github.com/joncooperworks/passacre/crypto"
	"github.com/joncooperworks/passacre/errs"
	"github.com/joncooperworks/passacre/multibase"
)

// ScryptBufferSize is the size of the scrypt output and of the optional
// persistence buffer.
const ScryptBufferSize = 64

// NullRoundSize is the number of zero bytes absorbed per null round.
const NullRoundSize = 1024

var (
	delimiter  = []byte(":")
	nullRound  = make([]byte, NullRoundSize)
	scryptFill = byte('x')
)

// State is the lifecycle position of a Generator.
type State int

const (
	Initialized State = iota
	KdfSelected
	AbsorbedPassword
	AbsorbedNulls
	Squeezing
	Closed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case KdfSelected:
		return "kdf-selected"
	case AbsorbedPassword:
		return "absorbed-password"
	case AbsorbedNulls:
		return "absorbed-nulls"
	case Squeezing:
		return "squeezing"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ScryptParams are the scrypt work factors.
type ScryptParams struct {
	N uint64 `yaml:"n" json:"n"`
	R uint32 `yaml:"r" json:"r"`
	P uint32 `yaml:"p" json:"p"`
}

// Generator is a single-use derivation context. It is not safe for
// concurrent use.
type Generator struct {
	algorithm crypto.Algorithm
	state     State
	sponge    crypto.Sponge

	scrypt      *ScryptParams
	persistence []byte
	persisted   []byte
}

// New returns a generator for the algorithm.
func New(algorithm crypto.Algorithm) (*Generator, error) {
	sponge, err := crypto.NewSponge(algorithm)
	if err != nil {
		return nil, err
	}
	return &Generator{algorithm: algorithm, sponge: sponge}, nil
}

// Algorithm returns the generator's sponge algorithm.
func (g *Generator) Algorithm() crypto.Algorithm {
	return g.algorithm
}

// State returns the current lifecycle state.
func (g *Generator) State() State {
	return g.state
}

func (g *Generator) lifecycle(op string) error {
	return errs.New(errs.User, op, "not valid in state %s", g.state)
}

// UseScrypt selects scrypt stretching. It must precede absorption. If
// persistence is non-nil it must be ScryptBufferSize bytes; it is filled
// with a placeholder now and receives the stretched key when the password
// is absorbed.
func (g *Generator) UseScrypt(params ScryptParams, persistence []byte) error {
	const op = "generator.UseScrypt"
	if g.state != Initialized {
		return g.lifecycle(op)
	}
	if persistence != nil && len(persistence) != ScryptBufferSize {
		return errs.New(errs.User, op, "persistence buffer must be %d bytes, got %d", ScryptBufferSize, len(persistence))
	}
	p := params
	g.scrypt = &p
	g.persistence = persistence
	for i := range persistence {
		persistence[i] = scryptFill
	}
	g.state = KdfSelected
	return nil
}

// UsePersistedScrypt resumes from a stretched key previously written to a
// persistence buffer, skipping the scrypt computation.
func (g *Generator) UsePersistedScrypt(persisted []byte) error {
	const op = "generator.UsePersistedScrypt"
	if g.state != Initialized {
		return g.lifecycle(op)
	}
	if len(persisted) != ScryptBufferSize {
		return errs.New(errs.User, op, "persisted key must be %d bytes, got %d", ScryptBufferSize, len(persisted))
	}
	if bytes.Count(persisted, []byte{scryptFill}) == ScryptBufferSize {
		return errs.New(errs.User, op, "persistence buffer was never filled")
	}
	g.persisted = append([]byte(nil), persisted...)
	g.state = KdfSelected
	return nil
}

func (g *Generator) absorb(op string, data []byte) error {
	if err := g.sponge.Absorb(data); err != nil {
		kind := errs.Keccak
		if g.algorithm == crypto.Skein {
			kind = errs.Skein
		}
		return errs.Wrap(kind, op, err)
	}
	return nil
}

func (g *Generator) stretch(username, password []byte) ([]byte, error) {
	const op = "generator.AbsorbUsernamePasswordSite"
	if g.persisted != nil {
		return g.persisted, nil
	}
	p := g.scrypt
	if p.N > math.MaxInt32 || p.R == 0 || p.P == 0 {
		return nil, errs.New(errs.Scrypt, op, "invalid parameters N=%d r=%d p=%d", p.N, p.R, p.P)
	}
	key, err := scrypt.Key(password, username, int(p.N), int(p.R), int(p.P), ScryptBufferSize)
	if err != nil {
		return nil, errs.Wrap(errs.Scrypt, op, err)
	}
	return key, nil
}

// AbsorbUsernamePasswordSite absorbs the identity material. Without scrypt
// the seed is "username:" (when username is non-empty), "password:" and
// site. With scrypt the stretched key, salted with username, replaces the
// username and password.
func (g *Generator) AbsorbUsernamePasswordSite(username, password, site []byte) error {
	const op = "generator.AbsorbUsernamePasswordSite"
	if g.state != Initialized && g.state != KdfSelected {
		return g.lifecycle(op)
	}
	if g.state == KdfSelected {
		key, err := g.stretch(username, password)
		if err != nil {
			return err
		}
		err = g.absorb(op, key)
		if g.persistence != nil {
			copy(g.persistence, key)
		}
		crypto.Zeroize(key)
		g.persisted = nil
		if err != nil {
			return err
		}
	} else {
		if len(username) > 0 {
			if err := g.absorb(op, username); err != nil {
				return err
			}
			if err := g.absorb(op, delimiter); err != nil {
				return err
			}
		}
		if err := g.absorb(op, password); err != nil {
			return err
		}
	}
	if err := g.absorb(op, delimiter); err != nil {
		return err
	}
	if err := g.absorb(op, site); err != nil {
		return err
	}
	g.state = AbsorbedPassword
	return nil
}

// AbsorbNullRounds absorbs rounds blocks of NullRoundSize zero bytes. It
// may be called more than once before squeezing.
func (g *Generator) AbsorbNullRounds(rounds uint64) error {
	const op = "generator.AbsorbNullRounds"
	if g.state != AbsorbedPassword && g.state != AbsorbedNulls {
		return g.lifecycle(op)
	}
	for i := uint64(0); i < rounds; i++ {
		if err := g.absorb(op, nullRound); err != nil {
			return err
		}
	}
	g.state = AbsorbedNulls
	return nil
}

// Squeeze fills out with generator output.
func (g *Generator) Squeeze(out []byte) error {
	const op = "generator.Squeeze"
	switch g.state {
	case AbsorbedPassword, AbsorbedNulls:
		g.state = Squeezing
	case Squeezing:
	default:
		return g.lifecycle(op)
	}
	if err := g.sponge.Squeeze(out); err != nil {
		kind := errs.Keccak
		if g.algorithm == crypto.Skein {
			kind = errs.Skein
		}
		return errs.Wrap(kind, op, err)
	}
	return nil
}

// SqueezeFor draws a uniformly distributed integer in [0, max] for mb by
// rejection sampling RequiredBytes big-endian bytes at a time.
func (g *Generator) SqueezeFor(mb *multibase.MultiBase) (*big.Int, error) {
	if mb == nil {
		return nil, errs.New(errs.User, "generator.SqueezeFor", "multibase cannot be nil")
	}
	max := mb.MaxEncodableValue()
	buf := make([]byte, mb.RequiredBytes())
	defer crypto.Zeroize(buf)
	v := new(big.Int)
	for {
		if err := g.Squeeze(buf); err != nil {
			return nil, err
		}
		v.SetBytes(buf)
		if v.Cmp(max) <= 0 {
			return v, nil
		}
	}
}

// SqueezePassword draws a value for mb and encodes it.
func (g *Generator) SqueezePassword(mb *multibase.MultiBase) (string, error) {
	v, err := g.SqueezeFor(mb)
	if err != nil {
		return "", err
	}
	return mb.Encode(v)
}

// Close wipes the sponge. The generator cannot be used afterwards.
func (g *Generator) Close() {
	g.sponge.Reset()
	if g.persisted != nil {
		crypto.Zeroize(g.persisted)
		g.persisted = nil
	}
	g.persistence = nil
	g.state = Closed
}
