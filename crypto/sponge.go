// Package crypto implements the sponge constructions passacre derives
// passwords from: a narrow-rate Keccak sponge and a Skein-512 PRNG.
//
// Both expose the same absorb-then-squeeze Sponge interface. Neither is a
// general purpose hash; the parameters are fixed so that derived passwords
// stay stable across releases.
package crypto

import (
	"strings"

	"github.com/joncooperworks/passacre/errs"
)

// Sponge absorbs identity material and then produces a deterministic byte
// stream. Absorb after the first Squeeze is an error.
type Sponge interface {
	Absorb(data []byte) error
	Squeeze(out []byte) error
	// Reset wipes all absorbed material.
	Reset()
}

// Algorithm selects the sponge construction.
type Algorithm uint32

const (
	// Keccak selects the Keccak sponge (selector 0).
	Keccak Algorithm = 0
	// Skein selects the Skein-512 PRNG (selector 1).
	Skein Algorithm = 1
)

var errAbsorbAfterSqueeze = errs.New(errs.User, "crypto.Absorb", "absorb after squeeze")

// String returns the configuration name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case Keccak:
		return "keccak"
	case Skein:
		return "skein"
	default:
		return "unknown"
	}
}

// AlgorithmFromSelector validates a numeric selector.
func AlgorithmFromSelector(selector uint32) (Algorithm, error) {
	switch Algorithm(selector) {
	case Keccak, Skein:
		return Algorithm(selector), nil
	}
	return 0, errs.New(errs.User, "crypto.AlgorithmFromSelector", "unknown algorithm selector %d", selector)
}

// ParseAlgorithm parses a configuration method name. Matching is case
// insensitive.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "keccak":
		return Keccak, nil
	case "skein":
		return Skein, nil
	}
	return 0, errs.New(errs.User, "crypto.ParseAlgorithm", "invalid method %q", name)
}

// NewSponge returns a fresh sponge for the algorithm.
func NewSponge(a Algorithm) (Sponge, error) {
	switch a {
	case Keccak:
		return NewKeccakSponge(), nil
	case Skein:
		return NewSkeinSponge(), nil
	}
	return nil, errs.New(errs.User, "crypto.NewSponge", "unknown algorithm %d", uint32(a))
}
