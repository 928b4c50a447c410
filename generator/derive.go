package generator

import (
	"strings"
	"unicode"

	"golang.org/x/net/idna"

	"github.com/joncooperworks/passacre/crypto"
	"github.com/joncooperworks/passacre/errs"
	"github.com/joncooperworks/passacre/multibase"
)

// DefaultIterations is the null round count used when none is configured.
const DefaultIterations = 1000

// Options configures one derivation.
type Options struct {
	Algorithm crypto.Algorithm
	// Iterations and Increment are summed into the null round count.
	Iterations uint64
	Increment  uint64
	// Scrypt enables key stretching when non-nil.
	Scrypt *ScryptParams
	// Persistence optionally receives the stretched key. With Resume set it
	// supplies a previously stretched key instead.
	Persistence []byte
	Resume      bool
}

// NullRounds returns Iterations + Increment.
func (o Options) NullRounds() uint64 {
	return o.Iterations + o.Increment
}

// siteAlphabet is the 64-symbol alphabet of hashed site names. 48 digits
// carry 288 bits, so 36 squeezed bytes never need rejection.
const siteAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

const siteHashLength = 48

var siteMultiBase = func() *multibase.MultiBase {
	mb := multibase.New()
	for i := 0; i < siteHashLength; i++ {
		if err := mb.AddBase(multibase.Base{Kind: multibase.Characters, Text: siteAlphabet}); err != nil {
			panic(err)
		}
	}
	return mb
}()

// SiteMultiBase returns the MultiBase used for hashed site names.
func SiteMultiBase() *multibase.MultiBase {
	return siteMultiBase
}

// NormalizeSite converts internationalised domain names to their ASCII
// form. Plain ASCII sites, and strings that do not look like domain names,
// are returned unchanged.
func NormalizeSite(site string) string {
	ascii := true
	for _, r := range site {
		if r > unicode.MaxASCII {
			ascii = false
		}
		if unicode.IsSpace(r) {
			return site
		}
	}
	if ascii || !strings.Contains(site, ".") {
		return site
	}
	converted, err := idna.ToASCII(site)
	if err != nil {
		return site
	}
	return converted
}

// Seeded returns a generator that has absorbed username, password, site and
// the configured null rounds, ready to squeeze.
func Seeded(username, password, site string, opts Options) (*Generator, error) {
	g, err := New(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	if opts.Scrypt != nil {
		if opts.Resume {
			err = g.UsePersistedScrypt(opts.Persistence)
		} else {
			err = g.UseScrypt(*opts.Scrypt, opts.Persistence)
		}
		if err != nil {
			g.Close()
			return nil, err
		}
	}
	if err := g.AbsorbUsernamePasswordSite([]byte(username), []byte(password), []byte(NormalizeSite(site))); err != nil {
		g.Close()
		return nil, err
	}
	if err := g.AbsorbNullRounds(opts.NullRounds()); err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

// Derive generates the password for site encoded with mb.
func Derive(username, password, site string, mb *multibase.MultiBase, opts Options) (string, error) {
	if mb == nil {
		return "", errs.New(errs.User, "generator.Derive", "multibase cannot be nil")
	}
	g, err := Seeded(username, password, site, opts)
	if err != nil {
		return "", err
	}
	defer g.Close()
	return g.SqueezePassword(mb)
}

// DeriveBytes squeezes n raw bytes for site, for use as key material.
func DeriveBytes(username, password, site string, n int, opts Options) ([]byte, error) {
	g, err := Seeded(username, password, site, opts)
	if err != nil {
		return nil, err
	}
	defer g.Close()
	out := make([]byte, n)
	if err := g.Squeeze(out); err != nil {
		return nil, err
	}
	return out, nil
}

// HashSite returns the opaque stand-in name for site. No username is
// absorbed.
func HashSite(password, site string, opts Options) (string, error) {
	return Derive("", password, site, siteMultiBase, opts)
}
