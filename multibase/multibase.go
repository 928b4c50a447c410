// Package multibase implements a mixed-radix codec between non-negative
// integers and strings.
//
// A MultiBase is an ordered list of bases. Each base is a separator (a
// fixed string carrying no value), an alphabet of characters, or a
// reference to the word list. An integer is encoded by repeated divmod from
// the last base to the first, so the first base holds the most significant
// digit.
package multibase

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/joncooperworks/passacre/errs"
)

// Kind identifies the type of a Base. The numeric values are the selectors
// used by the handle boundary.
type Kind uint32

const (
	Separator  Kind = 0
	Characters Kind = 1
	Words      Kind = 2
)

func (k Kind) String() string {
	switch k {
	case Separator:
		return "separator"
	case Characters:
		return "characters"
	case Words:
		return "words"
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// Base is one digit position. Text is the separator string or the alphabet;
// it is empty for a Words base.
type Base struct {
	Kind Kind
	Text string
}

// NewSeparator returns a separator base. The separator must be non-empty
// UTF-8.
func NewSeparator(s string) (Base, error) {
	if s == "" || !utf8.ValidString(s) {
		return Base{}, errs.New(errs.User, "multibase.NewSeparator", "separator must be non-empty UTF-8")
	}
	return Base{Kind: Separator, Text: s}, nil
}

// NewCharacters returns an alphabet base. Digit values follow rune order.
func NewCharacters(alphabet string) (Base, error) {
	if alphabet == "" || !utf8.ValidString(alphabet) {
		return Base{}, errs.New(errs.User, "multibase.NewCharacters", "alphabet must be non-empty UTF-8")
	}
	return Base{Kind: Characters, Text: alphabet}, nil
}

// WordBase returns a base whose digits are the word list.
func WordBase() Base {
	return Base{Kind: Words}
}

// NewBase builds a base from a boundary selector and its payload.
func NewBase(kind Kind, data []byte) (Base, error) {
	switch kind {
	case Separator:
		return NewSeparator(string(data))
	case Characters:
		return NewCharacters(string(data))
	case Words:
		if len(data) != 0 {
			return Base{}, errs.New(errs.User, "multibase.NewBase", "word base takes no data")
		}
		return WordBase(), nil
	}
	return Base{}, errs.New(errs.User, "multibase.NewBase", "unknown base kind %d", uint32(kind))
}

type slot struct {
	base   Base
	digits []string
	length *big.Int
}

// MultiBase is an ordered sequence of bases. It is immutable once built and
// safe for concurrent Encode and Decode calls.
type MultiBase struct {
	slots   []slot
	words   []string
	product *big.Int
}

// New returns an empty MultiBase. Its only encodable value is 0, encoded as
// the empty string.
func New() *MultiBase {
	return &MultiBase{product: big.NewInt(1)}
}

// SetWords installs the word list. It may be called once, before any word
// base is added.
func (m *MultiBase) SetWords(words []string) error {
	if m.words != nil {
		return errs.New(errs.User, "multibase.SetWords", "word list already set")
	}
	if len(words) == 0 {
		return errs.New(errs.User, "multibase.SetWords", "word list is empty")
	}
	m.words = append([]string(nil), words...)
	return nil
}

// HasWords reports whether a word list is installed.
func (m *MultiBase) HasWords() bool {
	return m.words != nil
}

// AddBase appends a base.
func (m *MultiBase) AddBase(b Base) error {
	var digits []string
	switch b.Kind {
	case Separator:
		if b.Text == "" {
			return errs.New(errs.User, "multibase.AddBase", "empty separator")
		}
		digits = []string{b.Text}
	case Characters:
		if b.Text == "" {
			return errs.New(errs.User, "multibase.AddBase", "empty alphabet")
		}
		digits = make([]string, 0, utf8.RuneCountInString(b.Text))
		for _, r := range b.Text {
			digits = append(digits, string(r))
		}
	case Words:
		if m.words == nil {
			return errs.New(errs.User, "multibase.AddBase", "word base requires a word list")
		}
		digits = m.words
	default:
		return errs.New(errs.User, "multibase.AddBase", "unknown base kind %d", uint32(b.Kind))
	}
	length := big.NewInt(int64(len(digits)))
	m.slots = append(m.slots, slot{base: b, digits: digits, length: length})
	m.product.Mul(m.product, length)
	return nil
}

// Bases returns a copy of the bases in order.
func (m *MultiBase) Bases() []Base {
	out := make([]Base, len(m.slots))
	for i, s := range m.slots {
		out[i] = s.base
	}
	return out
}

// Len returns the number of bases.
func (m *MultiBase) Len() int {
	return len(m.slots)
}

// MaxEncodableValue returns the product of all base lengths minus one.
func (m *MultiBase) MaxEncodableValue() *big.Int {
	return new(big.Int).Sub(m.product, big.NewInt(1))
}

// RequiredBytes is the number of big-endian bytes needed to hold any value
// up to MaxEncodableValue.
func (m *MultiBase) RequiredBytes() int {
	return (m.MaxEncodableValue().BitLen() + 7) / 8
}

// EntropyBits is the bit length of the number of distinct outputs.
func (m *MultiBase) EntropyBits() int {
	return m.product.BitLen()
}

// Encode renders n. It fails with a domain error unless 0 <= n <= max.
func (m *MultiBase) Encode(n *big.Int) (string, error) {
	if n == nil || n.Sign() < 0 || n.Cmp(m.product) >= 0 {
		return "", errs.New(errs.Domain, "multibase.Encode", "value outside [0, %s]", m.MaxEncodableValue())
	}
	parts := make([]string, len(m.slots))
	v := new(big.Int).Set(n)
	d := new(big.Int)
	for i := len(m.slots) - 1; i >= 0; i-- {
		s := m.slots[i]
		if s.base.Kind == Separator {
			parts[i] = s.base.Text
			continue
		}
		v.DivMod(v, s.length, d)
		parts[i] = s.digits[d.Int64()]
	}
	return strings.Join(parts, ""), nil
}

// EncodeFromBytes interprets b as a big-endian unsigned integer and
// encodes it.
func (m *MultiBase) EncodeFromBytes(b []byte) (string, error) {
	return m.Encode(new(big.Int).SetBytes(b))
}

// singleRuneWidth returns the expected rune count of every encoding when no
// base is a word base, and false otherwise.
func (m *MultiBase) singleRuneWidth() (int, bool) {
	width := 0
	for _, s := range m.slots {
		switch s.base.Kind {
		case Words:
			return 0, false
		case Separator:
			width += utf8.RuneCountInString(s.base.Text)
		default:
			width++
		}
	}
	return width, true
}

// Decode parses s back into its integer. Adjacent word digits may split
// the input more than one way, so decoding backtracks over every matching
// word, longest first, until the whole input is consumed.
func (m *MultiBase) Decode(s string) (*big.Int, error) {
	if width, ok := m.singleRuneWidth(); ok {
		if got := utf8.RuneCountInString(s); got != width {
			return nil, errs.New(errs.Domain, "multibase.Decode", "expected %d characters, got %d", width, got)
		}
	}
	d := &decoder{slots: m.slots, input: s, digits: make([]int, len(m.slots)), failAt: -1}
	if !d.match(0, 0) {
		return nil, errs.New(errs.Domain, "multibase.Decode", "%s", d.failMsg)
	}
	v := new(big.Int)
	for i, sl := range m.slots {
		if sl.base.Kind == Separator {
			continue
		}
		v.Mul(v, sl.length)
		v.Add(v, big.NewInt(int64(d.digits[i])))
	}
	return v, nil
}

// decoder is the search state of one Decode call. dead records the
// (slot, offset) pairs already known not to complete, so each pair is
// expanded at most once.
type decoder struct {
	slots  []slot
	input  string
	digits []int
	dead   map[[2]int]struct{}

	failAt  int
	failMsg string
}

// fail keeps the failure that got furthest into the input.
func (d *decoder) fail(at int, format string, args ...any) {
	if at >= d.failAt {
		d.failAt = at
		d.failMsg = fmt.Sprintf(format, args...)
	}
}

func (d *decoder) match(i, at int) bool {
	if i == len(d.slots) {
		if at == len(d.input) {
			return true
		}
		d.fail(at, "%d trailing bytes", len(d.input)-at)
		return false
	}
	key := [2]int{i, at}
	if _, ok := d.dead[key]; ok {
		return false
	}

	rest := d.input[at:]
	sl := d.slots[i]
	switch sl.base.Kind {
	case Separator:
		if !strings.HasPrefix(rest, sl.base.Text) {
			d.fail(at, "position %d: expected separator %q", i, sl.base.Text)
		} else if d.match(i+1, at+len(sl.base.Text)) {
			return true
		}
	case Characters:
		r, size := utf8.DecodeRuneInString(rest)
		idx := -1
		if size > 0 {
			idx = indexOf(sl.digits, string(r))
		}
		if idx < 0 {
			d.fail(at, "position %d: invalid digit", i)
		} else {
			d.digits[i] = idx
			if d.match(i+1, at+size) {
				return true
			}
		}
	case Words:
		candidates := prefixes(sl.digits, rest)
		if len(candidates) == 0 {
			d.fail(at, "position %d: no matching word", i)
		}
		for _, idx := range candidates {
			d.digits[i] = idx
			if d.match(i+1, at+len(sl.digits[idx])) {
				return true
			}
		}
	}

	if d.dead == nil {
		d.dead = make(map[[2]int]struct{})
	}
	d.dead[key] = struct{}{}
	return false
}

func indexOf(digits []string, d string) int {
	for i, x := range digits {
		if x == d {
			return i
		}
	}
	return -1
}

// prefixes returns the indexes of the words that start s, longest first.
// Equal words keep list order.
func prefixes(words []string, s string) []int {
	var out []int
	for i, w := range words {
		if w != "" && strings.HasPrefix(s, w) {
			out = append(out, i)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return len(words[out[a]]) > len(words[out[b]])
	})
	return out
}
