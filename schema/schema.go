// Package schema compiles password schemas into MultiBase alphabets.
//
// A schema is a decoded YAML or JSON value: a list of items, where an item
// is one of
//
//	"alphanumeric"              a character class or literal alphabet
//	["digit", "-_"]             character sets concatenated into one alphabet
//	"word"                      one word from the word list
//	[8, "alphanumeric"]         a counted group of items
//	[", ", 4, "word"]           a counted group with a delimiter
//
// Delimiters are inserted between repetitions only. A counted group made of
// a single "word" item with no delimiter is joined with a space.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/joncooperworks/passacre/errs"
	"github.com/joncooperworks/passacre/multibase"
)

const (
	// WordMarker is the schema item naming one word from the word list.
	WordMarker = "word"

	asciiLowercase = "abcdefghijklmnopqrstuvwxyz"
	asciiUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	asciiLetters   = asciiLowercase + asciiUppercase
	asciiDigits    = "0123456789"
	punctuation    = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	defaultWordDelimiter = " "

	// MaxPositions bounds the number of bases one schema may compile to.
	MaxPositions = 4096
)

// CharacterClasses maps the named character classes to their alphabets.
var CharacterClasses = map[string]string{
	"printable":    asciiDigits + asciiLetters + punctuation,
	"alphanumeric": asciiDigits + asciiLetters,
	"digit":        asciiDigits,
	"letter":       asciiLetters,
	"lowercase":    asciiLowercase,
	"uppercase":    asciiUppercase,
	"symbols":      punctuation,
}

// item is one compiled position before conversion to a Base.
type item struct {
	word      bool
	separator bool
	text      string
}

type compiler struct {
	words []string
}

// Compile flattens schema into an ordered list of bases. words is required
// only if the schema contains a word item.
func Compile(schema any, words []string) ([]multibase.Base, error) {
	c := &compiler{words: words}
	items, err := c.items(schema)
	if err != nil {
		return nil, err
	}
	if len(items) > MaxPositions {
		return nil, newParseError(schema, fmt.Sprintf("at most %d positions", MaxPositions))
	}
	bases := make([]multibase.Base, 0, len(items))
	for _, it := range items {
		switch {
		case it.word:
			bases = append(bases, multibase.WordBase())
		case it.separator || utf8.RuneCountInString(it.text) == 1:
			bases = append(bases, multibase.Base{Kind: multibase.Separator, Text: it.text})
		default:
			bases = append(bases, multibase.Base{Kind: multibase.Characters, Text: it.text})
		}
	}
	return bases, nil
}

// MultiBase compiles schema and builds a MultiBase from it. The word list is
// installed only when the schema uses it.
func MultiBase(schema any, words []string) (*multibase.MultiBase, error) {
	bases, err := Compile(schema, words)
	if err != nil {
		return nil, err
	}
	mb := multibase.New()
	for _, b := range bases {
		if b.Kind == multibase.Words && !mb.HasWords() {
			if err := mb.SetWords(words); err != nil {
				return nil, err
			}
		}
		if err := mb.AddBase(b); err != nil {
			return nil, err
		}
	}
	return mb, nil
}

// ParseJSON decodes a JSON schema. Numbers decode as float64 and are
// accepted by Compile when integral.
func ParseJSON(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errs.Wrap(errs.User, "schema.ParseJSON", err)
	}
	return v, nil
}

func (c *compiler) items(x any) (out []item, err error) {
	defer trace(&err, "the items", x, -1)
	list, ok := x.([]any)
	if !ok {
		return nil, newParseError(x, "an array")
	}
	for i, y := range list {
		sub, err := c.item(y, i)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func (c *compiler) item(x any, index int) (out []item, err error) {
	defer trace(&err, "an item", x, index)
	if list, ok := x.([]any); ok {
		if len(list) < 2 {
			return nil, newParseError(x, "an array with at least two elements")
		}
		_, firstIsNumber := toCount(list[0])
		_, secondIsNumber := toCount(list[1])
		if firstIsNumber || secondIsNumber {
			return c.countedItem(list)
		}
	}
	return c.characterSets(x, index)
}

func (c *compiler) countedItem(x []any) (out []item, err error) {
	defer trace(&err, "a count and items array", x, -1)
	var (
		delimiter string
		count     int
		start     int
	)
	if n, ok := toCount(x[0]); ok {
		count, start = n, 1
	} else {
		d, ok := x[0].(string)
		if !ok {
			return nil, at(newParseError(x[0], "a string"), x[0], 0)
		}
		n, ok := toCount(x[1])
		if !ok {
			return nil, at(newParseError(x[1], "a number"), x[1], 1)
		}
		delimiter, count, start = d, n, 2
	}
	if count < 0 {
		return nil, at(newParseError(x[start-1], "a non-negative number"), x[start-1], start-1)
	}
	if start == len(x) {
		return nil, newParseError(x, "at least one item after the count")
	}

	var each []item
	for i := start; i < len(x); i++ {
		sub, err := c.item(x[i], i)
		if err != nil {
			return nil, err
		}
		each = append(each, sub...)
	}
	if start == 1 && len(each) == 1 && each[0].word {
		delimiter = defaultWordDelimiter
	}
	per := len(each)
	if delimiter != "" {
		per++
	}
	if per > 0 && count > MaxPositions/per {
		return nil, at(newParseError(x[start-1], fmt.Sprintf("a count giving at most %d positions", MaxPositions)), x[start-1], start-1)
	}

	for i := 0; i < count; i++ {
		if i != 0 && delimiter != "" {
			out = append(out, item{separator: true, text: delimiter})
		}
		out = append(out, each...)
	}
	return out, nil
}

func (c *compiler) characterSets(x any, index int) (out []item, err error) {
	defer trace(&err, "character sets", x, index)
	if s, ok := x.(string); ok && s == WordMarker {
		if len(c.words) == 0 {
			return nil, newParseError(x, "a word list for word items")
		}
		return []item{{word: true}}, nil
	}
	if list, ok := x.([]any); ok {
		var b strings.Builder
		for i, y := range list {
			s, err := characterSet(y, i)
			if err != nil {
				return nil, err
			}
			b.WriteString(s)
		}
		return []item{{text: b.String()}}, nil
	}
	s, err := characterSet(x, -1)
	if err != nil {
		return nil, err
	}
	return []item{{text: s}}, nil
}

func characterSet(x any, index int) (out string, err error) {
	defer trace(&err, "a character set", x, index)
	s, ok := x.(string)
	if !ok {
		return "", at(newParseError(x, "a string"), x, -1)
	}
	if s == "" {
		return "", newParseError(x, "a non-empty string")
	}
	if class, ok := CharacterClasses[s]; ok {
		return class, nil
	}
	return s, nil
}

// toCount accepts the integer representations produced by YAML and JSON
// decoders.
func toCount(x any) (int, bool) {
	switch n := x.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.Abs(n) > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// Frame is one enclosing construct of a ParseError.
type Frame struct {
	What  string
	Value any
	// Index is the position within the parent, or -1.
	Index int
}

// ParseError reports a malformed schema. Path lists the enclosing
// constructs, outermost first.
type ParseError struct {
	Got      any
	Expected string
	Path     []Frame
}

func newParseError(got any, expected string) *ParseError {
	return &ParseError{Got: got, Expected: expected}
}

func (e *ParseError) Error() string {
	var b strings.Builder
	for _, f := range e.Path {
		fmt.Fprintf(&b, "whilst parsing %s %s", f.What, formatValue(f.Value))
		if f.Index >= 0 {
			fmt.Fprintf(&b, " (index %d)", f.Index)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "expected %s; got %s", e.Expected, formatValue(e.Got))
	return b.String()
}

// Unwrap classifies every schema error as a user error.
func (e *ParseError) Unwrap() error {
	return errs.E(errs.User)
}

func formatValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// trace prepends a frame to a ParseError unwinding through a parse step.
func trace(err *error, what string, value any, index int) {
	if pe, ok := (*err).(*ParseError); ok {
		pe.Path = append([]Frame{{What: what, Value: value, Index: index}}, pe.Path...)
	}
}

func at(pe *ParseError, value any, index int) *ParseError {
	pe.Path = append([]Frame{{What: "the value", Value: value, Index: index}}, pe.Path...)
	return pe
}
