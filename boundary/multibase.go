package boundary

import (
	"unicode/utf8"

	"github.com/joncooperworks/passacre/errs"
	"github.com/joncooperworks/passacre/multibase"
	"github.com/joncooperworks/passacre/wordlist"
)

// MultiBaseSize is the size in bytes of a MultiBase block.
func MultiBaseSize() uint64 { return blockSize }

// MultiBaseAlign is the alignment of a MultiBase block.
func MultiBaseAlign() uint64 { return blockAlign }

// MultiBaseInit initializes a zeroed MultiBase block.
func MultiBaseInit(ctx, mb []byte) Code {
	return guard(ctx, "MultiBaseInit", func() Code {
		return initBlock(mb, magicMultiBase, multibase.New())
	})
}

func withMultiBase(ctx, mb []byte, op string, fn func(m *multibase.MultiBase) Code) Code {
	return guard(ctx, op, func() Code {
		m, ok := lookup[*multibase.MultiBase](mb, magicMultiBase)
		if !ok {
			return User
		}
		return fn(m)
	})
}

// MultiBaseAddBase appends a base: kind 0 is a separator, 1 an alphabet
// and 2 a word base, which takes empty data.
func MultiBaseAddBase(ctx, mb []byte, kind uint32, data []byte) Code {
	return withMultiBase(ctx, mb, "MultiBaseAddBase", func(m *multibase.MultiBase) Code {
		b, err := multibase.NewBase(multibase.Kind(kind), data)
		if err != nil {
			return CodeOf(err)
		}
		return CodeOf(m.AddBase(b))
	})
}

// MultiBaseSetWords installs the word list.
func MultiBaseSetWords(ctx, mb []byte, words [][]byte) Code {
	return withMultiBase(ctx, mb, "MultiBaseSetWords", func(m *multibase.MultiBase) Code {
		list := make([]string, len(words))
		for i, w := range words {
			if !utf8.Valid(w) {
				return User
			}
			list[i] = string(w)
		}
		return CodeOf(m.SetWords(list))
	})
}

// MultiBaseLoadWordsFromPath reads and installs a word list file.
func MultiBaseLoadWordsFromPath(ctx, mb []byte, path []byte) Code {
	return withMultiBase(ctx, mb, "MultiBaseLoadWordsFromPath", func(m *multibase.MultiBase) Code {
		if !utf8.Valid(path) {
			return User
		}
		words, err := wordlist.Load(string(path))
		if err != nil {
			if errs.KindOf(err) == errs.Internal {
				return User
			}
			return CodeOf(err)
		}
		return CodeOf(m.SetWords(words))
	})
}

// MultiBaseRequiredBytes stores the byte width of the largest encodable
// value in dest.
func MultiBaseRequiredBytes(ctx, mb []byte, dest *uint64) Code {
	return withMultiBase(ctx, mb, "MultiBaseRequiredBytes", func(m *multibase.MultiBase) Code {
		if dest == nil {
			return User
		}
		*dest = uint64(m.RequiredBytes())
		return OK
	})
}

// MultiBaseEntropyBits stores the entropy of the MultiBase in dest.
func MultiBaseEntropyBits(ctx, mb []byte, dest *uint64) Code {
	return withMultiBase(ctx, mb, "MultiBaseEntropyBits", func(m *multibase.MultiBase) Code {
		if dest == nil {
			return User
		}
		*dest = uint64(m.EntropyBits())
		return OK
	})
}

// MultiBaseEncodeFromBytes encodes a big-endian integer and hands the
// string to alloc.
func MultiBaseEncodeFromBytes(ctx, mb []byte, input []byte, alloc AllocatorFunc, userData any) Code {
	return withMultiBase(ctx, mb, "MultiBaseEncodeFromBytes", func(m *multibase.MultiBase) Code {
		s, err := m.EncodeFromBytes(input)
		if err != nil {
			return CodeOf(err)
		}
		return allocate(alloc, userData, []byte(s))
	})
}

// MultiBaseDecode decodes input and hands the value to alloc as a
// big-endian integer of MultiBaseRequiredBytes bytes.
func MultiBaseDecode(ctx, mb []byte, input []byte, alloc AllocatorFunc, userData any) Code {
	return withMultiBase(ctx, mb, "MultiBaseDecode", func(m *multibase.MultiBase) Code {
		v, err := m.Decode(string(input))
		if err != nil {
			return CodeOf(err)
		}
		out := make([]byte, m.RequiredBytes())
		v.FillBytes(out)
		return allocate(alloc, userData, out)
	})
}

// MultiBaseFinished releases a MultiBase.
func MultiBaseFinished(ctx, mb []byte) Code {
	return guard(ctx, "MultiBaseFinished", func() Code {
		if _, ok := finishBlock(mb, magicMultiBase); !ok {
			return User
		}
		return OK
	})
}
