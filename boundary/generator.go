package boundary

import (
	"github.com/joncooperworks/passacre/crypto"
	"github.com/joncooperworks/passacre/generator"
	"github.com/joncooperworks/passacre/multibase"
)

// GeneratorSize is the size in bytes of a generator block.
func GeneratorSize() uint64 { return blockSize }

// GeneratorAlign is the alignment of a generator block.
func GeneratorAlign() uint64 { return blockAlign }

// GeneratorScryptBufferSize is the size of a scrypt persistence buffer.
func GeneratorScryptBufferSize() uint64 { return generator.ScryptBufferSize }

// GeneratorInit initializes a zeroed generator block for the algorithm
// selector (0 keccak, 1 skein).
func GeneratorInit(ctx, gen []byte, algorithm uint32) Code {
	return guard(ctx, "GeneratorInit", func() Code {
		alg, err := crypto.AlgorithmFromSelector(algorithm)
		if err != nil {
			return CodeOf(err)
		}
		g, err := generator.New(alg)
		if err != nil {
			return CodeOf(err)
		}
		return initBlock(gen, magicGenerator, g)
	})
}

func withGenerator(ctx, gen []byte, op string, fn func(g *generator.Generator) Code) Code {
	return guard(ctx, op, func() Code {
		g, ok := lookup[*generator.Generator](gen, magicGenerator)
		if !ok {
			return User
		}
		return fn(g)
	})
}

// GeneratorUseScrypt selects scrypt stretching. persistence may be nil or
// GeneratorScryptBufferSize bytes; it is referenced until the password is
// absorbed.
func GeneratorUseScrypt(ctx, gen []byte, n uint64, r, p uint32, persistence []byte) Code {
	return withGenerator(ctx, gen, "GeneratorUseScrypt", func(g *generator.Generator) Code {
		return CodeOf(g.UseScrypt(generator.ScryptParams{N: n, R: r, P: p}, persistence))
	})
}

// GeneratorUsePersistedScrypt resumes from a filled persistence buffer.
func GeneratorUsePersistedScrypt(ctx, gen []byte, persisted []byte) Code {
	return withGenerator(ctx, gen, "GeneratorUsePersistedScrypt", func(g *generator.Generator) Code {
		return CodeOf(g.UsePersistedScrypt(persisted))
	})
}

// GeneratorAbsorbUsernamePasswordSite absorbs the identity material. An
// empty username is omitted from the seed.
func GeneratorAbsorbUsernamePasswordSite(ctx, gen []byte, username, password, site []byte) Code {
	return withGenerator(ctx, gen, "GeneratorAbsorbUsernamePasswordSite", func(g *generator.Generator) Code {
		return CodeOf(g.AbsorbUsernamePasswordSite(username, password, site))
	})
}

// GeneratorAbsorbNullRounds absorbs rounds blocks of zero bytes.
func GeneratorAbsorbNullRounds(ctx, gen []byte, rounds uint64) Code {
	return withGenerator(ctx, gen, "GeneratorAbsorbNullRounds", func(g *generator.Generator) Code {
		return CodeOf(g.AbsorbNullRounds(rounds))
	})
}

// GeneratorSqueeze fills out with generator output.
func GeneratorSqueeze(ctx, gen []byte, out []byte) Code {
	return withGenerator(ctx, gen, "GeneratorSqueeze", func(g *generator.Generator) Code {
		return CodeOf(g.Squeeze(out))
	})
}

// GeneratorSqueezePassword draws a password for mb and hands it to alloc.
func GeneratorSqueezePassword(ctx, gen, mb []byte, alloc AllocatorFunc, userData any) Code {
	return withGenerator(ctx, gen, "GeneratorSqueezePassword", func(g *generator.Generator) Code {
		m, ok := lookup[*multibase.MultiBase](mb, magicMultiBase)
		if !ok {
			return User
		}
		pw, err := g.SqueezePassword(m)
		if err != nil {
			return CodeOf(err)
		}
		result := []byte(pw)
		defer crypto.Zeroize(result)
		return allocate(alloc, userData, result)
	})
}

// GeneratorFinished wipes and releases a generator.
func GeneratorFinished(ctx, gen []byte) Code {
	return guard(ctx, "GeneratorFinished", func() Code {
		v, ok := finishBlock(gen, magicGenerator)
		if !ok {
			return User
		}
		v.(*generator.Generator).Close()
		return OK
	})
}
