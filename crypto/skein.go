package crypto

import (
	"encoding/binary"
	"math/bits"
)

const (
	threefishWords  = 8
	skeinBlockBytes = 64
	threefishRounds = 72
	threefishC240   = 0x1BD11BDAA9FC1A22
)

var threefishRotations = [8][4]int{
	{46, 36, 19, 37},
	{33, 27, 14, 42},
	{17, 49, 36, 39},
	{44, 9, 54, 56},
	{39, 30, 34, 24},
	{13, 50, 10, 17},
	{25, 29, 39, 43},
	{8, 35, 56, 22},
}

var threefishPermutation = [threefishWords]int{2, 1, 4, 7, 6, 5, 0, 3}

// UBI block types.
const (
	skeinTypeConfig  = 4
	skeinTypeMessage = 48
	skeinTypeOutput  = 63
)

// threefish512 encrypts one 64-byte block under key and tweak, writing the
// ciphertext to out. out may alias block.
func threefish512(key *[skeinBlockBytes]byte, tweak *[16]byte, block, out []byte) {
	var k [threefishWords + 1]uint64
	k[threefishWords] = threefishC240
	for i := 0; i < threefishWords; i++ {
		k[i] = binary.LittleEndian.Uint64(key[i*8:])
		k[threefishWords] ^= k[i]
	}
	t := [3]uint64{
		binary.LittleEndian.Uint64(tweak[0:]),
		binary.LittleEndian.Uint64(tweak[8:]),
	}
	t[2] = t[0] ^ t[1]

	var v [threefishWords]uint64
	for i := range v {
		v[i] = binary.LittleEndian.Uint64(block[i*8:])
	}

	inject := func(s int) {
		for i := 0; i < threefishWords; i++ {
			v[i] += k[(s+i)%(threefishWords+1)]
		}
		v[5] += t[s%3]
		v[6] += t[(s+1)%3]
		v[7] += uint64(s)
	}

	var p [threefishWords]uint64
	for d := 0; d < threefishRounds; d++ {
		if d%4 == 0 {
			inject(d / 4)
		}
		for j := 0; j < 4; j++ {
			a, b := v[2*j], v[2*j+1]
			a += b
			b = bits.RotateLeft64(b, threefishRotations[d%8][j]) ^ a
			v[2*j], v[2*j+1] = a, b
		}
		for i := range p {
			p[i] = v[threefishPermutation[i]]
		}
		v = p
	}
	inject(threefishRounds / 4)

	for i := range v {
		binary.LittleEndian.PutUint64(out[i*8:], v[i])
	}
}

func skeinTweak(position uint64, blockType uint64, first, final bool) [16]byte {
	var tw [16]byte
	t1 := blockType << 56
	if first {
		t1 |= 1 << 62
	}
	if final {
		t1 |= 1 << 63
	}
	binary.LittleEndian.PutUint64(tw[0:], position)
	binary.LittleEndian.PutUint64(tw[8:], t1)
	return tw
}

// skeinStream runs one UBI chain incrementally. The last block is held
// back until finish so it can carry the final flag.
type skeinStream struct {
	g         [skeinBlockBytes]byte
	block     [skeinBlockBytes]byte
	n         int
	position  uint64
	first     bool
	blockType uint64
}

func (u *skeinStream) start(blockType uint64) {
	u.blockType = blockType
	u.n, u.position, u.first = 0, 0, true
}

func (u *skeinStream) write(msg []byte) {
	for len(msg) > 0 {
		if u.n == skeinBlockBytes {
			u.compress(false)
		}
		c := copy(u.block[u.n:], msg)
		u.n += c
		msg = msg[c:]
	}
}

func (u *skeinStream) compress(final bool) {
	var out [skeinBlockBytes]byte
	for i := u.n; i < skeinBlockBytes; i++ {
		u.block[i] = 0
	}
	u.position += uint64(u.n)
	tw := skeinTweak(u.position, u.blockType, u.first, final)
	threefish512(&u.g, &tw, u.block[:], out[:])
	for i := range u.g {
		u.g[i] = out[i] ^ u.block[i]
	}
	zeroize(out[:])
	u.first, u.n = false, 0
}

// finish processes the held-back block. An empty message is processed as a
// single zero block.
func (u *skeinStream) finish() {
	u.compress(true)
	zeroize(u.block[:])
}

func (u *skeinStream) clear() {
	zeroize(u.g[:])
	zeroize(u.block[:])
	u.n = 0
}

// skeinUBI chains msg into the state g with the given block type.
func skeinUBI(g *[skeinBlockBytes]byte, msg []byte, blockType uint64) {
	u := skeinStream{g: *g}
	u.start(blockType)
	u.write(msg)
	u.finish()
	*g = u.g
	u.clear()
}

// skeinConfigure sets g to the chaining value after the Skein-512-512
// configuration block.
func skeinConfigure(g *[skeinBlockBytes]byte) {
	var cfg [32]byte
	copy(cfg[0:4], "SHA3")
	binary.LittleEndian.PutUint16(cfg[4:], 1)
	binary.LittleEndian.PutUint64(cfg[8:], 512)
	*g = [skeinBlockBytes]byte{}
	skeinUBI(g, cfg[:], skeinTypeConfig)
}

func skeinOutput(g *[skeinBlockBytes]byte) {
	var counter [8]byte
	skeinUBI(g, counter[:], skeinTypeOutput)
}

// skein512 computes the 512-bit Skein-512 hash of msg.
func skein512(msg []byte) [skeinBlockBytes]byte {
	var g [skeinBlockBytes]byte
	skeinConfigure(&g)
	skeinUBI(&g, msg, skeinTypeMessage)
	skeinOutput(&g)
	return g
}

// skeinPRNGTweak is the fixed Threefish tweak used by the PRNG.
var skeinPRNGTweak = [16]byte{15: 0x3f}

// SkeinSponge absorbs a seed and then behaves as the Skein-512 PRNG keyed
// with Skein-512(64 zero bytes || seed). Every Squeeze call returns its
// output byte-reversed. The seed hash is computed as data arrives, so
// absorbing uses constant memory.
type SkeinSponge struct {
	msg       skeinStream
	squeezing bool
	key       [skeinBlockBytes]byte
	buf       [skeinBlockBytes]byte
	bufLeft   int
}

// NewSkeinSponge returns an empty sponge in the absorbing phase.
func NewSkeinSponge() *SkeinSponge {
	s := &SkeinSponge{}
	s.begin()
	return s
}

func (s *SkeinSponge) begin() {
	var zero [skeinBlockBytes]byte
	skeinConfigure(&s.msg.g)
	s.msg.start(skeinTypeMessage)
	s.msg.write(zero[:])
}

// Absorb feeds data into the seed hash. It fails once squeezing has begun.
func (s *SkeinSponge) Absorb(data []byte) error {
	if s.squeezing {
		return errAbsorbAfterSqueeze
	}
	s.msg.write(data)
	return nil
}

func (s *SkeinSponge) refill() {
	var zero, one, next [skeinBlockBytes]byte
	one[0] = 1
	threefish512(&s.key, &skeinPRNGTweak, zero[:], next[:])
	threefish512(&s.key, &skeinPRNGTweak, one[:], s.buf[:])
	s.key = next
	zeroize(next[:])
	s.bufLeft = skeinBlockBytes
}

// Squeeze fills out with the next len(out) PRNG bytes, reversed.
func (s *SkeinSponge) Squeeze(out []byte) error {
	if !s.squeezing {
		s.msg.finish()
		s.key = s.msg.g
		skeinOutput(&s.key)
		s.msg.clear()
		s.squeezing = true
	}
	dst := out
	for len(dst) > 0 {
		if s.bufLeft == 0 {
			s.refill()
		}
		n := copy(dst, s.buf[skeinBlockBytes-s.bufLeft:])
		s.bufLeft -= n
		dst = dst[n:]
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return nil
}

// Reset clears all sponge state.
func (s *SkeinSponge) Reset() {
	s.msg.clear()
	zeroize(s.key[:])
	zeroize(s.buf[:])
	s.squeezing, s.bufLeft = false, 0
	s.begin()
}
