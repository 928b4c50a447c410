package crypto

import (
	"encoding/binary"
	"math/bits"
)

// Keccak sponge parameters. The rate is one lane: every 8 bytes of input
// are XORed into lane (0,0) before a permutation, and every 8 bytes of
// output are read from it.
const (
	keccakRateBytes     = 8
	keccakCapacityBits  = 1536
	keccakPermutationRC = 24
)

var keccakRoundConstants = [keccakPermutationRC]uint64{
	0x0000000000000001, 0x0000000000008082, 0x800000000000808A, 0x8000000080008000,
	0x000000000000808B, 0x0000000080000001, 0x8000000080008081, 0x8000000000008009,
	0x000000000000008A, 0x0000000000000088, 0x0000000080008009, 0x000000008000000A,
	0x000000008000808B, 0x800000000000008B, 0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080, 0x000000000000800A, 0x800000008000000A,
	0x8000000080008081, 0x8000000000008080, 0x0000000080000001, 0x8000000080008008,
}

// keccakRotations[x][y] is the rho offset of lane (x, y).
var keccakRotations = [5][5]int{
	{0, 36, 3, 41, 18},
	{1, 44, 10, 45, 2},
	{62, 6, 43, 15, 61},
	{28, 55, 25, 21, 56},
	{27, 20, 39, 8, 14},
}

// keccakF1600 applies the 24-round Keccak-f[1600] permutation to the state,
// indexed a[x][y].
func keccakF1600(a *[5][5]uint64) {
	var c, d [5]uint64
	var b [5][5]uint64
	for round := 0; round < keccakPermutationRC; round++ {
		// theta
		for x := 0; x < 5; x++ {
			c[x] = a[x][0] ^ a[x][1] ^ a[x][2] ^ a[x][3] ^ a[x][4]
		}
		for x := 0; x < 5; x++ {
			d[x] = c[(x+4)%5] ^ bits.RotateLeft64(c[(x+1)%5], 1)
		}
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				a[x][y] ^= d[x]
			}
		}
		// rho and pi
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				b[y][(2*x+3*y)%5] = bits.RotateLeft64(a[x][y], keccakRotations[x][y])
			}
		}
		// chi
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				a[x][y] = b[x][y] ^ (^b[(x+1)%5][y] & b[(x+2)%5][y])
			}
		}
		// iota
		a[0][0] ^= keccakRoundConstants[round]
	}
}

// KeccakSponge is a Keccak sponge with a 64-bit rate and 1536-bit
// capacity, padded with the original Keccak multi-rate padding (0x01 ...
// 0x80). Output is emitted in sponge order, so consecutive squeezes form
// one contiguous stream.
type KeccakSponge struct {
	state     [5][5]uint64
	queue     [keccakRateBytes]byte
	queued    int
	squeezing bool
	out       [keccakRateBytes]byte
	outLeft   int
}

// NewKeccakSponge returns an empty sponge in the absorbing phase.
func NewKeccakSponge() *KeccakSponge {
	return &KeccakSponge{}
}

func (s *KeccakSponge) absorbBlock(block []byte) {
	s.state[0][0] ^= binary.LittleEndian.Uint64(block)
	keccakF1600(&s.state)
}

// Absorb feeds data into the sponge. It fails once squeezing has begun.
func (s *KeccakSponge) Absorb(data []byte) error {
	if s.squeezing {
		return errAbsorbAfterSqueeze
	}
	if s.queued > 0 {
		n := copy(s.queue[s.queued:], data)
		s.queued += n
		data = data[n:]
		if s.queued < keccakRateBytes {
			return nil
		}
		s.absorbBlock(s.queue[:])
		s.queued = 0
	}
	for len(data) >= keccakRateBytes {
		s.absorbBlock(data[:keccakRateBytes])
		data = data[keccakRateBytes:]
	}
	s.queued = copy(s.queue[:], data)
	return nil
}

func (s *KeccakSponge) extract() {
	binary.LittleEndian.PutUint64(s.out[:], s.state[0][0])
	s.outLeft = keccakRateBytes
}

// Squeeze fills out with the next len(out) bytes of sponge output. The
// first call pads and closes the absorbing phase.
func (s *KeccakSponge) Squeeze(out []byte) error {
	if !s.squeezing {
		for i := s.queued; i < keccakRateBytes; i++ {
			s.queue[i] = 0
		}
		s.queue[s.queued] = 0x01
		s.queue[keccakRateBytes-1] |= 0x80
		s.absorbBlock(s.queue[:])
		zeroize(s.queue[:])
		s.queued = 0
		s.squeezing = true
		s.extract()
	}
	for len(out) > 0 {
		if s.outLeft == 0 {
			keccakF1600(&s.state)
			s.extract()
		}
		n := copy(out, s.out[keccakRateBytes-s.outLeft:])
		s.outLeft -= n
		out = out[n:]
	}
	return nil
}

// Reset clears all sponge state.
func (s *KeccakSponge) Reset() {
	for x := range s.state {
		for y := range s.state[x] {
			s.state[x][y] = 0
		}
	}
	zeroize(s.queue[:])
	zeroize(s.out[:])
	s.queued, s.outLeft, s.squeezing = 0, 0, false
}
