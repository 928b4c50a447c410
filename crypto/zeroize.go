package crypto

import "runtime"

// zeroize overwrites b so absorbed secrets do not linger in sponge buffers.
func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// Zeroize is the exported form of zeroize for callers that hold passwords
// or stretched keys.
func Zeroize(b []byte) {
	zeroize(b)
}
