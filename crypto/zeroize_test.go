package crypto

import (
	"testing"
)

func TestZeroize(t *testing.T) {
	t.Run("zeroizes stretched key", func(t *testing.T) {
		key := make([]byte, 64)
		for i := range key {
			key[i] = byte(i + 1)
		}

		Zeroize(key)

		for i, b := range key {
			if b != 0 {
				t.Errorf("byte at index %d should be 0, got %d", i, b)
			}
		}
	})

	t.Run("handles nil slice", func(t *testing.T) {
		var data []byte
		zeroize(data)
	})
}
