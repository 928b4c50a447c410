package boundary

import (
	"encoding/binary"
	"sync"
)

// Handle block layout, little endian:
//
//	[0:4]  magic
//	[4]    state
//	[5:8]  reserved
//	[8:16] registry id
const (
	blockSize  = 16
	blockAlign = 8
)

const (
	stateUninitialized byte = 0
	stateLive          byte = 1
	stateFinished      byte = 2
)

var (
	magicContext   = [4]byte{'P', 'C', 'T', 'X'}
	magicGenerator = [4]byte{'P', 'G', 'E', 'N'}
	magicMultiBase = [4]byte{'P', 'M', 'B', 'S'}
)

var (
	// handles maps registry ids to the Go state behind a block.
	handles = make(map[uint64]any)
	// handlesMu protects handles and nextID.
	handlesMu sync.RWMutex
	nextID    uint64
)

func register(v any) uint64 {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	nextID++
	handles[nextID] = v
	return nextID
}

func unregister(id uint64) any {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	v := handles[id]
	delete(handles, id)
	return v
}

func resolve(id uint64) (any, bool) {
	handlesMu.RLock()
	defer handlesMu.RUnlock()
	v, ok := handles[id]
	return v, ok
}

// initBlock claims an uninitialized block for v.
func initBlock(block []byte, magic [4]byte, v any) Code {
	if len(block) < blockSize || block[4] != stateUninitialized {
		return User
	}
	id := register(v)
	copy(block[0:4], magic[:])
	block[4] = stateLive
	block[5], block[6], block[7] = 0, 0, 0
	binary.LittleEndian.PutUint64(block[8:16], id)
	return OK
}

func blockID(block []byte, magic [4]byte) (uint64, bool) {
	if len(block) < blockSize || block[4] != stateLive {
		return 0, false
	}
	if block[0] != magic[0] || block[1] != magic[1] || block[2] != magic[2] || block[3] != magic[3] {
		return 0, false
	}
	return binary.LittleEndian.Uint64(block[8:16]), true
}

// lookup returns the live state behind block.
func lookup[T any](block []byte, magic [4]byte) (T, bool) {
	var zero T
	id, ok := blockID(block, magic)
	if !ok {
		return zero, false
	}
	v, ok := resolve(id)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// finishBlock releases the state behind block and marks it finished.
func finishBlock(block []byte, magic [4]byte) (any, bool) {
	id, ok := blockID(block, magic)
	if !ok {
		return nil, false
	}
	v := unregister(id)
	if v == nil {
		return nil, false
	}
	block[4] = stateFinished
	for i := 8; i < blockSize; i++ {
		block[i] = 0
	}
	return v, true
}
