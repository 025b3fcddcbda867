package geo

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"golang.org/x/crypto/blake2b"
)

// Digest returns a stable hex fingerprint of the grid layout and occupancy.
// Two grids with the same digest produce identical searches.
func (g *Grid) Digest() string {
	h, _ := blake2b.New256(nil) // nil key never fails

	var buf [8]byte
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	writeU64(uint64(g.cols))
	writeU64(uint64(g.rows))
	writeU64(math.Float64bits(g.extentX))
	writeU64(math.Float64bits(g.extentZ))
	writeU64(math.Float64bits(g.cellRadius))
	writeU64(math.Float64bits(g.origin[0]))
	writeU64(math.Float64bits(g.origin[1]))

	// Walkability packed 8 cells per byte.
	packed := make([]byte, (len(g.cells)+7)/8)
	for i := range g.cells {
		if g.cells[i].Walkable {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	h.Write(packed)

	return hex.EncodeToString(h.Sum(nil))
}
