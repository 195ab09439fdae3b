package iblt

import (
	"encoding/binary"
	"math/bits"

	"github.com/dchest/siphash"
	"github.com/zeebo/blake3"
)

// keyedHash is SipHash-2-4 keyed by (k0, k1).
func keyedHash(k0, k1 uint64, id []byte) uint64 {
	return siphash.Hash(k0, k1, id)
}

// checksum is the integrity hash stored in the keyHash accumulator.
// The key order is swapped relative to the index chain.
func (t *Table) checksum(id []byte) uint64 {
	return keyedHash(t.seed1, t.seed0, id)
}

// indexChain calls fn for each of the k buckets touched by id.
// The same bucket may be visited more than once.
func (t *Table) indexChain(id []byte, fn func(n int)) {
	h := t.seed0
	m := uint64(len(t.buckets))
	for range t.k {
		h = keyedHash(h, t.seed1, id)
		fn(fastReduce(h, m))
	}
}

// fastReduce maps h into [0, m) using the high 64 bits of h*m.
func fastReduce(h, m uint64) int {
	hi, _ := bits.Mul64(h, m)
	return int(hi)
}

// DeriveSeeds derives a pair of table seeds from a string shared by all the
// peers of a network. Tables built with the same derived seeds, size and hash
// count can be combined with Subtract.
func DeriveSeeds(network string) (seed0, seed1 uint64) {
	h := blake3.Sum256([]byte("biadnet/sketch-seeds/" + network))
	return binary.LittleEndian.Uint64(h[:8]), binary.LittleEndian.Uint64(h[8:16])
}
