// Package iblt implements an Invertible Bloom Lookup Table over fixed-size
// identifiers.
//
// A Table holds m buckets. Every identifier touches k of them, selected by a
// chain of keyed hashes. Inserting and deleting are XOR and counter updates,
// so a table only remembers the net multiplicity of each identifier. Peeling
// the table recovers the identifiers with net multiplicity +1 or -1, as long
// as the number of such identifiers is small relative to m.
//
// Two peers holding tables with the same size, hash count and seeds can find
// their set difference by exchanging tables instead of sets. See Subtract and
// Missing.
//
// Table is not safe for concurrent use.
package iblt

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrIncompleteDecode is yielded as the last element of a decode sequence
	// when peeling stops with unresolved buckets left in the table.
	// This happens when the table is overloaded or when tables with different
	// parameters or seeds were combined.
	ErrIncompleteDecode = errors.New("iblt: incomplete decode")
	// ErrIncompatible is returned when combining tables with different size,
	// hash count or seeds.
	ErrIncompatible = errors.New("iblt: incompatible tables")
)

type bucket struct {
	keySum  ID
	keyHash uint64
	count   int32
}

func (b *bucket) isZero() bool {
	return b.count == 0 && b.keyHash == 0 && b.keySum.IsZero()
}

// Table is an Invertible Bloom Lookup Table.
type Table struct {
	buckets []bucket
	seed0   uint64
	seed1   uint64
	k       uint8
	// consumed is set when the buckets were handed over to a decoder.
	consumed bool
}

// New creates an empty table with m buckets and k hashes per identifier.
// The hash seeds are generated randomly.
func New(m int, k uint8) *Table {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("BUG: failed to generate table seeds: " + err.Error())
	}
	return NewWithSeeds(m, k, binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:]))
}

// NewWithSeeds creates an empty table with m buckets, k hashes per identifier
// and the specified hash seeds.
func NewWithSeeds(m int, k uint8, seed0, seed1 uint64) *Table {
	if m <= 0 {
		panic(fmt.Sprintf("iblt: bad number of buckets %d", m))
	}
	if k == 0 {
		panic("iblt: number of hashes must be positive")
	}
	return &Table{
		buckets: make([]bucket, m),
		seed0:   seed0,
		seed1:   seed1,
		k:       k,
	}
}

func (t *Table) ensureUsable() {
	if t.consumed {
		panic("iblt: table was consumed by a decoder")
	}
}

// Size returns the number of buckets in the table.
func (t *Table) Size() int {
	t.ensureUsable()
	return len(t.buckets)
}

// K returns the number of buckets touched by each identifier.
func (t *Table) K() uint8 {
	return t.k
}

// Seeds returns the hash seeds of the table.
func (t *Table) Seeds() (seed0, seed1 uint64) {
	return t.seed0, t.seed1
}

// Insert adds an identifier to the table.
// It panics if id is not exactly IDSize bytes long.
func (t *Table) Insert(id []byte) {
	t.update(id, 1)
}

// Delete removes an identifier from the table.
// Deleting an identifier that was never inserted is allowed, it makes the
// identifier's net multiplicity negative.
// It panics if id is not exactly IDSize bytes long.
func (t *Table) Delete(id []byte) {
	t.update(id, -1)
}

func (t *Table) update(id []byte, delta int32) {
	t.ensureUsable()
	if len(id) != IDSize {
		panic(fmt.Sprintf("iblt: bad id length %d, expected %d", len(id), IDSize))
	}
	keySum := ID(id)
	keyHash := t.checksum(id)
	t.indexChain(id, func(n int) {
		b := &t.buckets[n]
		b.keySum.xor(&keySum)
		b.count += delta
		b.keyHash ^= keyHash
	})
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	t.ensureUsable()
	c := *t
	c.buckets = make([]bucket, len(t.buckets))
	copy(c.buckets, t.buckets)
	return &c
}

// Compatible returns true if the tables have the same size, hash count and
// seeds, which is required for their contents to be combined.
func (t *Table) Compatible(other *Table) bool {
	t.ensureUsable()
	other.ensureUsable()
	return len(t.buckets) == len(other.buckets) &&
		t.k == other.k &&
		t.seed0 == other.seed0 &&
		t.seed1 == other.seed1
}

// Subtract removes the contents of other from the table, bucket by bucket.
// Afterwards, the identifiers only present in t decode with added=true, and
// the ones only present in other decode with added=false.
func (t *Table) Subtract(other *Table) error {
	if !t.Compatible(other) {
		return ErrIncompatible
	}
	for n := range t.buckets {
		b, o := &t.buckets[n], &other.buckets[n]
		b.keySum.xor(&o.keySum)
		b.keyHash ^= o.keyHash
		b.count -= o.count
	}
	return nil
}

// Empty returns true if no identifier has a non-zero net multiplicity in the
// table, barring hash collisions.
func (t *Table) Empty() bool {
	t.ensureUsable()
	for n := range t.buckets {
		if !t.buckets[n].isZero() {
			return false
		}
	}
	return true
}

func (t *Table) isPure(n int) bool {
	b := &t.buckets[n]
	return (b.count == 1 || b.count == -1) && t.checksum(b.keySum[:]) == b.keyHash
}
