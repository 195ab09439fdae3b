package iblt

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/spacemeshos/go-scale"
)

// MaxBuckets is the maximum number of buckets in a Snapshot.
const MaxBuckets = 1 << 16

// ErrBadSnapshot is returned when a snapshot doesn't describe a valid table.
var ErrBadSnapshot = errors.New("iblt: bad snapshot")

// BucketState is the serialized form of a bucket.
type BucketState struct {
	KeySum  ID
	KeyHash uint64
	Counter int32
}

// Snapshot is the serialized form of a table, as exchanged between peers.
type Snapshot struct {
	Seed0, Seed1 uint64
	K            uint8
	// Count is the number of elements the sender declares to hold.
	Count   uint32
	Buckets []BucketState
}

// Snapshot returns the serialized form of the table. count is the number of
// elements to be declared along with it.
func (t *Table) Snapshot(count uint32) *Snapshot {
	t.ensureUsable()
	s := &Snapshot{
		Seed0:   t.seed0,
		Seed1:   t.seed1,
		K:       t.k,
		Count:   count,
		Buckets: make([]BucketState, len(t.buckets)),
	}
	for n, b := range t.buckets {
		s.Buckets[n] = BucketState{KeySum: b.keySum, KeyHash: b.keyHash, Counter: b.count}
	}
	return s
}

// FromSnapshot restores a table from its serialized form.
func FromSnapshot(s *Snapshot) (*Table, error) {
	switch {
	case s.K == 0:
		return nil, fmt.Errorf("%w: zero hash count", ErrBadSnapshot)
	case len(s.Buckets) == 0:
		return nil, fmt.Errorf("%w: no buckets", ErrBadSnapshot)
	case len(s.Buckets) > MaxBuckets:
		return nil, fmt.Errorf("%w: too many buckets (%d)", ErrBadSnapshot, len(s.Buckets))
	}
	t := NewWithSeeds(len(s.Buckets), s.K, s.Seed0, s.Seed1)
	for n, b := range s.Buckets {
		t.buckets[n] = bucket{keySum: b.KeySum, keyHash: b.KeyHash, count: b.Counter}
	}
	return t, nil
}

func encodeUint64(enc *scale.Encoder, v uint64) (int, error) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return scale.EncodeByteArray(enc, b[:])
}

func decodeUint64(dec *scale.Decoder) (uint64, int, error) {
	var b [8]byte
	n, err := scale.DecodeByteArray(dec, b[:])
	return binary.LittleEndian.Uint64(b[:]), n, err
}

// EncodeScale implements scale codec interface.
func (id *ID) EncodeScale(enc *scale.Encoder) (int, error) {
	return scale.EncodeByteArray(enc, id[:])
}

// DecodeScale implements scale codec interface.
func (id *ID) DecodeScale(dec *scale.Decoder) (int, error) {
	return scale.DecodeByteArray(dec, id[:])
}

// EncodeScale implements scale codec interface.
func (b *BucketState) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeByteArray(enc, b.KeySum[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := encodeUint64(enc, b.KeyHash)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeUint32(enc, uint32(b.Counter))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (b *BucketState) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := scale.DecodeByteArray(dec, b.KeySum[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := decodeUint64(dec)
		if err != nil {
			return total, err
		}
		total += n
		b.KeyHash = field
	}
	{
		field, n, err := scale.DecodeUint32(dec)
		if err != nil {
			return total, err
		}
		total += n
		b.Counter = int32(field)
	}
	return total, nil
}

// EncodeScale implements scale codec interface.
func (s *Snapshot) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := encodeUint64(enc, s.Seed0)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := encodeUint64(enc, s.Seed1)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByte(enc, s.K)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact32(enc, s.Count)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeStructSliceWithLimit(enc, s.Buckets, MaxBuckets)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (s *Snapshot) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := decodeUint64(dec)
		if err != nil {
			return total, err
		}
		total += n
		s.Seed0 = field
	}
	{
		field, n, err := decodeUint64(dec)
		if err != nil {
			return total, err
		}
		total += n
		s.Seed1 = field
	}
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		s.K = field
	}
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		s.Count = field
	}
	{
		field, n, err := scale.DecodeStructSliceWithLimit[BucketState](dec, MaxBuckets)
		if err != nil {
			return total, err
		}
		total += n
		s.Buckets = field
	}
	return total, nil
}
