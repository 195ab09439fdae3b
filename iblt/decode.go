package iblt

import (
	"iter"
)

// Seq is a lazy sequence of identifiers decoded from a table.
// If decoding can't be completed, the last element is a zero ID paired with
// ErrIncompleteDecode.
// A Seq is not restartable: ranging over it again continues where the
// previous loop stopped, and a drained Seq yields nothing.
type Seq iter.Seq2[ID, error]

// Collect drains the sequence, returning the decoded identifiers.
// Identifiers decoded before an error are returned along with the error.
func (s Seq) Collect() ([]ID, error) {
	var ids []ID
	for id, err := range s {
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// decoder peels a table it owns, one identifier at a time.
type decoder struct {
	t *Table
	// queue holds indices of buckets which were pure when enqueued.
	queue []int
	sign  int32
	done  bool
}

func newDecoder(t *Table, added bool) *decoder {
	d := &decoder{t: t, sign: -1}
	if added {
		d.sign = 1
	}
	for n := range t.buckets {
		if t.isPure(n) {
			d.queue = append(d.queue, n)
		}
	}
	return d
}

// next returns the next identifier with the requested sign.
// ok is false when decoding has finished.
func (d *decoder) next() (id ID, ok bool, err error) {
	if d.done {
		return ID{}, false, nil
	}
	t := d.t
	for len(d.queue) != 0 {
		n := d.queue[0]
		d.queue = d.queue[1:]
		// A peel triggered by an earlier queue entry may have changed the bucket.
		if !t.isPure(n) {
			continue
		}
		b := &t.buckets[n]
		id = b.keySum
		count := b.count
		keyHash := b.keyHash
		// Peel regardless of the direction, so that other identifiers sharing
		// buckets with this one can still be resolved.
		t.indexChain(id[:], func(i int) {
			p := &t.buckets[i]
			p.keySum.xor(&id)
			p.count -= count
			p.keyHash ^= keyHash
			if t.isPure(i) {
				d.queue = append(d.queue, i)
			}
		})
		if count == d.sign {
			return id, true, nil
		}
	}
	d.done = true
	for n := range t.buckets {
		if t.buckets[n].count != 0 {
			return ID{}, true, ErrIncompleteDecode
		}
	}
	return ID{}, false, nil
}

func (d *decoder) seq() Seq {
	return func(yield func(ID, error) bool) {
		for {
			id, ok, err := d.next()
			if !ok || !yield(id, err) || err != nil {
				return
			}
		}
	}
}

// Iterate returns a sequence of identifiers decoded from a private copy of the
// table, which is left intact.
// With added=true, it yields the identifiers that were inserted more times than
// deleted, otherwise the ones deleted more times than inserted.
func (t *Table) Iterate(added bool) Seq {
	return newDecoder(t.Clone(), added).seq()
}

// ConsumeIterate is like Iterate, but the decoder takes over the table's
// buckets instead of copying them. The table can't be used afterwards.
func (t *Table) ConsumeIterate(added bool) Seq {
	t.ensureUsable()
	owned := *t
	t.buckets = nil
	t.consumed = true
	return newDecoder(&owned, added).seq()
}

// Missing returns the identifiers yielded by other which are missing from this
// table. other is usually decoded from a peer's table.
// The identifiers of other are deleted from a copy of the table, leaving the
// missing ones with net multiplicity -1, which are then decoded.
// other is drained completely before Missing returns. If it ends with an
// error, Missing fails with that error. Failure to decode the resulting
// difference is reported by the returned sequence.
func (t *Table) Missing(other Seq) (Seq, error) {
	diff := t.Clone()
	for id, err := range other {
		if err != nil {
			return nil, err
		}
		diff.Delete(id[:])
	}
	return diff.ConsumeIterate(false), nil
}

// IsOverloaded returns true if the table holds too many identifiers to be
// decoded completely. It performs a full decode on a copy of the table.
func (t *Table) IsOverloaded() bool {
	for _, err := range t.Iterate(true) {
		if err != nil {
			return true
		}
	}
	return false
}
