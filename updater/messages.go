package updater

import (
	"github.com/spacemeshos/go-scale"

	"github.com/biadnet/go-biadnet/iblt"
)

const (
	// MaxOffer is the maximum number of identifiers offered in a PollReply.
	MaxOffer = 4096
	// MaxBatch is the maximum number of identifiers in a ContentRequest.
	MaxBatch = 256
	// MaxContentSize is the maximum size of a single content payload.
	MaxContentSize = 1 << 20
)

// PollContent announces the local content to a peer.
type PollContent struct {
	Tip    iblt.ID
	Sketch iblt.Snapshot
	// Size is the number of content items held by the sender.
	Size uint32
}

// PollReply lists the identifiers the poller lacks.
type PollReply struct {
	Tip   iblt.ID
	Size  uint32
	Offer []iblt.ID
	// Incomplete is set when the difference could only be decoded partially.
	Incomplete bool
}

// ContentRequest asks for the payloads of the listed identifiers.
type ContentRequest struct {
	IDs []iblt.ID
}

// ContentItem is a payload along with its identifier.
type ContentItem struct {
	ID   iblt.ID
	Data []byte
}

// ContentResponse carries the requested payloads which the peer holds.
type ContentResponse struct {
	Items []ContentItem
}

// EncodeScale implements scale codec interface.
func (t *PollContent) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeByteArray(enc, t.Tip[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := t.Sketch.EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact32(enc, t.Size)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (t *PollContent) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := scale.DecodeByteArray(dec, t.Tip[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := t.Sketch.DecodeScale(dec)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.Size = field
	}
	return total, nil
}

// EncodeScale implements scale codec interface.
func (t *PollReply) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeByteArray(enc, t.Tip[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact32(enc, t.Size)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeStructSliceWithLimit(enc, t.Offer, MaxOffer)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeBool(enc, t.Incomplete)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (t *PollReply) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := scale.DecodeByteArray(dec, t.Tip[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.Size = field
	}
	{
		field, n, err := scale.DecodeStructSliceWithLimit[iblt.ID](dec, MaxOffer)
		if err != nil {
			return total, err
		}
		total += n
		t.Offer = field
	}
	{
		field, n, err := scale.DecodeBool(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.Incomplete = field
	}
	return total, nil
}

// EncodeScale implements scale codec interface.
func (t *ContentRequest) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeStructSliceWithLimit(enc, t.IDs, MaxBatch)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (t *ContentRequest) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeStructSliceWithLimit[iblt.ID](dec, MaxBatch)
		if err != nil {
			return total, err
		}
		total += n
		t.IDs = field
	}
	return total, nil
}

// EncodeScale implements scale codec interface.
func (t *ContentItem) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeByteArray(enc, t.ID[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, t.Data, MaxContentSize)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (t *ContentItem) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		n, err := scale.DecodeByteArray(dec, t.ID[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, MaxContentSize)
		if err != nil {
			return total, err
		}
		total += n
		t.Data = field
	}
	return total, nil
}

// EncodeScale implements scale codec interface.
func (t *ContentResponse) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeStructSliceWithLimit(enc, t.Items, MaxBatch)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (t *ContentResponse) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeStructSliceWithLimit[ContentItem](dec, MaxBatch)
		if err != nil {
			return total, err
		}
		total += n
		t.Items = field
	}
	return total, nil
}
