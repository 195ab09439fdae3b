package server

import (
	"github.com/spacemeshos/go-scale"
)

const (
	maxResponseSize = 89128960 // 85 MiB
	maxErrorSize    = 1024
)

// Response is a server response.
type Response struct {
	Data  []byte
	Error string
}

// EncodeScale implements scale codec interface.
func (t *Response) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, t.Data, maxResponseSize)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeStringWithLimit(enc, t.Error, maxErrorSize)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (t *Response) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, maxResponseSize)
		if err != nil {
			return total, err
		}
		total += n
		t.Data = field
	}
	{
		field, n, err := scale.DecodeStringWithLimit(dec, maxErrorSize)
		if err != nil {
			return total, err
		}
		total += n
		t.Error = field
	}
	return total, nil
}
