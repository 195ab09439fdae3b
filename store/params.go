package store

import (
	"fmt"

	"github.com/spacemeshos/go-scale"

	"github.com/biadnet/go-biadnet/iblt"
)

// SketchParams are the parameters of the local sketch. All peers of a network
// must use the same ones.
type SketchParams struct {
	Buckets uint32
	K       uint8
	Seed0   uint64
	Seed1   uint64
}

// ParamsForNetwork returns sketch parameters with the seeds derived from the
// network name.
func ParamsForNetwork(network string, buckets uint32, k uint8) SketchParams {
	seed0, seed1 := iblt.DeriveSeeds(network)
	return SketchParams{Buckets: buckets, K: k, Seed0: seed0, Seed1: seed1}
}

func (p SketchParams) newTable() *iblt.Table {
	return iblt.NewWithSeeds(int(p.Buckets), p.K, p.Seed0, p.Seed1)
}

func (p SketchParams) validate() error {
	switch {
	case p.Buckets == 0 || p.Buckets > iblt.MaxBuckets:
		return fmt.Errorf("bad number of sketch buckets %d", p.Buckets)
	case p.K == 0:
		return fmt.Errorf("sketch hash count must be positive")
	}
	return nil
}

// EncodeScale implements scale codec interface.
func (p *SketchParams) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeCompact32(enc, p.Buckets)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByte(enc, p.K)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, p.Seed0)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, p.Seed1)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (p *SketchParams) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		p.Buckets = field
	}
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		p.K = field
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		p.Seed0 = field
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		p.Seed1 = field
	}
	return total, nil
}
