// Package refcodec is a reference implementation of the codec.BlockCodec
// contract. It exists to exercise the rest of the pipeline (the
// bit-stream, the chunk walk, the parallel driver, the header codec) end
// to end; it is not the real ZFP per-block transform (the
// orthogonal-transform-plus-embedded-coding scheme), which remains an
// external collaborator outside this module's scope.
//
// Codec stores each element's raw scalar bits through the bit-stream in
// storage order, truncated from the low end to p.MaxPrec bits (clamped to
// kind.Bits()) unless p is reversible, in which case every bit round-trips
// exactly. The per-value width is further capped so a full block never
// exceeds p.MaxBits, and every block is zero-padded up to p.MinBits, so
// fixed-rate mode produces exactly MaxBits bits per block the way the real
// transform does. This gives fixed-precision mode a genuine, if crude,
// accuracy trade-off, reversible mode a genuine lossless guarantee, and
// fixed-rate mode its exact bit budget; fixed-accuracy mode leaves MaxPrec
// at its default of 64 (see package params), so under this stand-in codec it
// behaves the same as reversible mode instead of enforcing an
// exponent-based error bound; the real transform is what gives that mode
// its error-bound guarantee, and that is out of scope here.
package refcodec

import (
	"math"
	"unsafe"

	"github.com/SEP-software/zfp-par/bitstream"
	"github.com/SEP-software/zfp-par/params"
	"github.com/SEP-software/zfp-par/scalar"
)

// Codec is bound to one (rank, scalar kind) pair at construction, since the
// codec.BlockCodec interface itself carries neither: the dispatch registry
// (package codec) registers one bound Codec per key it needs to serve.
type Codec struct {
	rank int
	kind scalar.Kind
}

// New returns a Codec for the given rank (1-4) and scalar kind.
func New(rank int, kind scalar.Kind) *Codec {
	return &Codec{rank: rank, kind: kind}
}

// EncodeBlock writes a full 4^rank-element block.
func (c *Codec) EncodeBlock(s *bitstream.Stream, p params.Params, ptr unsafe.Pointer, strides [4]int) (int, error) {
	return c.walk(s, p, ptr, [4]int{4, 4, 4, 4}, strides, true)
}

// EncodePartialBlock writes a block with fewer than 4 elements along any
// axis named by extents.
func (c *Codec) EncodePartialBlock(s *bitstream.Stream, p params.Params, ptr unsafe.Pointer, extents, strides [4]int) (int, error) {
	return c.walk(s, p, ptr, extents, strides, true)
}

// DecodeBlock reads a full 4^rank-element block.
func (c *Codec) DecodeBlock(s *bitstream.Stream, p params.Params, ptr unsafe.Pointer, strides [4]int) (int, error) {
	return c.walk(s, p, ptr, [4]int{4, 4, 4, 4}, strides, false)
}

// DecodePartialBlock reads a block with fewer than 4 elements along any
// axis named by extents.
func (c *Codec) DecodePartialBlock(s *bitstream.Stream, p params.Params, ptr unsafe.Pointer, extents, strides [4]int) (int, error) {
	return c.walk(s, p, ptr, extents, strides, false)
}

func (c *Codec) walk(s *bitstream.Stream, p params.Params, base unsafe.Pointer, extents, strides [4]int, encode bool) (int, error) {
	full := c.kind.Bits()
	bits := full
	if p.Mode() != params.Reversible && p.MaxPrec < full {
		bits = p.MaxPrec
	}
	// A full block of 4^rank values must fit the per-block budget; partial
	// blocks use the same per-value width so full and partial codewords stay
	// mutually consistent.
	volume := 1 << uint(2*c.rank)
	if volume*bits > p.MaxBits {
		bits = p.MaxBits / volume
	}
	drop := uint(full - bits)
	size := c.kind.Size()
	total := 0

	var rec func(axis int, ptr unsafe.Pointer) error
	rec = func(axis int, ptr unsafe.Pointer) error {
		if axis < 0 {
			if encode {
				v := loadBits(ptr, c.kind) >> drop
				n, err := s.WriteBits(v, bits)
				total += n
				return err
			}
			v, err := s.ReadBits(bits)
			if err != nil {
				return err
			}
			storeBits(ptr, c.kind, v<<drop)
			total += bits
			return nil
		}

		for i := 0; i < extents[axis]; i++ {
			offset := uintptr(i) * uintptr(strides[axis]) * uintptr(size)
			if err := rec(axis-1, unsafe.Add(ptr, offset)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := rec(c.rank-1, base); err != nil {
		return total, err
	}

	// Pad the codeword up to the block's minimum size. Under fixed-rate
	// parameters MinBits equals MaxBits, so every block, partial ones
	// included, costs exactly the configured rate.
	for total < p.MinBits {
		n := p.MinBits - total
		if n > 64 {
			n = 64
		}
		if encode {
			if _, err := s.WriteBits(0, n); err != nil {
				return total, err
			}
		} else {
			if _, err := s.ReadBits(n); err != nil {
				return total, err
			}
		}
		total += n
	}

	return total, nil
}

func loadBits(p unsafe.Pointer, k scalar.Kind) uint64 {
	switch k {
	case scalar.I32:
		return uint64(uint32(*(*int32)(p)))
	case scalar.I64:
		return uint64(*(*int64)(p))
	case scalar.F32:
		return uint64(math.Float32bits(*(*float32)(p)))
	case scalar.F64:
		return math.Float64bits(*(*float64)(p))
	default:
		return 0
	}
}

func storeBits(p unsafe.Pointer, k scalar.Kind, v uint64) {
	switch k {
	case scalar.I32:
		*(*int32)(p) = int32(uint32(v))
	case scalar.I64:
		*(*int64)(p) = int64(v)
	case scalar.F32:
		*(*float32)(p) = math.Float32frombits(uint32(v))
	case scalar.F64:
		*(*float64)(p) = math.Float64frombits(v)
	}
}
