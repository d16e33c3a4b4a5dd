// Package codec implements the block codec dispatch layer: a registry of
// external per-block encoders/decoders keyed by execution policy, layout,
// rank and scalar kind, and the fast/edge walk that drives them across one
// chunk in storage order.
//
// The per-block numerical transform itself is not implemented here; it is
// an external collaborator reached through the BlockCodec interface.
package codec

import (
	"fmt"
	"unsafe"

	"github.com/SEP-software/zfp-par/chunk"
	"github.com/SEP-software/zfp-par/errs"
	"github.com/SEP-software/zfp-par/exec"
	"github.com/SEP-software/zfp-par/field"
	"github.com/SEP-software/zfp-par/params"
	"github.com/SEP-software/zfp-par/scalar"

	"github.com/SEP-software/zfp-par/bitstream"
)

// BlockCodec is the external per-block encode/decode contract. ptr
// addresses the block's first element; strides are in elements, not bytes.
// Full-block entry points always cover exactly 4^rank elements;
// partial-block entry points cover fewer than 4 along any axis named by
// extents.
type BlockCodec interface {
	EncodeBlock(s *bitstream.Stream, p params.Params, ptr unsafe.Pointer, strides [4]int) (int, error)
	EncodePartialBlock(s *bitstream.Stream, p params.Params, ptr unsafe.Pointer, extents, strides [4]int) (int, error)
	DecodeBlock(s *bitstream.Stream, p params.Params, ptr unsafe.Pointer, strides [4]int) (int, error)
	DecodePartialBlock(s *bitstream.Stream, p params.Params, ptr unsafe.Pointer, extents, strides [4]int) (int, error)
}

// Key identifies one entry of the dispatch table.
type Key struct {
	Policy  exec.Policy
	Strided bool
	Rank    int
	Scalar  scalar.Kind
}

func (k Key) String() string {
	return fmt.Sprintf("%s/strided=%v/rank=%d/%s", k.Policy, k.Strided, k.Rank, k.Scalar)
}

// Registry is a lookup table of BlockCodec implementations keyed by
// dispatch Key.
type Registry struct {
	codecs map[Key]BlockCodec
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[Key]BlockCodec)}
}

// Register installs codec for the given key, replacing any prior entry.
func (r *Registry) Register(key Key, codec BlockCodec) {
	r.codecs[key] = codec
}

// Lookup returns the BlockCodec registered for key, or
// ErrUnsupportedConfiguration if none was registered.
func (r *Registry) Lookup(key Key) (BlockCodec, error) {
	c, ok := r.codecs[key]
	if !ok {
		return nil, errs.ErrUnsupportedConfiguration
	}
	return c, nil
}

const blockExtent = 4

// Walk drives one chunk's blocks through the registered codec in storage
// order (x fastest, then y, z, w): the fast walk invokes the full-block
// entry points for interior blocks, the edge walk invokes the
// partial-block entry points wherever the chunk's boundary falls short of
// a full 4-wide block. encode selects between the encode and decode entry
// points. It returns the total number of bits produced (encode) or
// consumed (decode).
func Walk(reg *Registry, policy exec.Policy, p params.Params, f field.Field, c chunk.Chunk, s *bitstream.Stream, encode bool) (int, error) {
	key := Key{Policy: policy, Strided: f.Strided(), Rank: c.Rank, Scalar: f.Kind()}
	bc, err := reg.Lookup(key)
	if err != nil {
		return 0, err
	}

	var strides [4]int
	for i := 0; i < c.Rank; i++ {
		strides[i] = f.Stride(i)
	}

	total := 0
	size := f.Kind().Size()

	var remain [4]int

	var walkAxis func(axis int, base unsafe.Pointer) error
	walkAxis = func(axis int, base unsafe.Pointer) error {
		if axis < 0 {
			full := true
			for i := 0; i < c.Rank; i++ {
				if remain[i] < blockExtent {
					full = false
					break
				}
			}

			var n int
			var err error
			switch {
			case encode && full:
				n, err = bc.EncodeBlock(s, p, base, strides)
			case encode && !full:
				n, err = bc.EncodePartialBlock(s, p, base, remain, strides)
			case !encode && full:
				n, err = bc.DecodeBlock(s, p, base, strides)
			default:
				n, err = bc.DecodePartialBlock(s, p, base, remain, strides)
			}
			if err != nil {
				return err
			}
			total += n
			return nil
		}

		w := c.Axes[axis]
		for x := w.Beg; x < w.End; x += blockExtent {
			remain[axis] = w.End - x
			if remain[axis] > blockExtent {
				remain[axis] = blockExtent
			}
			offset := uintptr(x) * uintptr(strides[axis]) * uintptr(size)
			if err := walkAxis(axis-1, unsafe.Add(base, offset)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walkAxis(c.Rank-1, f.Ptr()); err != nil {
		return 0, err
	}

	return total, nil
}
