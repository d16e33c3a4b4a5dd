// Package field describes the caller's array view the codec compresses or
// decompresses: extents, strides, scalar kind, and the derived quantities
// (rank, element count, byte span, packed metadata word) that the rest of
// the codec needs.
package field

import (
	"unsafe"

	"github.com/SEP-software/zfp-par/errs"
	"github.com/SEP-software/zfp-par/scalar"
)

// perRankExtentBits gives the bit budget for "extent - 1" per axis, indexed
// by rank - 1, matching the 48/24/16/12 split of the 48-bit extent region of
// the metadata word.
var perRankExtentBits = [4]int{48, 24, 16, 12}

// reservedBits1D is the count of high extent-region bits a rank-1 metadata
// word leaves unused; they are written as zero and rejected as corrupt if
// set.
const reservedBits1D = 4

// Field is a 1-4 dimensional view over caller-owned memory. It never owns
// the data it describes: compress borrows it read-only, decompress borrows
// it mutably, and Field itself never allocates or frees the backing array.
type Field struct {
	kind scalar.Kind
	rank int

	nx, ny, nz, nw int
	sx, sy, sz, sw int

	data unsafe.Pointer
}

// Bind returns a copy of f pointing at the first addressable element of the
// caller's backing array. The block codec dispatch (package codec) uses
// Ptr, together with strides, to pass raw addresses across the external
// per-block transform boundary; Field itself never reads through the
// pointer.
func (f Field) Bind(ptr unsafe.Pointer) Field {
	f.data = ptr
	return f
}

// Ptr returns the field's bound base pointer, or nil if Bind was never
// called.
func (f Field) Ptr() unsafe.Pointer {
	return f.data
}

// New1D describes a 1-dimensional field of nx elements. A zero stride is
// replaced with the natural stride of 1.
func New1D(kind scalar.Kind, nx, sx int) Field {
	return Field{
		kind: kind,
		rank: 1,
		nx:   nx,
		sx:   naturalStride(sx, 1),
	}
}

// New2D describes a 2-dimensional field of nx by ny elements in row-major
// storage order (x fastest). Zero strides default to the natural layout.
func New2D(kind scalar.Kind, nx, ny, sx, sy int) Field {
	return Field{
		kind: kind,
		rank: 2,
		nx:   nx,
		ny:   ny,
		sx:   naturalStride(sx, 1),
		sy:   naturalStride(sy, nx),
	}
}

// New3D describes a 3-dimensional field. Zero strides default to the
// natural layout.
func New3D(kind scalar.Kind, nx, ny, nz, sx, sy, sz int) Field {
	return Field{
		kind: kind,
		rank: 3,
		nx:   nx,
		ny:   ny,
		nz:   nz,
		sx:   naturalStride(sx, 1),
		sy:   naturalStride(sy, nx),
		sz:   naturalStride(sz, nx*ny),
	}
}

// New4D describes a 4-dimensional field. Zero strides default to the
// natural layout.
func New4D(kind scalar.Kind, nx, ny, nz, nw, sx, sy, sz, sw int) Field {
	return Field{
		kind: kind,
		rank: 4,
		nx:   nx,
		ny:   ny,
		nz:   nz,
		nw:   nw,
		sx:   naturalStride(sx, 1),
		sy:   naturalStride(sy, nx),
		sz:   naturalStride(sz, nx*ny),
		sw:   naturalStride(sw, nx*ny*nz),
	}
}

func naturalStride(s, natural int) int {
	if s == 0 {
		return natural
	}
	return s
}

// Kind returns the field's scalar kind.
func (f Field) Kind() scalar.Kind { return f.kind }

// Rank returns the field's dimensionality, 1..4.
func (f Field) Rank() int { return f.rank }

// Extent returns the extent along axis i (0=x, 1=y, 2=z, 3=w). Axes beyond
// the field's rank report 0.
func (f Field) Extent(axis int) int {
	switch axis {
	case 0:
		return f.nx
	case 1:
		return f.ny
	case 2:
		return f.nz
	case 3:
		return f.nw
	default:
		return 0
	}
}

// Stride returns the element stride along axis i. Axes beyond the field's
// rank report 0.
func (f Field) Stride(axis int) int {
	switch axis {
	case 0:
		return f.sx
	case 1:
		return f.sy
	case 2:
		return f.sz
	case 3:
		return f.sw
	default:
		return 0
	}
}

// Strided reports whether the field's layout deviates from the natural,
// unit-stride, row-major layout for its rank. The block codec dispatch
// (package codec) uses this to select between contiguous and strided block
// gather/scatter.
func (f Field) Strided() bool {
	natural := [4]int{1, f.nx, f.nx * f.ny, f.nx * f.ny * f.nz}
	for i := 0; i < f.rank; i++ {
		if f.Stride(i) != natural[i] {
			return true
		}
	}
	return false
}

// Len returns the total element count, the product of max(extent, 1) over
// the field's active axes.
func (f Field) Len() int {
	n := 1
	for i := 0; i < f.rank; i++ {
		e := f.Extent(i)
		if e < 1 {
			e = 1
		}
		n *= e
	}
	return n
}

// Span returns the byte span of the field: the number of bytes separating
// the lowest- and highest-addressed element, inclusive, scaled by the
// scalar's size. This accounts for arbitrary (including negative) strides.
func (f Field) Span() int {
	minOff, maxOff := 0, 0
	for i := 0; i < f.rank; i++ {
		e := f.Extent(i)
		s := f.Stride(i)
		if e < 1 {
			continue
		}
		edge := (e - 1) * s
		if edge < 0 {
			minOff += edge
		} else {
			maxOff += edge
		}
	}
	return (maxOff - minOff + 1) * f.kind.Size()
}

// Metadata packs the field's extents, rank and scalar kind into a 52-bit
// word: 48 bits of "extent - 1" values (split 48/24/16/12 bits per axis for
// rank 1/2/3/4), 2 bits of rank-1, 2 bits of scalar kind-1. For rank 1 the
// high 4 bits of the extent region are reserved zero. It fails with
// ErrMetadataTooLarge if any extent exceeds its rank's per-axis bit budget.
func (f Field) Metadata() (uint64, error) {
	if !f.kind.Valid() {
		return 0, errs.ErrBadScalar
	}
	if f.rank < 1 || f.rank > 4 {
		return 0, errs.ErrBadRank
	}

	bits := perRankExtentBits[f.rank-1]
	limit := uint64(1) << uint(bits)
	if f.rank == 1 {
		limit = 1 << (48 - reservedBits1D)
	}

	var extentBits uint64
	var shift uint
	for i := 0; i < f.rank; i++ {
		e := f.Extent(i)
		if e < 1 {
			e = 1
		}
		v := uint64(e - 1)
		if v >= limit {
			return 0, errs.ErrMetadataTooLarge
		}
		extentBits |= v << shift
		shift += uint(bits)
	}

	meta := extentBits
	meta |= uint64(f.rank-1) << 48
	meta |= uint64(f.kind-1) << 50

	return meta, nil
}

// FromMetadata reconstructs a Field's rank, extents and scalar kind from a
// word previously produced by Metadata. The returned Field has natural
// strides and no bound pointer (see Bind); it is the shape a classical
// header read needs before dispatch can recompute actual strides from the
// caller's array.
func FromMetadata(meta uint64) (Field, error) {
	rank := int((meta>>48)&0x3) + 1
	kind := scalar.Kind((meta>>50)&0x3) + 1
	if !kind.Valid() {
		return Field{}, errs.ErrBadScalar
	}
	if rank == 1 && (meta>>(48-reservedBits1D))&0xf != 0 {
		return Field{}, errs.ErrBadHeader
	}

	bits := perRankExtentBits[rank-1]
	mask := (uint64(1) << uint(bits)) - 1

	var extents [4]int
	for i := 0; i < rank; i++ {
		extents[i] = int((meta>>(uint(bits)*uint(i)))&mask) + 1
	}

	switch rank {
	case 1:
		return New1D(kind, extents[0], 0), nil
	case 2:
		return New2D(kind, extents[0], extents[1], 0, 0), nil
	case 3:
		return New3D(kind, extents[0], extents[1], extents[2], 0, 0, 0), nil
	default:
		return New4D(kind, extents[0], extents[1], extents[2], extents[3], 0, 0, 0, 0), nil
	}
}
