// Package header implements the two on-stream header layouts: the chunked
// header (magic, scalar kind, extents, long mode, chunk grid, begs table,
// optional checksum trailer) that precedes a parallel-driver payload, and
// the classical header (magic + 52-bit metadata + short-or-long mode)
// retained for single-chunk streams.
package header

import (
	"github.com/cespare/xxhash/v2"

	"github.com/SEP-software/zfp-par/bitstream"
	"github.com/SEP-software/zfp-par/errs"
	"github.com/SEP-software/zfp-par/field"
	"github.com/SEP-software/zfp-par/params"
	"github.com/SEP-software/zfp-par/scalar"
)

// Bit widths of the chunked header's fields, in write order.
const (
	MagicBits      = 32
	ScalarBits     = 8
	ExtentBits     = 32
	ModeBits       = 64
	NBegBits       = 32
	ChunkCountBits = 32
	ChecksumBits   = 64

	// CodecVersion is embedded in the magic word's top byte; readers that
	// see a different version reject the stream as a mismatch.
	CodecVersion = 1
)

const magic = uint64('z') | uint64('f')<<8 | uint64('p')<<16 | uint64(CodecVersion)<<24

const wordBits = bitstream.WordBits

// ChunkedSize returns the exact bit length of a chunked header for nbeg
// chunks, including the begs table and, if checksum is set, the trailing
// xxhash64 checksum. The result is always a multiple of the stream's word
// size, so callers can reserve this many bits for the header and start the
// payload immediately afterward with a word-aligned SeekW.
func ChunkedSize(nbeg int, checksum bool) int {
	fixed := MagicBits + ScalarBits + 4*ExtentBits + ModeBits + NBegBits + 4*ChunkCountBits
	padded := fixed
	if rem := padded % wordBits; rem != 0 {
		padded += wordBits - rem
	}
	padded += (nbeg + 1) * 64
	if checksum {
		padded += ChecksumBits
	}
	return padded
}

// Chunked is the decoded form of a chunked header.
type Chunked struct {
	Scalar   scalar.Kind
	Extents  [4]int
	Params   params.Params
	Counts   [4]int
	Begs     []uint64
	Checksum bool
}

// WriteChunked writes h's fields in the order magic, scalar kind, extents,
// mode (always long-encoded), nbeg, chunk counts, padding to the next
// word, then the begs table, and finally an xxhash64 trailer over
// everything written so far if h.Checksum is set.
func WriteChunked(s *bitstream.Stream, h Chunked) error {
	if _, err := s.WriteBits(magic, MagicBits); err != nil {
		return err
	}
	if _, err := s.WriteBits(uint64(h.Scalar), ScalarBits); err != nil {
		return err
	}
	for i := 0; i < 4; i++ {
		if _, err := s.WriteBits(uint64(h.Extents[i]), ExtentBits); err != nil {
			return err
		}
	}
	if _, err := s.WriteBits(h.Params.EncodeLong(), ModeBits); err != nil {
		return err
	}

	nbeg := len(h.Begs) - 1
	if _, err := s.WriteBits(uint64(nbeg), NBegBits); err != nil {
		return err
	}
	for i := 0; i < 4; i++ {
		if _, err := s.WriteBits(uint64(h.Counts[i]), ChunkCountBits); err != nil {
			return err
		}
	}

	if _, err := s.Flush(); err != nil {
		return err
	}

	for _, beg := range h.Begs {
		if _, err := s.WriteBits(beg, 64); err != nil {
			return err
		}
	}

	if h.Checksum {
		sum := xxhash.Sum64(s.BytesUpTo(s.TellW()))
		if _, err := s.WriteBits(sum, ChecksumBits); err != nil {
			return err
		}
	}

	return nil
}

// ReadChunked reads the symmetric inverse of WriteChunked. It fails with
// ErrBadHeader on a magic mismatch, an invalid scalar kind, or (when
// withChecksum is set) a checksum mismatch.
func ReadChunked(s *bitstream.Stream, withChecksum bool) (Chunked, error) {
	var h Chunked
	h.Checksum = withChecksum

	got, err := s.ReadBits(MagicBits)
	if err != nil {
		return Chunked{}, err
	}
	if got != magic {
		return Chunked{}, errs.ErrBadHeader
	}

	kindRaw, err := s.ReadBits(ScalarBits)
	if err != nil {
		return Chunked{}, err
	}
	h.Scalar = scalar.Kind(kindRaw)
	if !h.Scalar.Valid() {
		return Chunked{}, errs.ErrBadHeader
	}

	for i := 0; i < 4; i++ {
		v, err := s.ReadBits(ExtentBits)
		if err != nil {
			return Chunked{}, err
		}
		h.Extents[i] = int(v)
	}

	modeRaw, err := s.ReadBits(ModeBits)
	if err != nil {
		return Chunked{}, err
	}
	h.Params, err = params.Decode(modeRaw)
	if err != nil {
		return Chunked{}, errs.ErrBadHeader
	}

	nbegRaw, err := s.ReadBits(NBegBits)
	if err != nil {
		return Chunked{}, err
	}
	nbeg := int(nbegRaw)

	for i := 0; i < 4; i++ {
		v, err := s.ReadBits(ChunkCountBits)
		if err != nil {
			return Chunked{}, err
		}
		h.Counts[i] = int(v)
	}

	s.Align()

	h.Begs = make([]uint64, nbeg+1)
	for i := range h.Begs {
		v, err := s.ReadBits(64)
		if err != nil {
			return Chunked{}, err
		}
		h.Begs[i] = v
	}

	if withChecksum {
		got := xxhash.Sum64(s.BytesUpTo(s.TellR()))
		want, err := s.ReadBits(ChecksumBits)
		if err != nil {
			return Chunked{}, err
		}
		if got != want {
			return Chunked{}, errs.ErrBadHeader
		}
	}

	return h, nil
}

// Classical is the decoded form of the single-chunk classical header:
// magic, 52-bit metadata (rank, extents, scalar kind), and the
// short-or-long mode encoding.
type Classical struct {
	Field  field.Field
	Params params.Params
}

const metaBits = 52

// WriteClassical writes c's magic, metadata word, and mode. The mode is
// written in the short 12-bit form when it fits, else the long 64-bit
// form; readers distinguish the two by the low 12 bits.
func WriteClassical(s *bitstream.Stream, c Classical) error {
	if _, err := s.WriteBits(magic, MagicBits); err != nil {
		return err
	}

	meta, err := c.Field.Metadata()
	if err != nil {
		return err
	}
	if _, err := s.WriteBits(meta, metaBits); err != nil {
		return err
	}

	if short, ok := c.Params.EncodeShort(); ok {
		_, err = s.WriteBits(uint64(short), 12)
	} else {
		_, err = s.WriteBits(c.Params.EncodeLong(), ModeBits)
	}
	return err
}

// ReadClassical reads the symmetric inverse of WriteClassical. It fails
// with ErrBadHeader on a magic mismatch or an out-of-range mode.
func ReadClassical(s *bitstream.Stream) (Classical, error) {
	got, err := s.ReadBits(MagicBits)
	if err != nil {
		return Classical{}, err
	}
	if got != magic {
		return Classical{}, errs.ErrBadHeader
	}

	meta, err := s.ReadBits(metaBits)
	if err != nil {
		return Classical{}, err
	}
	f, err := field.FromMetadata(meta)
	if err != nil {
		return Classical{}, errs.ErrBadHeader
	}

	low12, err := s.ReadBits(12)
	if err != nil {
		return Classical{}, err
	}

	var p params.Params
	if low12 != 0xfff {
		p, err = params.Decode(low12)
	} else {
		rest, rerr := s.ReadBits(ModeBits - 12)
		if rerr != nil {
			return Classical{}, rerr
		}
		p, err = params.Decode(low12 | rest<<12)
	}
	if err != nil {
		return Classical{}, errs.ErrBadHeader
	}

	return Classical{Field: f, Params: p}, nil
}
