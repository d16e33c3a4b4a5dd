// Package bitstream implements the unaligned bit-level read/write cursor
// that every other component of the codec is built on top of: an append-only
// writer and a symmetric reader over a fixed-capacity byte buffer, with
// seek/tell/flush/align/rewind/copy.
//
// Bits are packed low-bit-first: WriteBits(v, n) places bit 0 of v at the
// current bit position, bit 1 immediately after it, and so on. The mode
// encodings (package params) and the per-block codec contract (package
// codec) both assume this convention.
package bitstream

import (
	"encoding/binary"

	"github.com/SEP-software/zfp-par/errs"
)

// WordBits is the stream's word size. It governs flush/align padding and is
// part of the wire contract: begs values are multiples of WordBits.
const WordBits = 64

// Stream is an unaligned bit-level cursor over a fixed byte buffer.
//
// A Stream does not own its buffer: Open wraps a caller-provided slice, and
// the caller is responsible for the slice's lifetime. This lets the
// parallel driver (package driver) hand out one Stream per chunk as a view
// into a single shared allocation without any copying.
//
// Stream is NOT safe for concurrent use by multiple goroutines; each
// goroutine touching a region of the backing buffer must use its own
// Stream over its own sub-slice.
type Stream struct {
	buf          []byte
	capacityBits int
	wpos         int // next bit to write
	rpos         int // next bit to read
	whigh        int // high-water mark of bits validly written
}

// Open wraps buf as a new Stream with both cursors at zero. buf's length
// fixes the stream's capacity in bits (len(buf) * 8); Open never reallocates
// or copies it.
func Open(buf []byte) *Stream {
	return &Stream{
		buf:          buf,
		capacityBits: len(buf) * 8,
	}
}

// OpenReader wraps buf as a Stream whose entire contents count as already
// written, so ReadBits can consume all of it immediately. This is the
// constructor for the decode side, where buf holds bytes produced by some
// earlier Stream (or read off disk) rather than bits this Stream wrote
// itself.
func OpenReader(buf []byte) *Stream {
	return &Stream{
		buf:          buf,
		capacityBits: len(buf) * 8,
		whigh:        len(buf) * 8,
	}
}

// Close releases the Stream's reference to its buffer. It does not touch
// the buffer's contents; callers that obtained buf from a pool remain
// responsible for returning it.
func (s *Stream) Close() {
	s.buf = nil
}

// Bytes returns the portion of the backing buffer that has been written so
// far: the write high-water mark rounded up to a whole byte.
func (s *Stream) Bytes() []byte {
	n := (s.whigh + 7) / 8
	return s.buf[:n]
}

// BytesRead returns the portion of the backing buffer consumed by the read
// cursor so far. Callers use this to recompute a checksum over a header
// they have just finished reading, e.g. package header's optional trailer.
func (s *Stream) BytesRead() []byte {
	n := (s.rpos + 7) / 8
	return s.buf[:n]
}

// BytesUpTo returns the backing buffer truncated to bits, rounded up to the
// nearest byte, regardless of the write cursor's high-water mark. Bytes and
// BytesRead both key off cursor state (whigh, rpos) that can run ahead of a
// caller's intended prefix: e.g. a chunked stream's payload is written
// before its header is back-filled, which advances whigh past the header
// entirely. Callers that need a checksum over an explicit prefix use this
// instead.
func (s *Stream) BytesUpTo(bits int) []byte {
	n := (bits + 7) / 8
	return s.buf[:n]
}

// TellW returns the current write bit position.
func (s *Stream) TellW() int { return s.wpos }

// TellR returns the current read bit position.
func (s *Stream) TellR() int { return s.rpos }

// SeekW moves the write cursor to an absolute bit position, which must be a
// multiple of WordBits.
func (s *Stream) SeekW(pos int) error {
	if pos < 0 || pos%WordBits != 0 || pos > s.capacityBits {
		return errs.ErrBufferOverflow
	}
	s.wpos = pos
	if pos > s.whigh {
		s.whigh = pos
	}
	return nil
}

// SeekR moves the read cursor to an absolute bit position.
func (s *Stream) SeekR(pos int) error {
	if pos < 0 || pos > s.whigh {
		return errs.ErrBufferOverflow
	}
	s.rpos = pos
	return nil
}

// Rewind resets both the read and write cursors to zero. The high-water
// mark of previously written bits is preserved, so a subsequent ReadBits
// can replay everything written before the rewind.
func (s *Stream) Rewind() {
	s.wpos = 0
	s.rpos = 0
}

// Align advances the read cursor to the next WordBits boundary.
func (s *Stream) Align() {
	rem := s.rpos % WordBits
	if rem != 0 {
		s.rpos += WordBits - rem
	}
}

// Flush pads the write cursor with zero bits up to the next WordBits
// boundary and returns the number of padding bits written. Flush is
// idempotent: calling it when already word-aligned writes nothing.
func (s *Stream) Flush() (int, error) {
	rem := s.wpos % WordBits
	if rem == 0 {
		return 0, nil
	}
	pad := WordBits - rem
	if _, err := s.WriteBits(0, pad); err != nil {
		return 0, err
	}
	return pad, nil
}

// WriteBits appends the low n bits of v (0 <= n <= 64) at the current write
// position and advances it by n. It returns ErrBufferOverflow without
// writing any bits if the buffer's capacity would be exceeded.
func (s *Stream) WriteBits(v uint64, n int) (int, error) {
	if n == 0 {
		return 0, nil
	}
	if n < 0 || n > 64 {
		panic("bitstream: WriteBits n out of range")
	}
	if s.wpos+n > s.capacityBits {
		return 0, errs.ErrBufferOverflow
	}
	if n < 64 {
		v &= (uint64(1) << uint(n)) - 1
	}

	if s.wpos%8 == 0 && n%8 == 0 {
		writeAlignedBits(s.buf[s.wpos/8:], v, n)
	} else {
		writeUnalignedBits(s.buf, s.wpos, v, n)
	}

	s.wpos += n
	if s.wpos > s.whigh {
		s.whigh = s.wpos
	}

	return n, nil
}

// ReadBits consumes n bits (0 <= n <= 64) from the current read position
// and advances it by n, returning their value in the low n bits of the
// result.
func (s *Stream) ReadBits(n int) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if n < 0 || n > 64 {
		panic("bitstream: ReadBits n out of range")
	}
	if s.rpos+n > s.whigh {
		return 0, errs.ErrBufferOverflow
	}

	var v uint64
	if s.rpos%8 == 0 && n%8 == 0 {
		v = readAlignedBits(s.buf[s.rpos/8:], n)
	} else {
		v = readUnalignedBits(s.buf, s.rpos, n)
	}

	s.rpos += n

	return v, nil
}

// Copy appends exactly nbits from src's current read cursor to dst's
// current write cursor, advancing both cursors. The driver's single-stream
// concatenation phase uses it to append chunk payloads in order.
func Copy(dst, src *Stream, nbits int) error {
	for nbits > 0 {
		n := nbits
		if n > 64 {
			n = 64
		}
		v, err := src.ReadBits(n)
		if err != nil {
			return err
		}
		if _, err := dst.WriteBits(v, n); err != nil {
			return err
		}
		nbits -= n
	}
	return nil
}

// writeAlignedBits writes n (multiple of 8) bits starting at a byte
// boundary using the standard library's byte-order helpers, the fast path
// for byte-aligned runs.
func writeAlignedBits(buf []byte, v uint64, n int) {
	switch n {
	case 8:
		buf[0] = byte(v)
	case 16:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 32:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 64:
		binary.LittleEndian.PutUint64(buf, v)
	default:
		nbytes := n / 8
		for i := 0; i < nbytes; i++ {
			buf[i] = byte(v >> (8 * uint(i)))
		}
	}
}

func readAlignedBits(buf []byte, n int) uint64 {
	switch n {
	case 8:
		return uint64(buf[0])
	case 16:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 32:
		return uint64(binary.LittleEndian.Uint32(buf))
	case 64:
		return binary.LittleEndian.Uint64(buf)
	default:
		nbytes := n / 8
		var v uint64
		for i := 0; i < nbytes; i++ {
			v |= uint64(buf[i]) << (8 * uint(i))
		}
		return v
	}
}

func writeUnalignedBits(buf []byte, pos int, v uint64, n int) {
	for i := 0; i < n; i++ {
		bit := (v >> uint(i)) & 1
		byteIdx := (pos + i) >> 3
		bitIdx := uint((pos + i) & 7)
		if bit != 0 {
			buf[byteIdx] |= 1 << bitIdx
		} else {
			buf[byteIdx] &^= 1 << bitIdx
		}
	}
}

func readUnalignedBits(buf []byte, pos int, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		byteIdx := (pos + i) >> 3
		bitIdx := uint((pos + i) & 7)
		bit := (buf[byteIdx] >> bitIdx) & 1
		v |= uint64(bit) << uint(i)
	}
	return v
}
