package header_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEP-software/zfp-par/bitstream"
	"github.com/SEP-software/zfp-par/errs"
	"github.com/SEP-software/zfp-par/field"
	"github.com/SEP-software/zfp-par/header"
	"github.com/SEP-software/zfp-par/params"
	"github.com/SEP-software/zfp-par/scalar"
)

func TestChunkedRoundTripWithChecksum(t *testing.T) {
	h := header.Chunked{
		Scalar:  scalar.F32,
		Extents: [4]int{8, 100, 146, 0},
		Params:  params.NewFixedAccuracy(-8),
		Counts:  [4]int{1, 4, 3, 1},
		Begs:    []uint64{0, 4096, 9216, 13824, 20480, 24576, 30976, 37888, 42112, 45056, 49920, 54272, 60032},
		Checksum: true,
	}

	buf := make([]byte, 4096)
	s := bitstream.Open(buf)
	require.NoError(t, header.WriteChunked(s, h))

	s.Rewind()
	got, err := header.ReadChunked(s, true)
	require.NoError(t, err)

	assert.Equal(t, h.Scalar, got.Scalar)
	assert.Equal(t, h.Extents, got.Extents)
	assert.Equal(t, h.Params, got.Params)
	assert.Equal(t, h.Counts, got.Counts)
	assert.Equal(t, h.Begs, got.Begs)
}

func TestChunkedRoundTripNoChecksum(t *testing.T) {
	h := header.Chunked{
		Scalar:  scalar.I32,
		Extents: [4]int{17, 0, 0, 0},
		Params:  params.NewReversible(),
		Counts:  [4]int{2, 1, 1, 1},
		Begs:    []uint64{0, 256, 512},
	}

	buf := make([]byte, 1024)
	s := bitstream.Open(buf)
	require.NoError(t, header.WriteChunked(s, h))

	s.Rewind()
	got, err := header.ReadChunked(s, false)
	require.NoError(t, err)
	assert.Equal(t, h.Begs, got.Begs)
}

func TestChunkedChecksumMismatchRejected(t *testing.T) {
	h := header.Chunked{
		Scalar:   scalar.F64,
		Extents:  [4]int{500, 500, 0, 0},
		Params:   params.NewFixedRate(32),
		Counts:   [4]int{5, 5, 1, 1},
		Begs:     []uint64{0, 100, 200},
		Checksum: true,
	}

	buf := make([]byte, 1024)
	s := bitstream.Open(buf)
	require.NoError(t, header.WriteChunked(s, h))

	// Corrupt one of the begs entries after writing; this should poison
	// the checksum computed on read.
	bytes := s.Bytes()
	bytes[len(bytes)-9] ^= 0xff

	s.Rewind()
	_, err := header.ReadChunked(s, true)
	assert.Error(t, err)
}

func TestChunkedMagicMismatchRejected(t *testing.T) {
	buf := make([]byte, 256)
	s := bitstream.Open(buf)
	_, err := s.WriteBits(0xdeadbeef, 32)
	require.NoError(t, err)

	s.Rewind()
	_, err = header.ReadChunked(s, false)
	assert.ErrorIs(t, err, errs.ErrBadHeader)
}

func TestClassicalRoundTripShortMode(t *testing.T) {
	f := field.New2D(scalar.F32, 4, 4, 0, 0)
	c := header.Classical{Field: f, Params: params.NewFixedRate(16)}

	buf := make([]byte, 256)
	s := bitstream.Open(buf)
	require.NoError(t, header.WriteClassical(s, c))

	s.Rewind()
	got, err := header.ReadClassical(s)
	require.NoError(t, err)

	assert.Equal(t, f.Rank(), got.Field.Rank())
	assert.Equal(t, f.Kind(), got.Field.Kind())
	assert.Equal(t, c.Params, got.Params)
}

func TestClassicalRoundTripLongMode(t *testing.T) {
	f := field.New1D(scalar.I64, 17, 0)
	c := header.Classical{Field: f, Params: params.NewExpert(3, 16654, 61, -1074)}

	buf := make([]byte, 256)
	s := bitstream.Open(buf)
	require.NoError(t, header.WriteClassical(s, c))

	s.Rewind()
	got, err := header.ReadClassical(s)
	require.NoError(t, err)
	assert.Equal(t, c.Params, got.Params)
}

func TestClassicalMagicMismatchRejected(t *testing.T) {
	buf := make([]byte, 256)
	s := bitstream.Open(buf)
	_, err := s.WriteBits(0, 32)
	require.NoError(t, err)

	s.Rewind()
	_, err = header.ReadClassical(s)
	assert.ErrorIs(t, err, errs.ErrBadHeader)
}
