package codec_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEP-software/zfp-par/bitstream"
	"github.com/SEP-software/zfp-par/chunk"
	"github.com/SEP-software/zfp-par/codec"
	"github.com/SEP-software/zfp-par/errs"
	"github.com/SEP-software/zfp-par/exec"
	"github.com/SEP-software/zfp-par/field"
	"github.com/SEP-software/zfp-par/params"
	"github.com/SEP-software/zfp-par/refcodec"
	"github.com/SEP-software/zfp-par/scalar"
)

func newRegistry(rank int, kind scalar.Kind) *codec.Registry {
	reg := codec.NewRegistry()
	rc := refcodec.New(rank, kind)
	for _, strided := range []bool{false, true} {
		reg.Register(codec.Key{Policy: exec.Serial, Strided: strided, Rank: rank, Scalar: kind}, rc)
		reg.Register(codec.Key{Policy: exec.Parallel, Strided: strided, Rank: rank, Scalar: kind}, rc)
	}
	return reg
}

func TestWalkRoundTripFullBlocks2D(t *testing.T) {
	nx, ny := 8, 8
	data := make([]float64, nx*ny)
	for i := range data {
		data[i] = float64(i)
	}
	f := field.New2D(scalar.F64, nx, ny, 0, 0).Bind(unsafe.Pointer(&data[0]))

	d, err := chunk.Plan([4]int{nx, ny, 1, 1}, 2, 4096, chunk.BestCache)
	require.NoError(t, err)
	require.Equal(t, 1, d.NBeg())

	reg := newRegistry(2, scalar.F64)
	buf := make([]byte, 4096)
	s := bitstream.Open(buf)

	n, err := codec.Walk(reg, exec.Serial, params.NewReversible(), f, d.Chunks[0], s, true)
	require.NoError(t, err)
	assert.Equal(t, nx*ny*64, n)

	out := make([]float64, nx*ny)
	g := field.New2D(scalar.F64, nx, ny, 0, 0).Bind(unsafe.Pointer(&out[0]))
	s.Rewind()
	_, err = codec.Walk(reg, exec.Serial, params.NewReversible(), g, d.Chunks[0], s, false)
	require.NoError(t, err)

	assert.Equal(t, data, out)
}

func TestWalkPartialBlockEdge(t *testing.T) {
	n := 6
	data := make([]int32, n)
	for i := range data {
		data[i] = int32(i * 3)
	}
	f := field.New1D(scalar.I32, n, 0).Bind(unsafe.Pointer(&data[0]))

	d, err := chunk.Plan([4]int{n, 1, 1, 1}, 1, 4096, chunk.BestCache)
	require.NoError(t, err)

	reg := newRegistry(1, scalar.I32)
	buf := make([]byte, 4096)
	s := bitstream.Open(buf)

	_, err = codec.Walk(reg, exec.Serial, params.NewReversible(), f, d.Chunks[0], s, true)
	require.NoError(t, err)

	out := make([]int32, n)
	g := field.New1D(scalar.I32, n, 0).Bind(unsafe.Pointer(&out[0]))
	s.Rewind()
	_, err = codec.Walk(reg, exec.Serial, params.NewReversible(), g, d.Chunks[0], s, false)
	require.NoError(t, err)

	assert.Equal(t, data, out)
}

func TestWalkUnsupportedConfiguration(t *testing.T) {
	reg := codec.NewRegistry()
	f := field.New1D(scalar.F32, 4, 0)
	d, err := chunk.Plan([4]int{4, 1, 1, 1}, 1, 4096, chunk.BestCache)
	require.NoError(t, err)

	buf := make([]byte, 64)
	s := bitstream.Open(buf)

	_, err = codec.Walk(reg, exec.Serial, params.NewReversible(), f, d.Chunks[0], s, true)
	assert.ErrorIs(t, err, errs.ErrUnsupportedConfiguration)
}
