package driver_test

import (
	"context"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SEP-software/zfp-par/bitstream"
	"github.com/SEP-software/zfp-par/chunk"
	"github.com/SEP-software/zfp-par/codec"
	"github.com/SEP-software/zfp-par/driver"
	"github.com/SEP-software/zfp-par/exec"
	"github.com/SEP-software/zfp-par/field"
	"github.com/SEP-software/zfp-par/params"
	"github.com/SEP-software/zfp-par/refcodec"
	"github.com/SEP-software/zfp-par/scalar"
)

func registryFor(rank int, kind scalar.Kind) *codec.Registry {
	reg := codec.NewRegistry()
	rc := refcodec.New(rank, kind)
	for _, strided := range []bool{false, true} {
		reg.Register(codec.Key{Policy: exec.Serial, Strided: strided, Rank: rank, Scalar: kind}, rc)
		reg.Register(codec.Key{Policy: exec.Parallel, Strided: strided, Rank: rank, Scalar: kind}, rc)
	}
	return reg
}

func TestChunkUpperBoundMonotonic(t *testing.T) {
	p := params.NewFixedPrecision(32)
	small := driver.ChunkUpperBound(p, scalar.F64, 2, 1)
	large := driver.ChunkUpperBound(p, scalar.F64, 2, 100)
	assert.Less(t, small, large)
}

func TestMaximumSizeCoversReversibleField(t *testing.T) {
	f := field.New2D(scalar.F64, 100, 100, 0, 0)
	p := params.NewReversible()
	size := driver.MaximumSize(p, f)
	assert.Greater(t, size, 0)
}

func runCompressDecompressSingle(t *testing.T, policy exec.Policy) {
	t.Helper()

	nx, ny := 17, 17
	data := make([]float64, nx*ny)
	for i := range data {
		data[i] = float64(i)
	}
	f := field.New2D(scalar.F64, nx, ny, 0, 0).Bind(unsafe.Pointer(&data[0]))

	bd, err := chunk.Plan([4]int{nx, ny, 1, 1}, 2, 4, chunk.BestCache)
	require.NoError(t, err)
	require.Greater(t, bd.NBeg(), 1)

	p := params.NewReversible()
	reg := registryFor(2, scalar.F64)
	d := driver.New(driver.WithPolicy(policy))

	dstBuf := make([]byte, driver.MaximumSize(p, f)*2)
	dst := bitstream.Open(dstBuf)

	begs, err := d.CompressSingle(context.Background(), reg, p, f, bd, dst)
	require.NoError(t, err)
	require.Len(t, begs, bd.NBeg()+1)
	assert.Equal(t, uint64(0), begs[0])

	payload := dst.Bytes()

	out := make([]float64, nx*ny)
	g := field.New2D(scalar.F64, nx, ny, 0, 0).Bind(unsafe.Pointer(&out[0]))

	err = d.DecompressSingle(context.Background(), reg, p, g, bd, payload, begs)
	require.NoError(t, err)

	assert.Equal(t, data, out)
}

func TestCompressDecompressSingleSerial(t *testing.T) {
	runCompressDecompressSingle(t, exec.Serial)
}

func TestCompressDecompressSingleParallel(t *testing.T) {
	runCompressDecompressSingle(t, exec.Parallel)
}

func TestChunkUpperBoundIsSound(t *testing.T) {
	nx, ny := 23, 57
	data := make([]float32, nx*ny)
	for i := range data {
		data[i] = float32(i) * 0.75
	}
	f := field.New2D(scalar.F32, nx, ny, 0, 0).Bind(unsafe.Pointer(&data[0]))

	for _, p := range []params.Params{
		params.NewReversible(),
		params.NewFixedPrecision(17),
		params.NewFixedRate(4 * 16),
	} {
		bd, err := chunk.Plan([4]int{nx, ny, 1, 1}, 2, 8, chunk.BestCache)
		require.NoError(t, err)

		reg := registryFor(2, scalar.F32)
		d := driver.New(driver.WithPolicy(exec.Parallel))

		_, bits, err := d.CompressMulti(context.Background(), reg, p, f, bd)
		require.NoError(t, err)

		for i, c := range bd.Chunks {
			bound := driver.ChunkUpperBound(p, scalar.F32, c.Rank, c.Blocks())
			assert.LessOrEqual(t, bits[i], uint64(bound*8),
				"%s: chunk %d wrote more bits than its upper bound", p.Mode(), i)
		}
	}
}

func TestCompressDecompressMulti(t *testing.T) {
	nx := 33
	data := make([]int32, nx)
	for i := range data {
		data[i] = int32(i)
	}
	f := field.New1D(scalar.I32, nx, 0).Bind(unsafe.Pointer(&data[0]))

	bd, err := chunk.Plan([4]int{nx, 1, 1, 1}, 1, 2, chunk.BestCache)
	require.NoError(t, err)
	require.Greater(t, bd.NBeg(), 1)

	p := params.NewReversible()
	reg := registryFor(1, scalar.I32)
	d := driver.New(driver.WithPolicy(exec.Parallel))

	buffers, bits, err := d.CompressMulti(context.Background(), reg, p, f, bd)
	require.NoError(t, err)
	require.Len(t, buffers, bd.NBeg())

	out := make([]int32, nx)
	g := field.New1D(scalar.I32, nx, 0).Bind(unsafe.Pointer(&out[0]))

	err = d.DecompressMulti(context.Background(), reg, p, g, bd, buffers, bits)
	require.NoError(t, err)

	assert.Equal(t, data, out)
}
