package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteBuffer_ExtendWithinCapacity(t *testing.T) {
	bb := NewByteBuffer(32)
	require.Empty(t, bb.Bytes())

	require.True(t, bb.Extend(16))
	assert.Len(t, bb.Bytes(), 16)

	// Beyond capacity: Extend refuses, ExtendOrGrow reallocates.
	assert.False(t, bb.Extend(cap(bb.Bytes())))
	bb.ExtendOrGrow(cap(bb.Bytes()))
	assert.GreaterOrEqual(t, len(bb.Bytes()), 16)
}

func TestByteBuffer_ExtendOrGrow_SizesUpperBoundRegion(t *testing.T) {
	// The driver sizes one upper-bound region for all chunks in a single
	// call; the buffer must come back with exactly that many addressable
	// bytes.
	bb := NewByteBuffer(16)
	const regionBytes = 200_000

	bb.ExtendOrGrow(regionBytes)
	assert.Len(t, bb.Bytes(), regionBytes)
	assert.GreaterOrEqual(t, cap(bb.Bytes()), regionBytes)
}

func TestByteBuffer_GrowPreservesData(t *testing.T) {
	bb := NewByteBuffer(8)
	bb.ExtendOrGrow(4)
	copy(bb.Bytes(), []byte{1, 2, 3, 4})

	bb.Grow(1 << 16)
	assert.Equal(t, []byte{1, 2, 3, 4}, bb.Bytes())
}

func TestByteBuffer_ResetKeepsAllocation(t *testing.T) {
	bb := NewByteBuffer(64)
	bb.ExtendOrGrow(48)

	bb.Reset()
	assert.Empty(t, bb.Bytes())
	assert.GreaterOrEqual(t, cap(bb.Bytes()), 64)
}

func TestByteBufferPool_GetPutReuse(t *testing.T) {
	p := NewByteBufferPool(64, 0)

	bb := p.Get()
	bb.ExtendOrGrow(32)
	p.Put(bb)

	reused := p.Get()
	assert.Empty(t, reused.Bytes(), "pooled buffers come back reset")
}

func TestByteBufferPool_PutNil(t *testing.T) {
	p := NewByteBufferPool(64, 0)
	assert.NotPanics(t, func() { p.Put(nil) })
}

func TestByteBufferPool_ThresholdDiscardsOversized(t *testing.T) {
	p := NewByteBufferPool(64, 128)

	big := p.Get()
	big.ExtendOrGrow(4096)
	p.Put(big) // over threshold, dropped so the pool can't hoard memory

	next := p.Get()
	assert.Less(t, cap(next.Bytes()), 4096, "oversized buffer must not come back from the pool")
}

func TestByteBufferPool_ConcurrentGetPut(t *testing.T) {
	p := NewByteBufferPool(256, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bb := p.Get()
				bb.ExtendOrGrow(worker*16 + j + 1)
				bb.Bytes()[0] = byte(worker)
				p.Put(bb)
			}
		}(i)
	}
	wg.Wait()
}

func TestDefaultPools_Independent(t *testing.T) {
	stream := GetStreamBuffer()
	chunk := GetChunkBuffer()

	stream.ExtendOrGrow(8)
	chunk.ExtendOrGrow(16)
	assert.NotEqual(t, len(stream.Bytes()), len(chunk.Bytes()))

	PutStreamBuffer(stream)
	PutChunkBuffer(chunk)
}

func BenchmarkExtendOrGrow_Pooled(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		bb := GetChunkBuffer()
		bb.ExtendOrGrow(1 << 16)
		PutChunkBuffer(bb)
	}
}

func BenchmarkExtendOrGrow_Fresh(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		bb := NewByteBuffer(ChunkBufferDefaultSize)
		bb.ExtendOrGrow(1 << 16)
	}
}
