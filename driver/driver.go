// Package driver implements the parallel chunk driver: it sizes a
// per-chunk upper-bound byte region for every chunk a tiling plan produced,
// dispatches the block codec across chunks concurrently, and joins before
// the caller concatenates payloads into a single stream or hands back the
// independent sub-stream set.
package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/SEP-software/zfp-par/bitstream"
	"github.com/SEP-software/zfp-par/chunk"
	"github.com/SEP-software/zfp-par/codec"
	"github.com/SEP-software/zfp-par/errs"
	"github.com/SEP-software/zfp-par/exec"
	"github.com/SEP-software/zfp-par/field"
	"github.com/SEP-software/zfp-par/internal/pool"
	"github.com/SEP-software/zfp-par/params"
	"github.com/SEP-software/zfp-par/scalar"
)

// ChunkUpperBound returns the worst-case number of bytes one chunk's
// compressed payload can occupy:
//
//	per_block_bits = signbit_cost + (V-1) + V*min(maxprec, scalar_bits)
//	per_block_bits = clamp(per_block_bits, minbits, maxbits)
//	U = ceil(blocks * per_block_bits, word_bits) / 8
func ChunkUpperBound(p params.Params, k scalar.Kind, rank int, blocksInChunk int) int {
	reversible := p.Mode() == params.Reversible
	v := 1 << uint(2*rank)

	perBlock := k.SignBitCost(reversible) + (v - 1)

	maxprec := p.MaxPrec
	if k.Bits() < maxprec {
		maxprec = k.Bits()
	}
	perBlock += v * maxprec

	if perBlock > p.MaxBits {
		perBlock = p.MaxBits
	}
	if perBlock < p.MinBits {
		perBlock = p.MinBits
	}

	totalBits := blocksInChunk * perBlock
	totalBits = roundUpWord(totalBits)

	return totalBits / 8
}

// MaximumSize returns the worst-case payload size in bytes for compressing
// the whole field as a single unit. It does not include any header's bits;
// callers add the header codec's own size (package header) on top.
func MaximumSize(p params.Params, f field.Field) int {
	blocks := 1
	for i := 0; i < f.Rank(); i++ {
		e := f.Extent(i)
		if e < 1 {
			e = 1
		}
		blocks *= (e + 3) / 4
	}
	return ChunkUpperBound(p, f.Kind(), f.Rank(), blocks)
}

func roundUpWord(bits int) int {
	rem := bits % params.StreamWordBits
	if rem == 0 {
		return bits
	}
	return bits + (params.StreamWordBits - rem)
}

// Driver runs the block codec dispatch across a tiling plan's chunks,
// either serially or over a bounded worker pool.
type Driver struct {
	policy  exec.Policy
	workers int
}

// Option configures a Driver.
type Option func(*Driver)

// WithPolicy sets the execution policy. Default is exec.Parallel.
func WithPolicy(p exec.Policy) Option {
	return func(d *Driver) { d.policy = p }
}

// WithWorkers caps the worker pool size for exec.Parallel. Default is
// runtime.GOMAXPROCS(-1).
func WithWorkers(n int) Option {
	return func(d *Driver) { d.workers = n }
}

// New returns a Driver configured by opts.
func New(opts ...Option) *Driver {
	d := &Driver{policy: exec.Parallel, workers: runtime.GOMAXPROCS(-1)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// chunkRegion is one chunk's reserved upper-bound byte window inside a
// shared buffer.
type chunkRegion struct {
	offset int
	bound  int
}

// PayloadBound returns the worst-case number of bytes the concatenated
// payload of every chunk in bd can occupy, the sum of each chunk's
// ChunkUpperBound. Callers sizing a destination buffer for CompressSingle
// add this to their header codec's own size (package header).
func PayloadBound(p params.Params, f field.Field, bd chunk.BlocksDescriptor) int {
	_, total := layout(p, f, bd)
	return total
}

func layout(p params.Params, f field.Field, bd chunk.BlocksDescriptor) ([]chunkRegion, int) {
	regions := make([]chunkRegion, len(bd.Chunks))
	offset := 0
	for i, c := range bd.Chunks {
		u := ChunkUpperBound(p, f.Kind(), c.Rank, c.Blocks())
		regions[i] = chunkRegion{offset: offset, bound: u}
		offset += u
	}
	return regions, offset
}

// runChunks dispatches fn over every chunk index, serially or via a bounded
// errgroup worker pool depending on the Driver's policy. No chunk shares
// mutable state with another: each touches only its own region of the
// shared buffer and its own slot of the output bit-count table.
func (d *Driver) runChunks(ctx context.Context, n int, fn func(i int) error) error {
	if d.policy == exec.Serial {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	workers := d.workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return fn(i)
		})
	}
	return g.Wait()
}

// CompressMulti compresses every chunk of bd into its own freshly allocated
// sub-stream buffer, sized to ChunkUpperBound, and returns the sub-streams'
// backing buffers alongside the exact bit count each one wrote.
func (d *Driver) CompressMulti(ctx context.Context, reg *codec.Registry, p params.Params, f field.Field, bd chunk.BlocksDescriptor) ([][]byte, []uint64, error) {
	n := len(bd.Chunks)
	buffers := make([][]byte, n)
	bits := make([]uint64, n)

	err := d.runChunks(ctx, n, func(i int) error {
		c := bd.Chunks[i]
		u := ChunkUpperBound(p, f.Kind(), c.Rank, c.Blocks())
		buf := make([]byte, u)
		s := bitstream.Open(buf)
		if _, err := codec.Walk(reg, d.policy, p, f, c, s, true); err != nil {
			return err
		}
		if _, err := s.Flush(); err != nil {
			return err
		}
		buffers[i] = buf
		bits[i] = uint64(s.TellW())
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return buffers, bits, nil
}

// CompressSingle compresses every chunk of bd into its own region of a
// single shared upper-bound buffer, then serially concatenates each
// chunk's exact payload, in chunk-index order, into dst starting at
// dst's current write cursor. It returns the begs table (length
// len(bd.Chunks)+1, begs[0] always 0) with offsets relative to dst's
// write cursor at entry, not to dst's absolute position.
func (d *Driver) CompressSingle(ctx context.Context, reg *codec.Registry, p params.Params, f field.Field, bd chunk.BlocksDescriptor, dst *bitstream.Stream) ([]uint64, error) {
	regions, total := layout(p, f, bd)

	scratchBB := pool.GetChunkBuffer()
	defer pool.PutChunkBuffer(scratchBB)
	scratchBB.ExtendOrGrow(total)
	scratch := scratchBB.Bytes()

	bits, freeBits := pool.GetIntSlice(len(bd.Chunks))
	defer freeBits()
	err := d.runChunks(ctx, len(bd.Chunks), func(i int) error {
		c := bd.Chunks[i]
		r := regions[i]
		s := bitstream.Open(scratch[r.offset : r.offset+r.bound])
		if _, err := codec.Walk(reg, d.policy, p, f, c, s, true); err != nil {
			return err
		}
		if _, err := s.Flush(); err != nil {
			return err
		}
		bits[i] = s.TellW()
		return nil
	})
	if err != nil {
		return nil, err
	}

	begs := make([]uint64, len(bd.Chunks)+1)
	start := dst.TellW()
	for i, r := range regions {
		src := bitstream.OpenReader(scratch[r.offset : r.offset+r.bound])
		if err := bitstream.Copy(dst, src, bits[i]); err != nil {
			return nil, err
		}
		begs[i+1] = uint64(dst.TellW() - start)
	}

	return begs, nil
}

// DecompressMulti decodes each chunk from its own sub-stream buffer (as
// produced by CompressMulti) back into f.
func (d *Driver) DecompressMulti(ctx context.Context, reg *codec.Registry, p params.Params, f field.Field, bd chunk.BlocksDescriptor, buffers [][]byte, bits []uint64) error {
	if len(buffers) != len(bd.Chunks) || len(bits) != len(bd.Chunks) {
		return errs.ErrBadHeader
	}
	return d.runChunks(ctx, len(bd.Chunks), func(i int) error {
		s := bitstream.OpenReader(buffers[i])
		_, err := codec.Walk(reg, d.policy, p, f, bd.Chunks[i], s, false)
		return err
	})
}

// DecompressSingle decodes each chunk from a shared payload buffer using
// the begs bit-offset table: chunk i occupies
// [begs[i], begs[i+1]) bits of payload, measured from payload's first bit.
// When the table was recorded with absolute offsets (begs[0] is the header
// length rather than 0), the caller passes the whole stream as payload and
// the same arithmetic holds, since every begs entry is word-aligned.
func (d *Driver) DecompressSingle(ctx context.Context, reg *codec.Registry, p params.Params, f field.Field, bd chunk.BlocksDescriptor, payload []byte, begs []uint64) error {
	if len(begs) != len(bd.Chunks)+1 {
		return errs.ErrBadHeader
	}
	return d.runChunks(ctx, len(bd.Chunks), func(i int) error {
		begByte := begs[i] / 8
		endByte := (begs[i+1] + 7) / 8

		s := bitstream.OpenReader(payload[begByte:endByte])
		_, err := codec.Walk(reg, d.policy, p, f, bd.Chunks[i], s, false)
		return err
	})
}
