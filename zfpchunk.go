// Package zfpchunk implements the public pipeline: the top-level
// compress/decompress entry points that compose the tiling planner (package
// chunk), the parallel chunk driver (package driver), the block codec
// dispatch (package codec) and the chunked header codec (package header)
// into a single self-describing compressed stream.
//
// Compress/Decompress produce and consume a single concatenated stream, the
// shape most callers want. CompressMulti/DecompressMulti expose the
// underlying per-chunk sub-stream set directly for callers that need random
// chunk access without decoding the whole field.
package zfpchunk

import (
	"context"
	"fmt"
	"runtime"

	"github.com/SEP-software/zfp-par/bitstream"
	"github.com/SEP-software/zfp-par/chunk"
	"github.com/SEP-software/zfp-par/codec"
	"github.com/SEP-software/zfp-par/driver"
	"github.com/SEP-software/zfp-par/errs"
	"github.com/SEP-software/zfp-par/exec"
	"github.com/SEP-software/zfp-par/field"
	"github.com/SEP-software/zfp-par/header"
	"github.com/SEP-software/zfp-par/internal/options"
	"github.com/SEP-software/zfp-par/internal/pool"
	"github.com/SEP-software/zfp-par/params"
	"github.com/SEP-software/zfp-par/refcodec"
	"github.com/SEP-software/zfp-par/scalar"
	"github.com/SEP-software/zfp-par/transport"
)

// Config holds the driver's execution policy, the tiling planner's
// strategy, and the ambient transport/checksum choices a Compress/
// Decompress call uses. Build one with NewConfig; the zero Config is not
// valid.
type Config struct {
	Policy          exec.Policy
	Workers         int
	Method          chunk.Method
	TargetBlocks    int
	Transport       transport.Kind
	Checksum        bool
	BegsAfterHeader bool
}

// Option configures a Config. The execution policy and every other driver
// knob is an explicit value built here, never global or stream-carried
// state.
type Option = options.Option[*Config]

// WithPolicy sets the chunk driver's execution policy. Default exec.Parallel.
func WithPolicy(p exec.Policy) Option {
	return options.NoError[*Config](func(c *Config) { c.Policy = p })
}

// WithWorkers caps the worker pool size used under exec.Parallel. Default
// runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return options.NoError[*Config](func(c *Config) { c.Workers = n })
}

// WithMethod selects the tiling strategy. Default chunk.BestCache.
func WithMethod(m chunk.Method) Option {
	return options.NoError[*Config](func(c *Config) { c.Method = m })
}

// WithTargetBlocks sets the planner's target block count per chunk. Default
// 4096.
func WithTargetBlocks(n int) Option {
	return options.NoError[*Config](func(c *Config) { c.TargetBlocks = n })
}

// WithTransportCodec selects an optional whole-stream transport compression
// pass applied after the chunked pipeline assembles its bytes (package
// transport). Default transport.None. Decompress must be called with the
// same transport kind the stream was compressed with; the chunked header
// records no transport marker of its own.
func WithTransportCodec(k transport.Kind) Option {
	return options.NoError[*Config](func(c *Config) { c.Transport = k })
}

// WithChecksum enables the chunked header's optional xxhash64 trailer.
func WithChecksum(enabled bool) Option {
	return options.NoError[*Config](func(c *Config) { c.Checksum = enabled })
}

// WithBegsAfterHeader records the begs table as absolute bit offsets from
// the start of the stream instead of offsets relative to the end of the
// header, so begs[0] equals the header's bit length rather than 0. Chunk i
// can then be located directly from begs[i] without re-deriving the header
// size. Decompress accepts either form; it tells them apart by begs[0].
func WithBegsAfterHeader(enabled bool) Option {
	return options.NoError[*Config](func(c *Config) { c.BegsAfterHeader = enabled })
}

// NewConfig returns the default Config with opts applied.
func NewConfig(opts ...Option) (Config, error) {
	cfg := Config{
		Policy:       exec.Parallel,
		Workers:      runtime.GOMAXPROCS(0),
		Method:       chunk.BestCache,
		TargetBlocks: 4096,
		Transport:    transport.None,
		Checksum:     false,
	}
	if err := options.Apply(&cfg, opts...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) newDriver() *driver.Driver {
	return driver.New(driver.WithPolicy(c.Policy), driver.WithWorkers(c.Workers))
}

// DefaultRegistry returns a codec.Registry pre-populated with refcodec
// (package refcodec), the reference BlockCodec, for every (policy, strided,
// rank, scalar) combination the dispatch layer can request. A caller with a
// real ZFP binding builds its own Registry and passes it to the
// *WithRegistry variants instead.
func DefaultRegistry() *codec.Registry {
	reg := codec.NewRegistry()
	for rank := 1; rank <= 4; rank++ {
		for _, kind := range []scalar.Kind{scalar.I32, scalar.I64, scalar.F32, scalar.F64} {
			rc := refcodec.New(rank, kind)
			for _, policy := range []exec.Policy{exec.Serial, exec.Parallel} {
				for _, strided := range []bool{false, true} {
					reg.Register(codec.Key{Policy: policy, Strided: strided, Rank: rank, Scalar: kind}, rc)
				}
			}
		}
	}
	return reg
}

func extentsOf(f field.Field) [4]int {
	var e [4]int
	for i := 0; i < 4; i++ {
		e[i] = f.Extent(i)
	}
	return e
}

// Compress encodes f under the given compression parameters into a single
// self-describing byte stream: a chunked header (package header) followed
// by every chunk's compressed payload concatenated in chunk-index order.
// It uses DefaultRegistry(); see CompressWithRegistry to supply a different
// block codec.
func Compress(ctx context.Context, cfg Config, p params.Params, f field.Field) ([]byte, error) {
	return CompressWithRegistry(ctx, cfg, p, f, DefaultRegistry())
}

// CompressWithRegistry is Compress with an explicit block codec Registry.
func CompressWithRegistry(ctx context.Context, cfg Config, p params.Params, f field.Field, reg *codec.Registry) ([]byte, error) {
	if !f.Kind().Valid() {
		return nil, errs.ErrBadScalar
	}
	if f.Rank() < 1 || f.Rank() > 4 {
		return nil, errs.ErrBadRank
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	bd, err := chunk.Plan(extentsOf(f), f.Rank(), cfg.TargetBlocks, cfg.Method)
	if err != nil {
		return nil, err
	}

	headerBits := header.ChunkedSize(bd.NBeg(), cfg.Checksum)
	payloadBound := driver.PayloadBound(p, f, bd)
	total := headerBits/8 + payloadBound

	bb := pool.GetStreamBuffer()
	defer pool.PutStreamBuffer(bb)
	bb.ExtendOrGrow(total)

	s := bitstream.Open(bb.Bytes())
	if err := s.SeekW(headerBits); err != nil {
		return nil, err
	}

	begs, err := cfg.newDriver().CompressSingle(ctx, reg, p, f, bd, s)
	if err != nil {
		return nil, err
	}
	payloadBits := begs[len(begs)-1]
	if cfg.BegsAfterHeader {
		for i := range begs {
			begs[i] += uint64(headerBits)
		}
	}

	if err := s.SeekW(0); err != nil {
		return nil, err
	}
	h := header.Chunked{
		Scalar:   f.Kind(),
		Extents:  extentsOf(f),
		Params:   p,
		Counts:   bd.Counts,
		Begs:     begs,
		Checksum: cfg.Checksum,
	}
	if err := header.WriteChunked(s, h); err != nil {
		return nil, err
	}

	finalBits := headerBits + int(payloadBits)
	out := make([]byte, finalBits/8)
	copy(out, bb.Bytes())

	if cfg.Transport == transport.None {
		return out, nil
	}
	tc, err := transport.Get(cfg.Transport)
	if err != nil {
		return nil, err
	}
	return tc.Compress(out)
}

// Decompress reverses Compress: it reads data's chunked header, rebuilds the
// same chunk windows the encoder planned (chunk.PlanFromCounts), and
// dispatches decode across chunks into f, which must describe an array of
// the same scalar kind, rank and extents the stream was compressed with.
// cfg.Transport must match the kind Compress was called with. It uses
// DefaultRegistry(); see DecompressWithRegistry to supply a different block
// codec.
func Decompress(ctx context.Context, cfg Config, data []byte, f field.Field) error {
	return DecompressWithRegistry(ctx, cfg, data, f, DefaultRegistry())
}

// DecompressWithRegistry is Decompress with an explicit block codec Registry.
func DecompressWithRegistry(ctx context.Context, cfg Config, data []byte, f field.Field, reg *codec.Registry) error {
	if cfg.Transport != transport.None {
		tc, err := transport.Get(cfg.Transport)
		if err != nil {
			return err
		}
		raw, err := tc.Decompress(data)
		if err != nil {
			return err
		}
		data = raw
	}

	s := bitstream.OpenReader(data)
	h, err := header.ReadChunked(s, cfg.Checksum)
	if err != nil {
		return err
	}
	if h.Scalar != f.Kind() {
		return errs.ErrBadScalar
	}
	if h.Extents != extentsOf(f) {
		return errs.ErrBadHeader
	}

	bd, err := chunk.PlanFromCounts(h.Extents, f.Rank(), h.Counts)
	if err != nil {
		return err
	}

	// An absolute begs table (begs[0] = header bits) addresses chunks from
	// the stream's first bit; a relative one (begs[0] = 0) from the first
	// payload bit past the header.
	payload := data
	if h.Begs[0] == 0 {
		payload = data[(s.TellR()+7)/8:]
	}

	return cfg.newDriver().DecompressSingle(ctx, reg, h.Params, f, bd, payload, h.Begs)
}

// Verify reads data's chunked header and reports whether its checksum
// trailer (if present) matches the header fields and begs table it covers,
// without dispatching any block decode. The payload is not checked.
func Verify(data []byte, checksum bool) error {
	s := bitstream.OpenReader(data)
	_, err := header.ReadChunked(s, checksum)
	return err
}

// CompressMulti compresses f into one independent sub-stream buffer per
// chunk, for callers that want to address chunks by index without
// concatenating them into one stream. It
// returns the per-chunk buffers, each chunk's exact written bit length, and
// the BlocksDescriptor describing chunk layout; a caller passes all three to
// DecompressMulti to reconstruct the field.
func CompressMulti(ctx context.Context, cfg Config, p params.Params, f field.Field) ([][]byte, []uint64, chunk.BlocksDescriptor, error) {
	return CompressMultiWithRegistry(ctx, cfg, p, f, DefaultRegistry())
}

// CompressMultiWithRegistry is CompressMulti with an explicit block codec
// Registry.
func CompressMultiWithRegistry(ctx context.Context, cfg Config, p params.Params, f field.Field, reg *codec.Registry) ([][]byte, []uint64, chunk.BlocksDescriptor, error) {
	if !f.Kind().Valid() {
		return nil, nil, chunk.BlocksDescriptor{}, errs.ErrBadScalar
	}
	if err := p.Validate(); err != nil {
		return nil, nil, chunk.BlocksDescriptor{}, err
	}

	bd, err := chunk.Plan(extentsOf(f), f.Rank(), cfg.TargetBlocks, cfg.Method)
	if err != nil {
		return nil, nil, chunk.BlocksDescriptor{}, err
	}

	buffers, bits, err := cfg.newDriver().CompressMulti(ctx, reg, p, f, bd)
	if err != nil {
		return nil, nil, chunk.BlocksDescriptor{}, err
	}
	return buffers, bits, bd, nil
}

// DecompressMulti reverses CompressMulti.
func DecompressMulti(ctx context.Context, cfg Config, p params.Params, f field.Field, buffers [][]byte, bits []uint64, bd chunk.BlocksDescriptor) error {
	return DecompressMultiWithRegistry(ctx, cfg, p, f, buffers, bits, bd, DefaultRegistry())
}

// DecompressMultiWithRegistry is DecompressMulti with an explicit block
// codec Registry.
func DecompressMultiWithRegistry(ctx context.Context, cfg Config, p params.Params, f field.Field, buffers [][]byte, bits []uint64, bd chunk.BlocksDescriptor, reg *codec.Registry) error {
	if len(buffers) != bd.NBeg() {
		return fmt.Errorf("zfpchunk: %w: got %d sub-streams, want %d", errs.ErrBadHeader, len(buffers), bd.NBeg())
	}
	return cfg.newDriver().DecompressMulti(ctx, reg, p, f, bd, buffers, bits)
}
