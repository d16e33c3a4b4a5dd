package transport

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdCodec compresses a whole chunked stream with Zstandard. It is suited
// to archival of already-compressed fields, where CPU cost matters less
// than the final byte count.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

// NewZstdCodec returns a ZstdCodec with default encoder/decoder settings.
func NewZstdCodec() ZstdCodec { return ZstdCodec{} }

// zstdDecoderPool and zstdEncoderPool reuse zstd's encoder/decoder state
// across calls; per klauspost/compress/zstd's own documentation, both types
// are designed to be kept warm rather than recreated per call.
var (
	zstdDecoderPool = sync.Pool{
		New: func() any {
			d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			if err != nil {
				panic(fmt.Sprintf("transport: failed to create zstd decoder: %v", err))
			}
			return d
		},
	}
	zstdEncoderPool = sync.Pool{
		New: func() any {
			e, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			if err != nil {
				panic(fmt.Sprintf("transport: failed to create zstd encoder: %v", err))
			}
			return e
		},
	}
)

// Compress compresses data with Zstandard.
func (ZstdCodec) Compress(data []byte) ([]byte, error) {
	enc := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(enc)

	return enc.EncodeAll(data, nil), nil
}

// Decompress reverses Compress.
func (ZstdCodec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dec := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(dec)

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: zstd decompress: %w", err)
	}
	return out, nil
}
