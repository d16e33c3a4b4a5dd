package transport

import "github.com/klauspost/compress/s2"

// S2Codec compresses a whole chunked stream with S2, trading some ratio for
// speed relative to Zstd.
type S2Codec struct{}

var _ Codec = S2Codec{}

// NewS2Codec returns an S2Codec.
func NewS2Codec() S2Codec { return S2Codec{} }

// Compress compresses data with S2.
func (S2Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return s2.Encode(nil, data), nil
}

// Decompress reverses Compress.
func (S2Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return s2.Decode(nil, data)
}
