package transport

// NoOpCodec returns its input unchanged. It is the default transport: the
// chunked codec's own entropy coding is already the primary compression
// stage, and many callers have no need for a second, whole-stream pass.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

// NewNoOpCodec returns a NoOpCodec.
func NewNoOpCodec() NoOpCodec { return NoOpCodec{} }

// Compress returns data unchanged.
func (NoOpCodec) Compress(data []byte) ([]byte, error) { return data, nil }

// Decompress returns data unchanged.
func (NoOpCodec) Decompress(data []byte) ([]byte, error) { return data, nil }
