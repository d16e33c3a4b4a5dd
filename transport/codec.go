package transport

import "fmt"

// Kind identifies a whole-stream transport compression algorithm.
type Kind uint8

const (
	// None applies no transport compression.
	None Kind = iota + 1
	// Zstd applies Zstandard compression.
	Zstd
	// S2 applies S2 (a Snappy-compatible, faster-decompressing codec)
	// compression.
	S2
	// LZ4 applies LZ4 compression.
	LZ4
)

// String returns a human-readable name for the transport kind.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case S2:
		return "s2"
	case LZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a recognized transport kind.
func (k Kind) Valid() bool {
	return k >= None && k <= LZ4
}

// Compressor compresses a fully assembled chunked-stream byte slice.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses Compressor.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines Compressor and Decompressor.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[Kind]Codec{
	None: NewNoOpCodec(),
	Zstd: NewZstdCodec(),
	S2:   NewS2Codec(),
	LZ4:  NewLZ4Codec(),
}

// Get retrieves the built-in Codec for the given Kind.
func Get(kind Kind) (Codec, error) {
	c, ok := builtinCodecs[kind]
	if !ok {
		return nil, fmt.Errorf("transport: unsupported kind %s", kind)
	}
	return c, nil
}
