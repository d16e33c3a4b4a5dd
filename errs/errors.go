// Package errs defines the sentinel errors returned by the codec's public
// and internal APIs.
//
// Callers should compare against these with errors.Is rather than string
// matching; wrapped errors (via fmt.Errorf("...: %w", ...)) still satisfy
// errors.Is against the sentinels below.
package errs

import "errors"

var (
	// ErrBadScalar indicates an unrecognized scalar kind in a field.
	ErrBadScalar = errors.New("zfpchunk: bad scalar kind")

	// ErrBadRank indicates a field rank outside the supported 1..4 range.
	ErrBadRank = errors.New("zfpchunk: bad rank")

	// ErrMetadataTooLarge indicates an extent exceeds the classical
	// header's per-rank metadata bit budget.
	ErrMetadataTooLarge = errors.New("zfpchunk: metadata too large")

	// ErrBadMode indicates an illegal or out-of-range compression
	// parameter tuple.
	ErrBadMode = errors.New("zfpchunk: bad compression mode")

	// ErrBadHeader indicates a magic mismatch, version mismatch, or
	// otherwise corrupt stream header.
	ErrBadHeader = errors.New("zfpchunk: bad header")

	// ErrBadMethod indicates an unknown tiling strategy.
	ErrBadMethod = errors.New("zfpchunk: bad tiling method")

	// ErrUnsupportedConfiguration indicates the block codec dispatch
	// table has no entry for the requested (policy, rank, scalar).
	ErrUnsupportedConfiguration = errors.New("zfpchunk: unsupported configuration")

	// ErrBufferOverflow indicates a bit-stream write exceeded its
	// buffer's capacity.
	ErrBufferOverflow = errors.New("zfpchunk: buffer overflow")
)
