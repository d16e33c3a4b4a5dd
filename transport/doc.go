// Package transport implements an optional whole-stream byte-compression
// pass: after the chunked pipeline (package zfpchunk) assembles a complete
// header-plus-payload byte slice, a transport.Codec may compress it once
// more as a final, orthogonal stage.
//
// This stage is additive, not a replacement for the codec's own entropy
// coding: the bytes a Codec compresses are exactly the bytes
// WriteChunked/CompressSingle already produced, so begs, chunk boundaries,
// and the round-trip guarantees all hold on the pre-transport form. A
// caller that wants random chunk access never reaches for a transport
// codec at all, since whole-stream compression defeats addressability.
//
// # Supported algorithms
//
//   - None: no compression, returns the input unchanged.
//   - Zstd: best compression ratio, moderate speed; suited to archival of
//     compressed fields.
//   - S2: balanced speed and ratio.
//   - LZ4: fastest decompression, moderate ratio.
package transport
