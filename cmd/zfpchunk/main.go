// Command zfpchunk compresses or decompresses a flat binary array file using
// the zfpchunk pipeline. It exists for manual testing against real files; it
// is not part of the codec's public API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"unsafe"

	"github.com/SEP-software/zfp-par/chunk"
	"github.com/SEP-software/zfp-par/exec"
	"github.com/SEP-software/zfp-par/field"
	"github.com/SEP-software/zfp-par/params"
	"github.com/SEP-software/zfp-par/scalar"
	"github.com/SEP-software/zfp-par/transport"

	zfpchunk "github.com/SEP-software/zfp-par"
)

func main() {
	mode := flag.String("mode", "compress", "compress or decompress")
	in := flag.String("in", "", "input file path")
	out := flag.String("out", "", "output file path")
	kindName := flag.String("kind", "f64", "scalar kind: i32, i64, f32, f64")
	nx := flag.Int("nx", 0, "extent along axis 0 (required)")
	ny := flag.Int("ny", 1, "extent along axis 1")
	nz := flag.Int("nz", 1, "extent along axis 2")
	nw := flag.Int("nw", 1, "extent along axis 3")
	rate := flag.Float64("rate", 0, "fixed-rate bits/value (mutually exclusive with -precision/-accuracy)")
	precision := flag.Int("precision", 0, "fixed-precision bits/coefficient")
	accuracy := flag.Float64("accuracy", 0, "fixed-accuracy absolute error tolerance")
	method := flag.String("method", "best-cache", "tiling method: best-cache or make-equal")
	policy := flag.String("policy", "parallel", "execution policy: serial or parallel")
	tport := flag.String("transport", "none", "transport codec: none, zstd, s2, lz4")
	flag.Parse()

	if *in == "" || *out == "" || *nx == 0 {
		flag.Usage()
		os.Exit(2)
	}

	kind, err := parseKind(*kindName)
	if err != nil {
		log.Fatal(err)
	}
	m, err := parseMethod(*method)
	if err != nil {
		log.Fatal(err)
	}
	pol, err := parsePolicy(*policy)
	if err != nil {
		log.Fatal(err)
	}
	tk, err := parseTransport(*tport)
	if err != nil {
		log.Fatal(err)
	}

	rank, extents := rankAndExtents(*nx, *ny, *nz, *nw)

	cfg, err := zfpchunk.NewConfig(
		zfpchunk.WithMethod(m),
		zfpchunk.WithPolicy(pol),
		zfpchunk.WithTransportCodec(tk),
	)
	if err != nil {
		log.Fatal(err)
	}

	switch *mode {
	case "compress":
		p := parseParams(rank, *rate, *precision, *accuracy)
		if err := runCompress(cfg, p, kind, rank, extents, *in, *out); err != nil {
			log.Fatal(err)
		}
	case "decompress":
		if err := runDecompress(cfg, kind, rank, extents, *in, *out); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("zfpchunk: unknown -mode %q, want compress or decompress", *mode)
	}
}

func parseKind(s string) (scalar.Kind, error) {
	switch s {
	case "i32":
		return scalar.I32, nil
	case "i64":
		return scalar.I64, nil
	case "f32":
		return scalar.F32, nil
	case "f64":
		return scalar.F64, nil
	default:
		return 0, fmt.Errorf("zfpchunk: unknown -kind %q, want i32, i64, f32 or f64", s)
	}
}

func parseMethod(s string) (chunk.Method, error) {
	switch s {
	case "best-cache":
		return chunk.BestCache, nil
	case "make-equal":
		return chunk.MakeEqual, nil
	default:
		return 0, fmt.Errorf("zfpchunk: unknown -method %q", s)
	}
}

func parsePolicy(s string) (exec.Policy, error) {
	switch s {
	case "serial":
		return exec.Serial, nil
	case "parallel":
		return exec.Parallel, nil
	default:
		return 0, fmt.Errorf("zfpchunk: unknown -policy %q", s)
	}
}

func parseTransport(s string) (transport.Kind, error) {
	switch s {
	case "none":
		return transport.None, nil
	case "zstd":
		return transport.Zstd, nil
	case "s2":
		return transport.S2, nil
	case "lz4":
		return transport.LZ4, nil
	default:
		return 0, fmt.Errorf("zfpchunk: unknown -transport %q", s)
	}
}

func parseParams(rank int, rate float64, precision int, accuracy float64) params.Params {
	switch {
	case precision > 0:
		return params.NewFixedPrecision(precision)
	case accuracy > 0:
		// Largest minexp, at most 0, whose error bound 2^minexp still fits
		// under the requested tolerance.
		minexp := 0
		for minexp > params.MinExp && pow2(minexp) > accuracy {
			minexp--
		}
		return params.NewFixedAccuracy(minexp)
	case rate > 0:
		return params.NewFixedRate(int(rate * float64(uint(1)<<uint(2*rank))))
	default:
		return params.NewReversible()
	}
}

func pow2(exp int) float64 {
	v := 1.0
	for i := 0; i < exp; i++ {
		v *= 2
	}
	for i := 0; i > exp; i-- {
		v /= 2
	}
	return v
}

func rankAndExtents(nx, ny, nz, nw int) (int, [4]int) {
	switch {
	case nw > 1:
		return 4, [4]int{nx, ny, nz, nw}
	case nz > 1:
		return 3, [4]int{nx, ny, nz, 1}
	case ny > 1:
		return 2, [4]int{nx, ny, 1, 1}
	default:
		return 1, [4]int{nx, 1, 1, 1}
	}
}

func newField(kind scalar.Kind, rank int, extents [4]int, ptr unsafe.Pointer) field.Field {
	switch rank {
	case 1:
		return field.New1D(kind, extents[0], 0).Bind(ptr)
	case 2:
		return field.New2D(kind, extents[0], extents[1], 0, 0).Bind(ptr)
	case 3:
		return field.New3D(kind, extents[0], extents[1], extents[2], 0, 0, 0).Bind(ptr)
	default:
		return field.New4D(kind, extents[0], extents[1], extents[2], extents[3], 0, 0, 0, 0).Bind(ptr)
	}
}

func runCompress(cfg zfpchunk.Config, p params.Params, kind scalar.Kind, rank int, extents [4]int, inPath, outPath string) error {
	raw, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}

	f := newField(kind, rank, extents, unsafe.Pointer(&raw[0]))
	compressed, err := zfpchunk.Compress(context.Background(), cfg, p, f)
	if err != nil {
		return err
	}

	fmt.Printf("compressed %d bytes -> %d bytes (%.2f:1)\n", len(raw), len(compressed), float64(len(raw))/float64(len(compressed)))
	return os.WriteFile(outPath, compressed, 0o644)
}

func runDecompress(cfg zfpchunk.Config, kind scalar.Kind, rank int, extents [4]int, inPath, outPath string) error {
	compressed, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}

	n := 1
	for i := 0; i < rank; i++ {
		n *= extents[i]
	}
	out := make([]byte, n*kind.Size())

	f := newField(kind, rank, extents, unsafe.Pointer(&out[0]))
	if err := zfpchunk.Decompress(context.Background(), cfg, compressed, f); err != nil {
		return err
	}

	return os.WriteFile(outPath, out, 0o644)
}
