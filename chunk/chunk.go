// Package chunk implements the tiling planner: it decomposes a field's
// block lattice into a grid of half-open, block-aligned windows using the
// BestCache or MakeEqual strategies, the unit of work the parallel driver
// (package driver) hands to one goroutine and one entry of the begs
// bit-offset table.
package chunk

import (
	"math"
	"sort"

	"github.com/SEP-software/zfp-par/errs"
)

// Method selects the tiling strategy used by Plan.
type Method uint8

const (
	// BestCache greedily fills axes in storage order, maximizing the chunk
	// footprint along the fastest-varying axis first.
	BestCache Method = iota + 1
	// MakeEqual distributes chunks to keep the per-chunk block count as
	// close to equal across axes as possible.
	MakeEqual
)

// String returns a human-readable method name.
func (m Method) String() string {
	switch m {
	case BestCache:
		return "best-cache"
	case MakeEqual:
		return "make-equal"
	default:
		return "unknown"
	}
}

// Valid reports whether m is a recognized tiling method.
func (m Method) Valid() bool {
	return m == BestCache || m == MakeEqual
}

// Window is a half-open, block-aligned element range along one axis:
// 0 <= Beg <= End <= extent, Beg and End are multiples of 4 except that the
// last window's End equals the axis extent exactly.
type Window struct {
	Beg, End int
}

// Blocks returns the number of 4-wide blocks the window spans.
func (w Window) Blocks() int {
	return (w.End - w.Beg + 3) / 4
}

// Chunk is a rank-dimensional half-open window, one entry per active axis.
type Chunk struct {
	Rank int
	Axes [4]Window
}

// Blocks returns the total number of blocks the chunk covers, the product
// of each active axis's block count.
func (c Chunk) Blocks() int {
	n := 1
	for i := 0; i < c.Rank; i++ {
		n *= c.Axes[i].Blocks()
	}
	return n
}

// BlocksDescriptor is the output of Plan: the per-axis chunk counts, the
// chunks themselves in storage order (axis 0 fastest), and a slot for the
// begs bit-offset table. Plan and PlanFromCounts leave Begs nil, and the
// driver does not fill it in: Driver.CompressSingle returns the begs table
// to its caller instead.
type BlocksDescriptor struct {
	Counts [4]int
	Chunks []Chunk
	Begs   []uint64
}

// NBeg returns the number of chunks, the product of Counts over the active
// axes.
func (d BlocksDescriptor) NBeg() int {
	return len(d.Chunks)
}

// Plan decomposes a rank-dimensional field of the given extents into a grid
// of chunks, targeting approximately targetBlocks blocks per chunk. If the
// field's total block count does not exceed targetBlocks, Plan emits a
// single chunk covering the whole array.
func Plan(extents [4]int, rank int, targetBlocks int, method Method) (BlocksDescriptor, error) {
	if rank < 1 || rank > 4 {
		return BlocksDescriptor{}, errs.ErrBadRank
	}
	if !method.Valid() {
		return BlocksDescriptor{}, errs.ErrBadMethod
	}

	var nblocks [4]int
	ntot := 1
	for i := 0; i < rank; i++ {
		nblocks[i] = (extents[i] + 3) / 4
		ntot *= nblocks[i]
	}

	var chunkSize [4]int
	for i := range chunkSize {
		chunkSize[i] = 1
	}

	if ntot <= targetBlocks {
		// Single chunk: chunkSize equals nblocks so every axis collapses to
		// one chunk covering the whole array.
		for i := 0; i < rank; i++ {
			chunkSize[i] = nblocks[i]
		}
	} else {
		switch method {
		case BestCache:
			chunkSize = bestCache(nblocks, rank, targetBlocks)
		case MakeEqual:
			chunkSize = makeEqual(nblocks, rank, targetBlocks)
		}
	}

	var counts [4]int
	for i := range counts {
		counts[i] = 1
	}
	for i := 0; i < rank; i++ {
		cs := chunkSize[i]
		if cs < 1 {
			cs = 1
		}
		counts[i] = (nblocks[i] + cs - 1) / cs
	}

	var windows [4][]Window
	for i := 0; i < rank; i++ {
		windows[i] = breakAxis(extents[i], counts[i])
	}
	for i := rank; i < 4; i++ {
		windows[i] = []Window{{Beg: 0, End: 0}}
	}

	chunks := make([]Chunk, 0, counts[0]*counts[1]*counts[2]*counts[3])
	for i3 := 0; i3 < counts[3]; i3++ {
		for i2 := 0; i2 < counts[2]; i2++ {
			for i1 := 0; i1 < counts[1]; i1++ {
				for i0 := 0; i0 < counts[0]; i0++ {
					c := Chunk{Rank: rank}
					c.Axes[0] = windows[0][i0]
					if rank > 1 {
						c.Axes[1] = windows[1][i1]
					}
					if rank > 2 {
						c.Axes[2] = windows[2][i2]
					}
					if rank > 3 {
						c.Axes[3] = windows[3][i3]
					}
					chunks = append(chunks, c)
				}
			}
		}
	}

	return BlocksDescriptor{Counts: counts, Chunks: chunks}, nil
}

// PlanFromCounts rebuilds the BlocksDescriptor windows for a rank-dimensional
// field given only its extents and a previously recorded per-axis chunk
// count (header.Chunked's Counts field). breakAxis's split is a pure
// function of (extent, count), so a decoder can reconstruct the exact same
// chunk windows an encoder's Plan produced without knowing, or needing to
// record, the tiling method or target block count that chose those counts.
func PlanFromCounts(extents [4]int, rank int, counts [4]int) (BlocksDescriptor, error) {
	if rank < 1 || rank > 4 {
		return BlocksDescriptor{}, errs.ErrBadRank
	}

	var windows [4][]Window
	for i := 0; i < rank; i++ {
		windows[i] = breakAxis(extents[i], counts[i])
	}
	for i := rank; i < 4; i++ {
		windows[i] = []Window{{Beg: 0, End: 0}}
	}

	var fullCounts [4]int
	for i := range fullCounts {
		fullCounts[i] = 1
	}
	for i := 0; i < rank; i++ {
		fullCounts[i] = counts[i]
		if fullCounts[i] < 1 {
			fullCounts[i] = 1
		}
	}

	chunks := make([]Chunk, 0, fullCounts[0]*fullCounts[1]*fullCounts[2]*fullCounts[3])
	for i3 := 0; i3 < fullCounts[3]; i3++ {
		for i2 := 0; i2 < fullCounts[2]; i2++ {
			for i1 := 0; i1 < fullCounts[1]; i1++ {
				for i0 := 0; i0 < fullCounts[0]; i0++ {
					c := Chunk{Rank: rank}
					c.Axes[0] = windows[0][i0]
					if rank > 1 {
						c.Axes[1] = windows[1][i1]
					}
					if rank > 2 {
						c.Axes[2] = windows[2][i2]
					}
					if rank > 3 {
						c.Axes[3] = windows[3][i3]
					}
					chunks = append(chunks, c)
				}
			}
		}
	}

	return BlocksDescriptor{Counts: fullCounts, Chunks: chunks}, nil
}

// bestCache implements the greedy, storage-order-first strategy:
// walk axes 0..rank-1 accumulating a running chunk footprint
// A, taking the whole axis while A*n_i stays within target, then clamping
// the first axis that would overflow it and leaving the rest at 1.
func bestCache(nblocks [4]int, rank, target int) [4]int {
	chunkSize := [4]int{1, 1, 1, 1}
	acc := 1
	for i := 0; i < rank; i++ {
		if acc*nblocks[i] <= target {
			chunkSize[i] = nblocks[i]
			acc *= nblocks[i]
			continue
		}
		chunkSize[i] = target / acc
		if chunkSize[i] < 1 {
			chunkSize[i] = 1
		}
		break
	}
	return chunkSize
}

// makeEqual implements the geometric-mean balancing strategy:
// process axes from smallest block count to largest, taking
// the whole axis while a (rank-i)-th root of the remaining budget still
// covers it, then filling the rest by repeated geometric-mean division.
func makeEqual(nblocks [4]int, rank, target int) [4]int {
	chunkSize := [4]int{1, 1, 1, 1}

	order := make([]int, rank)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return nblocks[order[a]] < nblocks[order[b]]
	})

	remaining := float64(target)
	i := 0
	for ; i < rank; i++ {
		axis := order[i]
		root := math.Pow(remaining, 1.0/float64(rank-i))
		if root <= float64(nblocks[axis]) {
			break
		}
		chunkSize[axis] = nblocks[axis]
		remaining /= float64(nblocks[axis])
	}
	for j := i; j < rank; j++ {
		axis := order[j]
		size := int(math.Pow(remaining, 1.0/float64(rank-j)))
		if size < 1 {
			size = 1
		}
		chunkSize[axis] = size
		remaining /= float64(size)
	}

	return chunkSize
}

// breakAxis splits an axis of n elements into nparts half-open,
// block-aligned windows as evenly as possible: window boundaries are
// multiples of 4 except the last window's End, which equals n exactly.
func breakAxis(n, nparts int) []Window {
	if nparts < 1 {
		nparts = 1
	}
	nblocks := (n + 3) / 4
	windows := make([]Window, nparts)

	done := 0
	left := nblocks
	for i := 0; i < nparts; i++ {
		part := left / (nparts - i)
		windows[i].Beg = done * 4
		windows[i].End = part*4 + windows[i].Beg
		done += part
		left -= part
	}
	windows[nparts-1].End = n

	return windows
}
