// Package exec defines the execution policy axis of the parallel chunk
// driver. The policy is a strategy on the driver; it is also one field of
// the block codec dispatch key (codec.Key), but it is never passed to a
// codec implementation, which never knows how many chunks are in flight
// around it.
package exec

// Policy selects how the driver walks a field's chunks.
type Policy uint8

const (
	// Serial compresses/decompresses chunks one at a time on the calling
	// goroutine.
	Serial Policy = iota + 1
	// Parallel compresses/decompresses chunks concurrently across a
	// bounded worker pool.
	Parallel
)

// String returns a human-readable name for the execution policy.
func (p Policy) String() string {
	switch p {
	case Serial:
		return "serial"
	case Parallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// Valid reports whether p is a recognized execution policy.
func (p Policy) Valid() bool {
	return p == Serial || p == Parallel
}
