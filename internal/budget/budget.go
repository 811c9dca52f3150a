// Package budget divides the fixed cache and input buffer budget across workers.
package budget

// Total is the client-wide budget fixed at construction.
type Total struct {
	CacheBytes  int64
	BufferBytes int64
}

// Share is the budget handed to each worker.
type Share struct {
	CacheBytes  int64
	BufferBytes int64
}

// Split divides total evenly across the live workers plus the global worker.
//
// The global worker holds both a cache and an input buffer share, although
// it is only resized with its cache share. When no consumer of the budget
// exists the undivided total is returned.
//
// Parameters:
//   - total: Client-wide budget
//   - liveWorkers: Number of live regular workers
//   - hasGlobal: Whether a global worker shares the budget
//
// Returns:
//   - Share: Per-worker cache and input buffer bytes
func Split(total Total, liveWorkers int, hasGlobal bool) Share {
	sharers := liveWorkers
	if hasGlobal {
		sharers++
	}

	share := Share{CacheBytes: total.CacheBytes, BufferBytes: total.BufferBytes}
	if sharers > 0 {
		share.CacheBytes = total.CacheBytes / int64(sharers)
		share.BufferBytes = total.BufferBytes / int64(sharers)
	}

	return share
}
