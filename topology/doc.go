// Package topology provides built-in implementations of the store layout a
// Streams client queries.
//
// The package includes:
//
//   - Static: Fixed set of local and global stores with their changelog topics
//
// Custom layouts can be implemented by satisfying the types.Topology interface.
package topology
