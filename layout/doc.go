// Package layout reconciles host array layout with the engine's vector layout.
//
// Host arrays are row-major: the last axis varies fastest. The engine stores
// arrays column-major and treats the first two axes of its dim as the
// matrix rows and columns. For rank 1 and 2 the shapes agree. For rank > 2
// the host's trailing two axes are the matrix; the engine shape is the host
// shape reversed with its first two entries swapped:
//
//	host [5, 3, 4]    -> engine [3, 4, 5]
//	host [2, 4, 3, 5] -> engine [3, 5, 4, 2]
//
// The same permutation, plus one per axis, converts a host index into an
// engine index (engine indexing is 1-based).
//
// # Views
//
// NewVector builds an engine vector that reads the host array's storage
// through its strides. No element is copied. The host array is frozen when
// the vector is built; writing to it afterwards fails, and engines must copy
// before modifying a vector. Mutation of published storage through any other
// path is undefined.
package layout
