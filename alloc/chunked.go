// Package alloc implements a chunked, append-only allocator that also
// supports deferred out-of-order insertion, resolved in one pass by
// Finalize. It is a direct generic port of original_source's
// ChunkedAllocator<Type>, used by the octree builder to grow the packed
// descriptor and far-pointer arrays without repeated large reallocations
// while children are still being visited out of final order.
package alloc

import (
	"sort"

	"github.com/tunabrain/sparse-voxel-octrees/svoerr"
)

// chunkSize matches original_source/src/ChunkedAllocator.hpp's ChunkSize.
const chunkSize = 4096

// insertionPoint records a value that must land at a specific final index,
// mirroring the C++ InsertionPoint{idx, data} pair.
type insertionPoint[T any] struct {
	idx  int
	data T
}

// Chunked is a generic append-only store of T with deferred insertion.
// The zero value is ready to use.
type Chunked[T any] struct {
	chunks     [][]T
	size       int
	insertions []insertionPoint[T]
}

// Len reports the number of appended elements, not counting pending
// insertions.
func (c *Chunked[T]) Len() int { return c.size }

// PushBack appends val and returns its index within the pre-Finalize
// sequence.
func (c *Chunked[T]) PushBack(val T) int {
	chunkIdx := c.size / chunkSize
	for chunkIdx >= len(c.chunks) {
		c.chunks = append(c.chunks, make([]T, chunkSize))
	}
	c.chunks[chunkIdx][c.size%chunkSize] = val
	idx := c.size
	c.size++
	return idx
}

// At returns the element at idx among the elements pushed so far (pending
// insertions are not visible until Finalize).
func (c *Chunked[T]) At(idx int) T {
	return c.chunks[idx/chunkSize][idx%chunkSize]
}

// Set overwrites the element already pushed at idx.
func (c *Chunked[T]) Set(idx int, val T) {
	c.chunks[idx/chunkSize][idx%chunkSize] = val
}

// Insert defers insertion of val before the element that was pushed at idx
// (after every pushed element when idx == Len()): after Finalize, every
// pushed element at or after idx has shifted right by one per deferred
// insertion, and insertions at the same idx keep their call order. idx is
// measured against the pre-insertion sequence, so idx > Len() is an
// implementation error and returns svoerr.InvalidIndex.
func (c *Chunked[T]) Insert(idx int, val T) error {
	if idx < 0 || idx > c.size {
		return svoerr.NewInvalidIndex(idx, c.size)
	}
	c.insertions = append(c.insertions, insertionPoint[T]{idx: idx, data: val})
	return nil
}

// Finalize resolves every deferred Insert against the appended sequence and
// returns one contiguous slice in final order. It mirrors the C++
// finalize(): a stable sort of the pending insertions by target index,
// followed by a single streaming merge copy.
func (c *Chunked[T]) Finalize() []T {
	if len(c.insertions) == 0 {
		out := make([]T, c.size)
		for i := 0; i < c.size; i++ {
			out[i] = c.At(i)
		}
		return out
	}

	sort.SliceStable(c.insertions, func(i, j int) bool {
		return c.insertions[i].idx < c.insertions[j].idx
	})

	total := c.size + len(c.insertions)
	out := make([]T, total)

	srcIdx := 0
	outIdx := 0
	for _, ins := range c.insertions {
		for srcIdx < ins.idx {
			out[outIdx] = c.At(srcIdx)
			srcIdx++
			outIdx++
		}
		out[outIdx] = ins.data
		outIdx++
	}
	for srcIdx < c.size {
		out[outIdx] = c.At(srcIdx)
		srcIdx++
		outIdx++
	}
	return out
}

// PendingInsertionsInRange counts already-scheduled insertions whose target
// index falls strictly between lo and hi, letting a caller correct an
// offset it computed from pre-Finalize indices for far-pointer words it
// knows have already been decided in that span (see octree.Builder, which
// uses this to translate a sibling-block offset into physical post-Finalize
// distance).
func (c *Chunked[T]) PendingInsertionsInRange(lo, hi int) int {
	n := 0
	for _, ins := range c.insertions {
		if ins.idx > lo && ins.idx < hi {
			n++
		}
	}
	return n
}
