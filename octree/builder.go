package octree

import (
	"context"
	"math/bits"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/tunabrain/sparse-voxel-octrees/alloc"
	"github.com/tunabrain/sparse-voxel-octrees/voxeldata"
)

// Builder recursively descends a virtual cube backed by a VoxelData
// occupancy oracle, emitting the packed descriptor stream via a chunked
// allocator, per spec.md §4.5. It is grounded on
// original_source/src/VoxelOctree.cpp:buildOctree, restructured so that a
// node's children occupy a contiguous sibling block immediately reserved
// before recursing into any one of them (matching the descriptor format's
// popcount-addressed child layout) instead of the original's ad-hoc delta
// bookkeeping; the chunked allocator's PendingInsertionsInRange plays the
// role the original's manual "delta" variable played.
type Builder struct {
	logger golog.Logger
	voxels *voxeldata.VoxelData
	desc   alloc.Chunked[uint32]
}

// NewBuilder constructs a Builder over the given occupancy oracle.
func NewBuilder(voxels *voxeldata.VoxelData, logger golog.Logger) *Builder {
	return &Builder{voxels: voxels, logger: logger}
}

// Build descends the full virtual cube of the given size (must be a power
// of two covering the voxel data's virtual volume) and returns the
// finalized octree centered at center.
func (b *Builder) Build(ctx context.Context, center r3.Vector, size int) (*Octree, error) {
	rootIdx := b.desc.PushBack(0)
	if err := b.buildNode(0, 0, 0, size, rootIdx, true); err != nil {
		return nil, err
	}

	descriptors := b.desc.Finalize()
	b.logger.Infow("octree built", "words", len(descriptors), "size", size)
	return &Octree{Center: center, Descriptor: descriptors}, nil
}

func childCoords(x, y, z, half, octant int) (int, int, int) {
	return x + half*(octant&1), y + half*((octant>>1)&1), z + half*((octant>>2)&1)
}

func (b *Builder) buildNode(x, y, z, size, descIdx int, isRoot bool) error {
	if err := b.voxels.PrepareDataAccess(x, y, z, size); err != nil {
		return err
	}

	half := size / 2
	var occupied [8]bool
	childMask := 0
	for i := 0; i < 8; i++ {
		cx, cy, cz := childCoords(x, y, z, half, i)
		if b.voxels.CubeContainsVoxelsDestructive(cx, cy, cz, half) {
			occupied[i] = true
			childMask |= 128 >> uint(i)
		}
	}

	n := bits.OnesCount8(uint8(childMask))
	childSlotBase := b.desc.Len()
	for k := 0; k < n; k++ {
		b.desc.PushBack(0)
	}

	isLeafLevel := half == 1
	leafMask := 0

	type pendingChild struct {
		slot, cx, cy, cz int
	}
	var pendings []pendingChild

	// Children are emitted in reverse octant order (7 down to 0) to match
	// the popcount-based sibling addressing raymarch.March performs against
	// the 128>>i bit layout (original_source/src/VoxelOctree.cpp:80).
	rank := 0
	for i := 7; i >= 0; i-- {
		if !occupied[i] {
			continue
		}
		cx, cy, cz := childCoords(x, y, z, half, i)
		slot := childSlotBase + rank
		rank++

		if isLeafLevel {
			b.desc.Set(slot, b.voxels.MaterialAt(cx, cy, cz))
		} else {
			leafMask |= 128 >> uint(i)
			pendings = append(pendings, pendingChild{slot, cx, cy, cz})
		}
	}

	for _, p := range pendings {
		if err := b.buildNode(p.cx, p.cy, p.cz, half, p.slot, false); err != nil {
			return err
		}
	}

	return b.writeDescriptor(descIdx, childSlotBase, childMask, leafMask, isRoot)
}

// writeDescriptor finalizes the node at descIdx once every child slot in
// [childSlotBase, childSlotBase+popcount(childMask)) has been written
// (either with a material word or, transitively, with a fully-resolved
// child descriptor). forceFar always emits a far-pointer word regardless of
// whether the offset would otherwise fit, used for the root per spec.md
// §4.5 ("the render path always expects a far-pointer word following the
// root").
func (b *Builder) writeDescriptor(descIdx, childSlotBase, childMask, leafMask int, forceFar bool) error {
	// Any far-pointer words already inserted strictly between descIdx and
	// childSlotBase (by earlier-processed siblings' subtrees) shift the
	// physical distance beyond the raw pre-Finalize index difference.
	delta := b.desc.PendingInsertionsInRange(descIdx, childSlotBase)
	offset := childSlotBase - descIdx + delta

	word := uint32(childMask)<<leafMaskBits | uint32(leafMask)
	if !forceFar && offset <= maxSmallOffset {
		word |= uint32(offset) << childOffsetShift
	} else {
		// The far word this Insert places at descIdx+1 itself shifts the
		// child block one slot further right than the raw offset accounts
		// for, so the far word must store offset+1.
		word |= farBit
		if err := b.desc.Insert(descIdx+1, uint32(offset+1)); err != nil {
			return err
		}
	}
	b.desc.Set(descIdx, word)
	return nil
}
