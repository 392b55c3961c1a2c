// Package voxeldata implements the occupancy oracle: a memory-bounded cache
// block of the dense volume plus the two-tier hierarchical occupancy
// pyramid (top across cache blocks, low within one cache block) that lets
// the octree builder answer "does this cube contain any voxel?" in O(1).
// It is a redesign of original_source/src/VoxelData.{hpp,cpp}'s single-tier
// LUT onto the two explicit tiers spec.md's builder requires.
package voxeldata

import (
	"context"
	"math/bits"

	"github.com/edaniels/golog"

	"github.com/tunabrain/sparse-voxel-octrees/svoerr"
	"github.com/tunabrain/sparse-voxel-octrees/taskpool"
)

// BlockProducer supplies material data for a rectangular sub-block of the
// volume, and answers coarse emptiness queries used to seed the top
// pyramid. voxelize.BlockProcessor and a dense-volume-file reader both
// satisfy this interface.
type BlockProducer interface {
	// ProcessBlock fills dst (row-major, x fastest, length w*h*d) with the
	// material words of the sub-block at origin (x,y,z) sized w x h x d.
	ProcessBlock(dst []uint32, x, y, z, w, h, d int) error
	// IsBlockEmpty reports whether the cubic block at (x,y,z) sized
	// size^3 contains no occupied voxels at all.
	IsBlockEmpty(x, y, z, size int) bool
}

// VoxelData is the occupancy oracle and cache-block owner described in
// spec.md §4.3.
type VoxelData struct {
	logger   golog.Logger
	producer BlockProducer
	pool     *taskpool.Pool

	w, h, d    int // true volume dimensions
	vw, vh, vd int // virtual (power-of-two) dimensions
	maxBit     int // highBit = log2(max(vw,vh,vd))

	lowLevels        int
	topLevels        int
	maxCacheableSize int

	cache            []uint32
	bufX, bufY, bufZ int
	bufW, bufH, bufD int

	low *pyramid
	top *pyramid
}

// New selects the largest lowLevels that fits budgetBytes, builds the top
// pyramid once by probing the producer for block emptiness, and returns a
// ready VoxelData. It returns svoerr.OutOfBudget if even lowLevels=0 does
// not fit.
func New(ctx context.Context, producer BlockProducer, w, h, d int, budgetBytes uint64, pool *taskpool.Pool, logger golog.Logger) (*VoxelData, error) {
	vw, vh, vd := roundUpPow2(w), roundUpPow2(h), roundUpPow2(d)
	highBit := ceilLog2(maxInt(vw, maxInt(vh, vd)))

	lowLevels := -1
	var topLevels, maxCacheableSize int
	var smallestRequired uint64

	for candidate := highBit; candidate >= 0; candidate-- {
		mcs := 1 << uint(candidate)
		tl := highBit - candidate + 1
		total := pyramidBytes(tl) + pyramidBytes(candidate) + uint64(mcs)*uint64(mcs)*uint64(mcs)*4
		if candidate == 0 {
			smallestRequired = total
		}
		if total <= budgetBytes {
			lowLevels = candidate
			topLevels = tl
			maxCacheableSize = mcs
			break
		}
	}
	if lowLevels < 0 {
		return nil, svoerr.NewOutOfBudget(smallestRequired)
	}

	vd0 := &VoxelData{
		logger:           logger,
		producer:         producer,
		pool:             pool,
		w:                w,
		h:                h,
		d:                d,
		vw:               vw,
		vh:               vh,
		vd:               vd,
		maxBit:           highBit,
		lowLevels:        lowLevels,
		topLevels:        topLevels,
		maxCacheableSize: maxCacheableSize,
		cache:            make([]uint32, maxCacheableSize*maxCacheableSize*maxCacheableSize),
		low:              newPyramid(maxInt(lowLevels, 1)),
		top:              newPyramid(topLevels),
	}
	vd0.buildTopPyramid()

	logger.Infow("voxel data initialized",
		"lowLevels", lowLevels, "topLevels", topLevels, "maxCacheableSize", maxCacheableSize)
	return vd0, nil
}

func pyramidBytes(levels int) uint64 {
	var total uint64
	for l := 0; l < levels; l++ {
		dim := uint64(1) << uint(l)
		total += dim * dim * dim
	}
	return total
}

func roundUpPow2(v int) int {
	if v <= 1 {
		return 1
	}
	return 1 << uint(bits.Len(uint(v-1)))
}

func ceilLog2(v int) int {
	if v <= 1 {
		return 0
	}
	return bits.Len(uint(v - 1))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// MaxBit reports the exponent of the virtual (power-of-two) volume extent.
func (vd *VoxelData) MaxBit() int { return vd.maxBit }

// MaxCacheableSize reports the edge length of one cache block.
func (vd *VoxelData) MaxCacheableSize() int { return vd.maxCacheableSize }

func (vd *VoxelData) buildTopPyramid() {
	finest := vd.topLevels - 1
	mcs := vd.maxCacheableSize
	dim := 1 << uint(finest)
	for cz := 0; cz < dim; cz++ {
		for cy := 0; cy < dim; cy++ {
			for cx := 0; cx < dim; cx++ {
				empty := vd.producer.IsBlockEmpty(cx*mcs, cy*mcs, cz*mcs, mcs)
				vd.top.set(cx, cy, cz, finest, !empty)
			}
		}
	}
	vd.top.upsampleFrom(finest)
}

// PrepareDataAccess relocates the cache block to cover (x,y,z,size) if it
// does not already, invoking the producer and rebuilding the low pyramid.
// It is a no-op when the request is already fully resident or when size
// exceeds the cache block (queries at that scale are answered by the top
// pyramid alone).
func (vd *VoxelData) PrepareDataAccess(x, y, z, size int) error {
	if size > vd.maxCacheableSize {
		return nil
	}
	if vd.contains(x, y, z, size) {
		return nil
	}

	w := minInt(vd.maxCacheableSize, vd.w-x)
	h := minInt(vd.maxCacheableSize, vd.h-y)
	d := minInt(vd.maxCacheableSize, vd.d-z)
	if w <= 0 || h <= 0 || d <= 0 {
		vd.bufX, vd.bufY, vd.bufZ = x, y, z
		vd.bufW, vd.bufH, vd.bufD = 0, 0, 0
		vd.low.clear()
		return nil
	}

	for i := range vd.cache {
		vd.cache[i] = 0
	}
	if err := vd.producer.ProcessBlock(vd.cache, x, y, z, w, h, d); err != nil {
		return err
	}
	vd.bufX, vd.bufY, vd.bufZ = x, y, z
	vd.bufW, vd.bufH, vd.bufD = w, h, d
	vd.rebuildLowPyramid()
	return nil
}

func (vd *VoxelData) contains(x, y, z, size int) bool {
	return x >= vd.bufX && y >= vd.bufY && z >= vd.bufZ &&
		x+size <= vd.bufX+vd.bufW && y+size <= vd.bufY+vd.bufH && z+size <= vd.bufZ+vd.bufD
}

func (vd *VoxelData) rebuildLowPyramid() {
	vd.low.clear()
	if vd.lowLevels == 0 {
		return
	}
	finest := vd.lowLevels - 1
	mcs := vd.maxCacheableSize
	for z := 0; z < mcs; z++ {
		for y := 0; y < mcs; y++ {
			for x := 0; x < mcs; x++ {
				val := vd.cacheAt(x, y, z)
				if val != 0 {
					vd.low.or(x/2, y/2, z/2, finest, true)
				}
			}
		}
	}
	vd.low.upsampleFrom(finest)
}

func (vd *VoxelData) cacheAt(x, y, z int) uint32 {
	mcs := vd.maxCacheableSize
	return vd.cache[x+y*mcs+z*mcs*mcs]
}

// MaterialAt returns the material word at absolute coordinate (x,y,z),
// assuming PrepareDataAccess has already made it resident.
func (vd *VoxelData) MaterialAt(x, y, z int) uint32 {
	lx, ly, lz := x-vd.bufX, y-vd.bufY, z-vd.bufZ
	if lx < 0 || ly < 0 || lz < 0 || lx >= vd.bufW || ly >= vd.bufH || lz >= vd.bufD {
		return 0
	}
	return vd.cacheAt(lx, ly, lz)
}

// CubeContainsVoxels answers whether the cube (x,y,z,size) contains any
// non-zero voxel, per spec.md §4.3's query semantics.
func (vd *VoxelData) CubeContainsVoxels(x, y, z, size int) bool {
	return vd.query(x, y, z, size, false)
}

// CubeContainsVoxelsDestructive answers the same question but zeroes the
// low-pyramid cell it consults, so a second query of an already-descended
// shared boundary returns false. The top pyramid is never cleared.
func (vd *VoxelData) CubeContainsVoxelsDestructive(x, y, z, size int) bool {
	return vd.query(x, y, z, size, true)
}

func (vd *VoxelData) query(x, y, z, size int, destructive bool) bool {
	if x >= vd.w || y >= vd.h || z >= vd.d || x < 0 || y < 0 || z < 0 {
		return false
	}
	if size == 1 {
		return vd.MaterialAt(x, y, z) != 0
	}

	bit := ceilLog2(size)
	if bit < vd.lowLevels {
		level := vd.lowLevels - bit
		lx, ly, lz := (x-vd.bufX)>>uint(bit), (y-vd.bufY)>>uint(bit), (z-vd.bufZ)>>uint(bit)
		dim := 1 << uint(level)
		if lx < 0 || ly < 0 || lz < 0 || lx >= dim || ly >= dim || lz >= dim {
			return false
		}
		occupied := vd.low.get(lx, ly, lz, level)
		if destructive && occupied {
			vd.low.clearCell(lx, ly, lz, level)
		}
		return occupied
	}

	level := vd.maxBit - bit
	if level < 0 || level >= vd.topLevels {
		return false
	}
	tx, ty, tz := x>>uint(bit), y>>uint(bit), z>>uint(bit)
	return vd.top.get(tx, ty, tz, level)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
