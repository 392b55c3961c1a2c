// Package voxelize implements the triangle-per-macrocell block processor:
// given a rectangular sub-block of the target volume, it rasterizes every
// overlapping triangle into a 32-bit material grid, culled by a
// precomputed CSR triangle index. This fuses geometry rasterization into
// the voxelizer role that original_source's PlyLoader never had on its own
// (see DESIGN.md).
package voxelize

import (
	"github.com/golang/geo/r3"

	"github.com/tunabrain/sparse-voxel-octrees/material"
	"github.com/tunabrain/sparse-voxel-octrees/mesh"
	"github.com/tunabrain/sparse-voxel-octrees/taskpool"
)

// BlockProcessor rasterizes a unit-cube-normalized mesh into a resolution³
// voxel grid on demand, culling triangles with a macrocell CSR index built
// once at construction time.
type BlockProcessor struct {
	tris       []mesh.Triangle
	resolution int
	pool       *taskpool.Pool

	partitioning int // cells per axis of the macrocell grid
	cellSize     float64
	origin       r3.Vector

	// CSR triangle index: blockOffsets[i..i+1] indexes into blockLists for
	// macrocell i = px + py*partitioning + pz*partitioning^2.
	blockOffsets []int32
	blockLists   []int32
}

// New builds a BlockProcessor over m (assumed already rescaled to the unit
// cube) at the given voxel resolution, indexing triangles into macrocells
// sized so the macrocell count is at least numWorkers, per spec.md §4.4.
func New(m mesh.Mesh, resolution int, numWorkers int, pool *taskpool.Pool) *BlockProcessor {
	bp := &BlockProcessor{
		tris:       m.Triangles,
		resolution: resolution,
		pool:       pool,
		origin:     r3.Vector{X: -1, Y: -1, Z: -1},
		cellSize:   2.0 / float64(resolution),
	}
	bp.partitioning = choosePartitioning(resolution, numWorkers)
	bp.buildIndex()
	return bp
}

func choosePartitioning(resolution, numWorkers int) int {
	p := 1
	for p*p*p < numWorkers && p < resolution {
		p *= 2
	}
	if p > resolution {
		p = resolution
	}
	return p
}

func (bp *BlockProcessor) macrocellSize() float64 {
	return 2.0 / float64(bp.partitioning)
}

func (bp *BlockProcessor) macrocellIndex(px, py, pz int) int {
	return px + py*bp.partitioning + pz*bp.partitioning*bp.partitioning
}

// buildIndex is the two-pass CSR construction: count triangles per
// macrocell, prefix-sum into blockOffsets, then fill blockLists.
func (bp *BlockProcessor) buildIndex() {
	numCells := bp.partitioning * bp.partitioning * bp.partitioning
	counts := make([]int32, numCells)
	mcs := bp.macrocellSize()

	cellsFor := func(tri mesh.Triangle) (lx, ux, ly, uy, lz, uz int) {
		lx = clampInt(int((tri.Min.X-bp.origin.X)/mcs), 0, bp.partitioning-1)
		ux = clampInt(int((tri.Max.X-bp.origin.X)/mcs), 0, bp.partitioning-1)
		ly = clampInt(int((tri.Min.Y-bp.origin.Y)/mcs), 0, bp.partitioning-1)
		uy = clampInt(int((tri.Max.Y-bp.origin.Y)/mcs), 0, bp.partitioning-1)
		lz = clampInt(int((tri.Min.Z-bp.origin.Z)/mcs), 0, bp.partitioning-1)
		uz = clampInt(int((tri.Max.Z-bp.origin.Z)/mcs), 0, bp.partitioning-1)
		return
	}

	for _, tri := range bp.tris {
		lx, ux, ly, uy, lz, uz := cellsFor(tri)
		for pz := lz; pz <= uz; pz++ {
			for py := ly; py <= uy; py++ {
				for px := lx; px <= ux; px++ {
					if bp.macrocellOverlaps(tri, px, py, pz) {
						counts[bp.macrocellIndex(px, py, pz)]++
					}
				}
			}
		}
	}

	offsets := make([]int32, numCells+1)
	for i := 0; i < numCells; i++ {
		offsets[i+1] = offsets[i] + counts[i]
	}
	lists := make([]int32, offsets[numCells])

	cursor := make([]int32, numCells)
	copy(cursor, offsets[:numCells])

	for triIdx, tri := range bp.tris {
		lx, ux, ly, uy, lz, uz := cellsFor(tri)
		for pz := lz; pz <= uz; pz++ {
			for py := ly; py <= uy; py++ {
				for px := lx; px <= ux; px++ {
					if bp.macrocellOverlaps(tri, px, py, pz) {
						cell := bp.macrocellIndex(px, py, pz)
						lists[cursor[cell]] = int32(triIdx)
						cursor[cell]++
					}
				}
			}
		}
	}

	bp.blockOffsets = offsets
	bp.blockLists = lists
}

func (bp *BlockProcessor) macrocellOverlaps(tri mesh.Triangle, px, py, pz int) bool {
	mcs := bp.macrocellSize()
	center := r3.Vector{
		X: bp.origin.X + (float64(px)+0.5)*mcs,
		Y: bp.origin.Y + (float64(py)+0.5)*mcs,
		Z: bp.origin.Z + (float64(pz)+0.5)*mcs,
	}
	half := r3.Vector{X: mcs / 2, Y: mcs / 2, Z: mcs / 2}
	return mesh.TriBoxOverlap(tri, center, half)
}

func (bp *BlockProcessor) worldPos(x, y, z int) r3.Vector {
	return r3.Vector{
		X: bp.origin.X + (float64(x)+0.5)*bp.cellSize,
		Y: bp.origin.Y + (float64(y)+0.5)*bp.cellSize,
		Z: bp.origin.Z + (float64(z)+0.5)*bp.cellSize,
	}
}

// ProcessBlock rasterizes the sub-block at (x,y,z) sized w x h x d into dst,
// dispatching one task per macrocell partition overlapping the block.
func (bp *BlockProcessor) ProcessBlock(dst []uint32, x, y, z, w, h, d int) error {
	counts := make([]uint16, len(dst))

	minPX := bp.voxelToPartition(x)
	maxPX := bp.voxelToPartition(x + w - 1)
	minPY := bp.voxelToPartition(y)
	maxPY := bp.voxelToPartition(y + h - 1)
	minPZ := bp.voxelToPartition(z)
	maxPZ := bp.voxelToPartition(z + d - 1)

	type partition struct{ px, py, pz int }
	var partitions []partition
	for pz := minPZ; pz <= maxPZ; pz++ {
		for py := minPY; py <= maxPY; py++ {
			for px := minPX; px <= maxPX; px++ {
				partitions = append(partitions, partition{px, py, pz})
			}
		}
	}

	rasterize := func(taskID, numSubTasks, workerID int) {
		p := partitions[taskID]
		bp.rasterizePartition(dst, counts, x, y, z, w, h, d, p.px, p.py, p.pz)
	}

	if bp.pool != nil && len(partitions) > 1 {
		return bp.pool.Run(rasterize, len(partitions))
	}
	for i := range partitions {
		rasterize(i, len(partitions), -1)
	}
	return nil
}

func (bp *BlockProcessor) voxelToPartition(voxelCoord int) int {
	voxelsPerPartition := maxInt(bp.resolution/bp.partitioning, 1)
	p := voxelCoord / voxelsPerPartition
	return clampInt(p, 0, bp.partitioning-1)
}

func (bp *BlockProcessor) rasterizePartition(dst []uint32, counts []uint16, x, y, z, w, h, d, px, py, pz int) {
	cell := bp.macrocellIndex(px, py, pz)
	start, end := bp.blockOffsets[cell], bp.blockOffsets[cell+1]

	voxelsPerPartition := maxInt(bp.resolution/bp.partitioning, 1)
	slabX0 := maxInt(x, px*voxelsPerPartition)
	slabX1 := minInt(x+w, (px+1)*voxelsPerPartition)
	slabY0 := maxInt(y, py*voxelsPerPartition)
	slabY1 := minInt(y+h, (py+1)*voxelsPerPartition)
	slabZ0 := maxInt(z, pz*voxelsPerPartition)
	slabZ1 := minInt(z+d, (pz+1)*voxelsPerPartition)

	for ti := start; ti < end; ti++ {
		tri := bp.tris[bp.blockLists[ti]]

		lx := clampInt(int((tri.Min.X-bp.origin.X)/bp.cellSize), slabX0, slabX1)
		ux := clampInt(int((tri.Max.X-bp.origin.X)/bp.cellSize)+1, slabX0, slabX1)
		ly := clampInt(int((tri.Min.Y-bp.origin.Y)/bp.cellSize), slabY0, slabY1)
		uy := clampInt(int((tri.Max.Y-bp.origin.Y)/bp.cellSize)+1, slabY0, slabY1)
		lz := clampInt(int((tri.Min.Z-bp.origin.Z)/bp.cellSize), slabZ0, slabZ1)
		uz := clampInt(int((tri.Max.Z-bp.origin.Z)/bp.cellSize)+1, slabZ0, slabZ1)

		half := r3.Vector{X: bp.cellSize / 2, Y: bp.cellSize / 2, Z: bp.cellSize / 2}

		for vz := lz; vz < uz; vz++ {
			for vy := ly; vy < uy; vy++ {
				for vx := lx; vx < ux; vx++ {
					center := bp.worldPos(vx, vy, vz)
					if !mesh.TriBoxOverlap(tri, center, half) {
						continue
					}
					closest := tri.ClosestPoint(center)
					n, shade := interpolateShading(tri, closest)

					idx := (vx - x) + (vy-y)*w + (vz-z)*w*h
					mergeVoxel(dst, counts, idx, n, shade)
				}
			}
		}
	}
}

// interpolateShading barycentrically interpolates the vertex normal at p
// (assumed to lie on or near the triangle) and derives a luminance from it,
// renormalizing only if the interpolated normal has enough magnitude to be
// meaningful, per spec.md §4.4's |n|^2 >= 1e-3 guard.
func interpolateShading(tri mesh.Triangle, p r3.Vector) (r3.Vector, float64) {
	a, b, c := tri.V0.Position, tri.V1.Position, tri.V2.Position
	u, v, w, ok := barycentric(a, b, c, p)
	if !ok {
		return tri.Normal, 0.5
	}
	n := tri.V0.Normal.Mul(u).Add(tri.V1.Normal.Mul(v)).Add(tri.V2.Normal.Mul(w))
	if n.Dot(n) < 1e-3 {
		n = tri.Normal
	} else {
		n = n.Normalize()
	}
	shade := clamp01(n.Dot(r3.Vector{X: 0, Y: 0, Z: 1})*0.5 + 0.5)
	return n, shade
}

func barycentric(a, b, c, p r3.Vector) (u, v, w float64, ok bool) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if denom < 1e-12 {
		return 0, 0, 0, false
	}
	v = (d11*d20 - d01*d21) / denom
	w = (d00*d21 - d01*d20) / denom
	u = 1 - v - w
	return u, v, w, true
}

// mergeVoxel merges a new (normal, shade) sample into cell idx using an
// online mean weighted by a saturating per-cell counter, per spec.md §4.4.
func mergeVoxel(dst []uint32, counts []uint16, idx int, n r3.Vector, shade float64) {
	count := counts[idx]
	if count == 0 {
		dst[idx] = material.Compress(n, shade)
		counts[idx] = 1
		return
	}

	oldN, oldShade := material.Decompress(dst[idx])
	alpha := float64(count) / float64(count+1)
	newN := oldN.Mul(alpha).Add(n.Mul(1 - alpha))
	newShade := oldShade*alpha + shade*(1-alpha)
	if newN.Dot(newN) < 1e-3 {
		newN = oldN
	}
	dst[idx] = material.Compress(newN, newShade)
	if count < 255 {
		counts[idx] = count + 1
	}
}

// IsBlockEmpty reports whether every macrocell touching (x,y,z,size) has an
// empty triangle list.
func (bp *BlockProcessor) IsBlockEmpty(x, y, z, size int) bool {
	minPX := bp.voxelToPartition(x)
	maxPX := bp.voxelToPartition(x + size - 1)
	minPY := bp.voxelToPartition(y)
	maxPY := bp.voxelToPartition(y + size - 1)
	minPZ := bp.voxelToPartition(z)
	maxPZ := bp.voxelToPartition(z + size - 1)

	for pz := minPZ; pz <= maxPZ; pz++ {
		for py := minPY; py <= maxPY; py++ {
			for px := minPX; px <= maxPX; px++ {
				cell := bp.macrocellIndex(px, py, pz)
				if bp.blockOffsets[cell+1] > bp.blockOffsets[cell] {
					return false
				}
			}
		}
	}
	return true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
