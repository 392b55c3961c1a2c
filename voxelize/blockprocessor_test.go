package voxelize

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/tunabrain/sparse-voxel-octrees/material"
	"github.com/tunabrain/sparse-voxel-octrees/mesh"
)

func quadMesh() mesh.Mesh {
	v := func(x, y, z float64) mesh.Vertex {
		return mesh.Vertex{Position: r3.Vector{X: x, Y: y, Z: z}, Normal: r3.Vector{X: 0, Y: 0, Z: 1}}
	}
	return mesh.Mesh{Triangles: []mesh.Triangle{
		mesh.NewTriangle(v(-0.9, -0.9, 0), v(0.9, -0.9, 0), v(0.9, 0.9, 0)),
		mesh.NewTriangle(v(-0.9, -0.9, 0), v(0.9, 0.9, 0), v(-0.9, 0.9, 0)),
	}}
}

func TestProcessBlockRasterizesQuad(t *testing.T) {
	m := quadMesh()
	bp := New(m, 8, 1, nil)

	dst := make([]uint32, 8*8*8)
	err := bp.ProcessBlock(dst, 0, 0, 0, 8, 8, 8)
	test.That(t, err, test.ShouldBeNil)

	// The mid-plane slab (z index straddling world z=0) should have
	// several occupied cells; the far slab should be empty.
	occupiedNear := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if dst[x+y*8+4*8*8] != 0 {
				occupiedNear++
			}
		}
	}
	test.That(t, occupiedNear, test.ShouldBeGreaterThan, 0)

	occupiedFar := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if dst[x+y*8+0*8*8] != 0 {
				occupiedFar++
			}
		}
	}
	test.That(t, occupiedFar, test.ShouldEqual, 0)
}

func TestIsBlockEmptyForDisjointRegion(t *testing.T) {
	m := quadMesh()
	bp := New(m, 8, 64, nil)
	test.That(t, bp.IsBlockEmpty(0, 0, 7, 1), test.ShouldBeTrue)
}

func TestMergeVoxelWeightedAverage(t *testing.T) {
	dst := make([]uint32, 1)
	counts := make([]uint16, 1)

	mergeVoxel(dst, counts, 0, r3.Vector{X: 0, Y: 0, Z: 1}, 1.0)
	test.That(t, counts[0], test.ShouldEqual, uint16(1))

	mergeVoxel(dst, counts, 0, r3.Vector{X: 0, Y: 0, Z: 1}, 0.0)
	_, shade := material.Decompress(dst[0])
	test.That(t, shade, test.ShouldAlmostEqual, 0.5, 0.02)
	test.That(t, counts[0], test.ShouldEqual, uint16(2))
}
