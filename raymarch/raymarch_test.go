package raymarch

import (
	"context"
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/tunabrain/sparse-voxel-octrees/material"
	"github.com/tunabrain/sparse-voxel-octrees/octree"
	"github.com/tunabrain/sparse-voxel-octrees/voxeldata"
)

type denseProducer struct {
	w, h, d int
	data    []uint32
}

func (p *denseProducer) at(x, y, z int) uint32 {
	if x < 0 || y < 0 || z < 0 || x >= p.w || y >= p.h || z >= p.d {
		return 0
	}
	return p.data[x+y*p.w+z*p.w*p.h]
}

func (p *denseProducer) ProcessBlock(dst []uint32, x, y, z, w, h, d int) error {
	for lz := 0; lz < d; lz++ {
		for ly := 0; ly < h; ly++ {
			for lx := 0; lx < w; lx++ {
				dst[lx+ly*w+lz*w*h] = p.at(x+lx, y+ly, z+lz)
			}
		}
	}
	return nil
}

func (p *denseProducer) IsBlockEmpty(x, y, z, size int) bool {
	for lz := 0; lz < size; lz++ {
		for ly := 0; ly < size; ly++ {
			for lx := 0; lx < size; lx++ {
				if p.at(x+lx, y+ly, z+lz) != 0 {
					return false
				}
			}
		}
	}
	return true
}

var canonicalCenter = r3.Vector{X: 1.5, Y: 1.5, Z: 1.5}

func buildFullCube(t *testing.T, size int, center r3.Vector, occupiedMaterial uint32, ox, oy, oz int) *octree.Octree {
	prod := &denseProducer{w: size, h: size, d: size, data: make([]uint32, size*size*size)}
	prod.data[ox+oy*size+oz*size*size] = occupiedMaterial

	voxels, err := voxeldata.New(context.Background(), prod, size, size, size, 1<<30, nil, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	builder := octree.NewBuilder(voxels, golog.NewTestLogger(t))
	tree, err := builder.Build(context.Background(), center, size)
	test.That(t, err, test.ShouldBeNil)
	return tree
}

// localOrigin maps a world-space position into the fixed [1,2]^3 traversal
// cube around center, duplicating render.Renderer.localOrigin's formula (a
// direct copy would create an import cycle since render imports raymarch).
func localOrigin(pos, center r3.Vector) r3.Vector {
	return pos.Sub(center).Add(canonicalCenter)
}

// TestMarchHitsSingleVoxel reproduces spec.md's S1 scenario: a single voxel
// at (3,3,3) of an 8^3 dense volume, hit by a ray fired at the tree's center
// from two world units back along -x.
func TestMarchHitsSingleVoxel(t *testing.T) {
	mat := material.Compress(r3.Vector{X: 1, Y: 0, Z: 0}, 0.5)
	center := r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}
	tree := buildFullCube(t, 8, center, mat, 3, 3, 3)
	test.That(t, tree.Center, test.ShouldResemble, center)

	worldOrigin := center.Add(r3.Vector{X: -2})
	origin := localOrigin(worldOrigin, center)
	dir := r3.Vector{X: 1, Y: 0, Z: 0}

	hit := March(tree, origin, dir, 0)
	test.That(t, hit.Hit, test.ShouldBeTrue)
	test.That(t, hit.T, test.ShouldAlmostEqual, 1.5625, 1e-3)

	dot := hit.Normal.Dot(r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, dot, test.ShouldBeGreaterThan, math.Cos(10*math.Pi/180))
}

// TestMarchHitsNearerOfTwoVoxelsAcrossBranches builds a tree with two
// occupied voxels in different root-level branches, both on the ray's line,
// and checks that March stops at the nearer one: the hit carries the near
// voxel's +x material normal rather than the far voxel's +y one. The ray
// runs through the centres of the y=z=3 voxel row, so it never grazes a
// voxel face. It reaches the near voxel before leaving any branch it
// descends into, so this test does not exercise POP.
func TestMarchHitsNearerOfTwoVoxelsAcrossBranches(t *testing.T) {
	prod := &denseProducer{w: 8, h: 8, d: 8, data: make([]uint32, 8*8*8)}
	near := material.Compress(r3.Vector{X: 1, Y: 0, Z: 0}, 0.5)
	far := material.Compress(r3.Vector{X: 0, Y: 1, Z: 0}, 0.75)
	prod.data[3+3*8+3*8*8] = near
	prod.data[6+3*8+3*8*8] = far

	voxels, err := voxeldata.New(context.Background(), prod, 8, 8, 8, 1<<30, nil, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	builder := octree.NewBuilder(voxels, golog.NewTestLogger(t))
	center := r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}
	tree, err := builder.Build(context.Background(), center, 8)
	test.That(t, err, test.ShouldBeNil)

	worldOrigin := center.Add(r3.Vector{X: -2, Y: -1.0 / 16, Z: -1.0 / 16})
	origin := localOrigin(worldOrigin, center)
	dir := r3.Vector{X: 1, Y: 0, Z: 0}

	hit := March(tree, origin, dir, 0)
	test.That(t, hit.Hit, test.ShouldBeTrue)
	test.That(t, hit.T, test.ShouldBeBetween, 1.0, 3.0)

	dot := hit.Normal.Dot(r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, dot, test.ShouldBeGreaterThan, math.Cos(10*math.Pi/180))
}

func TestMarchMissesEmptyVolume(t *testing.T) {
	prod := &denseProducer{w: 8, h: 8, d: 8, data: make([]uint32, 8*8*8)}
	voxels, err := voxeldata.New(context.Background(), prod, 8, 8, 8, 1<<30, nil, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	builder := octree.NewBuilder(voxels, golog.NewTestLogger(t))
	tree, err := builder.Build(context.Background(), r3.Vector{}, 8)
	test.That(t, err, test.ShouldBeNil)

	hit := March(tree, r3.Vector{X: 1.0, Y: 1.5, Z: 1.5}, r3.Vector{X: 1, Y: 0, Z: 0}, 0)
	test.That(t, hit.Hit, test.ShouldBeFalse)
}

func TestClampDirAvoidsDivisionByZero(t *testing.T) {
	test.That(t, math.Abs(clampDir(0)), test.ShouldEqual, epsDir)
	test.That(t, clampDir(math.Copysign(0, -1)), test.ShouldBeLessThanOrEqualTo, 0.0)
}
