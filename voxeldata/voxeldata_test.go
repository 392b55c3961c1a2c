package voxeldata

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

// denseProducer serves ProcessBlock/IsBlockEmpty directly out of an
// in-memory dense volume, for testing without a real mesh voxelizer.
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

func TestCubeContainsVoxelsFindsSingleVoxel(t *testing.T) {
	prod := &denseProducer{w: 8, h: 8, d: 8, data: make([]uint32, 8*8*8)}
	prod.data[3+3*8+3*8*8] = 0xdeadbeef

	vd, err := New(context.Background(), prod, 8, 8, 8, 1<<30, nil, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, vd.CubeContainsVoxels(0, 0, 0, 8), test.ShouldBeTrue)

	test.That(t, vd.PrepareDataAccess(0, 0, 0, 8), test.ShouldBeNil)
	test.That(t, vd.CubeContainsVoxels(4, 4, 4, 4), test.ShouldBeFalse)
	test.That(t, vd.CubeContainsVoxels(0, 0, 0, 4), test.ShouldBeTrue)
}

func TestPrepareDataAccessAndMaterialAt(t *testing.T) {
	prod := &denseProducer{w: 4, h: 4, d: 4, data: make([]uint32, 4*4*4)}
	prod.data[0] = 42

	vd, err := New(context.Background(), prod, 4, 4, 4, 1<<30, nil, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, vd.PrepareDataAccess(0, 0, 0, 4), test.ShouldBeNil)
	test.That(t, vd.MaterialAt(0, 0, 0), test.ShouldEqual, uint32(42))
	test.That(t, vd.MaterialAt(1, 0, 0), test.ShouldEqual, uint32(0))
}

func TestOutOfBudgetForTinyBudget(t *testing.T) {
	prod := &denseProducer{w: 256, h: 256, d: 256, data: make([]uint32, 256*256*256)}
	_, err := New(context.Background(), prod, 256, 256, 256, 8, nil, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDestructiveQueryZeroesLowCell(t *testing.T) {
	prod := &denseProducer{w: 4, h: 4, d: 4, data: make([]uint32, 4*4*4)}
	prod.data[0] = 1

	vd, err := New(context.Background(), prod, 4, 4, 4, 1<<30, nil, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, vd.PrepareDataAccess(0, 0, 0, 4), test.ShouldBeNil)

	test.That(t, vd.CubeContainsVoxelsDestructive(0, 0, 0, 2), test.ShouldBeTrue)
	test.That(t, vd.CubeContainsVoxelsDestructive(0, 0, 0, 2), test.ShouldBeFalse)
}
