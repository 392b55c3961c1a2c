package mesh

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func triAt(a, b, c r3.Vector) Triangle {
	return NewTriangle(Vertex{Position: a}, Vertex{Position: b}, Vertex{Position: c})
}

func TestNewTriangleComputesNormalAndBounds(t *testing.T) {
	tri := triAt(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 1, Z: 0},
	)
	test.That(t, tri.Normal, test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 1})
	test.That(t, tri.Min, test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 0})
	test.That(t, tri.Max, test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 0})
}

func TestNewTriangleDegenerateFallsBackToUpNormal(t *testing.T) {
	tri := triAt(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
		r3.Vector{X: 2, Y: 0, Z: 0},
	)
	test.That(t, tri.Normal, test.ShouldResemble, r3.Vector{X: 0, Y: 1, Z: 0})
}

func TestClosestPointOnVertex(t *testing.T) {
	tri := triAt(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 1, Z: 0},
	)
	p := tri.ClosestPoint(r3.Vector{X: -5, Y: -5, Z: 0})
	test.That(t, p, test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 0})
}

func TestClosestPointInsideFace(t *testing.T) {
	tri := triAt(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 1, Z: 0},
	)
	p := tri.ClosestPoint(r3.Vector{X: 0.1, Y: 0.1, Z: 5})
	test.That(t, p.Z, test.ShouldAlmostEqual, 0.0, 1e-9)
}

func TestRescaleToUnitCubeCentersAndScales(t *testing.T) {
	m := Mesh{Triangles: []Triangle{
		triAt(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 4, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 4, Z: 0}),
	}}
	out := m.RescaleToUnitCube()
	min, max := out.Bounds()
	test.That(t, min.X, test.ShouldAlmostEqual, -1.0, 1e-9)
	test.That(t, max.X, test.ShouldAlmostEqual, 1.0, 1e-9)
}

func TestTriBoxOverlapDetectsIntersection(t *testing.T) {
	tri := triAt(
		r3.Vector{X: -0.5, Y: -0.5, Z: 0},
		r3.Vector{X: 0.5, Y: -0.5, Z: 0},
		r3.Vector{X: 0, Y: 0.5, Z: 0},
	)
	test.That(t, TriBoxOverlap(tri, r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}), test.ShouldBeTrue)
}

func TestTriBoxOverlapRejectsFarTriangle(t *testing.T) {
	tri := triAt(
		r3.Vector{X: 100, Y: 100, Z: 100},
		r3.Vector{X: 101, Y: 100, Z: 100},
		r3.Vector{X: 100, Y: 101, Z: 100},
	)
	test.That(t, TriBoxOverlap(tri, r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}), test.ShouldBeFalse)
}
