package mesh

import (
	"math"

	"github.com/golang/geo/r3"
)

// TriBoxOverlap reports whether triangle t overlaps the axis-aligned box
// centered at boxCenter with half-extents boxHalfSize, using the standard
// separating-axis test (Akenine-Möller): the box's three face normals, the
// triangle's own face normal, and the nine cross products of each box edge
// with each triangle edge. No example repo in the retrieved corpus carries
// this exact routine, so it is implemented directly from the geometric
// definition rather than ported from a teacher file.
func TriBoxOverlap(t Triangle, boxCenter, boxHalfSize r3.Vector) bool {
	v0 := t.V0.Position.Sub(boxCenter)
	v1 := t.V1.Position.Sub(boxCenter)
	v2 := t.V2.Position.Sub(boxCenter)

	// Box face normals: separate on the triangle's AABB vs. the box.
	if axisMin(v0.X, v1.X, v2.X) > boxHalfSize.X || axisMax(v0.X, v1.X, v2.X) < -boxHalfSize.X {
		return false
	}
	if axisMin(v0.Y, v1.Y, v2.Y) > boxHalfSize.Y || axisMax(v0.Y, v1.Y, v2.Y) < -boxHalfSize.Y {
		return false
	}
	if axisMin(v0.Z, v1.Z, v2.Z) > boxHalfSize.Z || axisMax(v0.Z, v1.Z, v2.Z) < -boxHalfSize.Z {
		return false
	}

	// Triangle face normal: separate the box against the triangle's plane.
	n := t.Normal
	d := -n.Dot(v0)
	r := boxHalfSize.X*math.Abs(n.X) + boxHalfSize.Y*math.Abs(n.Y) + boxHalfSize.Z*math.Abs(n.Z)
	if d > r || d < -r {
		return false
	}

	// Nine edge-cross-axis tests: box edge (unit axis) x triangle edge.
	edges := [3]r3.Vector{v1.Sub(v0), v2.Sub(v1), v0.Sub(v2)}
	verts := [3]r3.Vector{v0, v1, v2}
	axes := [3]r3.Vector{{X: 1}, {Y: 1}, {Z: 1}}

	for _, e := range edges {
		for _, a := range axes {
			axis := a.Cross(e)
			if axis.Norm() < 1e-12 {
				continue
			}
			if !axisOverlap(axis, verts, boxHalfSize) {
				return false
			}
		}
	}

	return true
}

func axisOverlap(axis r3.Vector, verts [3]r3.Vector, boxHalfSize r3.Vector) bool {
	p0 := axis.Dot(verts[0])
	p1 := axis.Dot(verts[1])
	p2 := axis.Dot(verts[2])
	triMin := math.Min(p0, math.Min(p1, p2))
	triMax := math.Max(p0, math.Max(p1, p2))

	r := boxHalfSize.X*math.Abs(axis.X) + boxHalfSize.Y*math.Abs(axis.Y) + boxHalfSize.Z*math.Abs(axis.Z)
	return !(triMin > r || triMax < -r)
}

func axisMin(a, b, c float64) float64 { return math.Min(a, math.Min(b, c)) }
func axisMax(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }
