// Package mesh provides the geometric entities voxelization operates on:
// vertices, triangles with cached bounding boxes, meshes, PLY loading and
// the triangle/box overlap test used by the block processor's broad phase.
package mesh

import (
	"math"

	"github.com/golang/geo/r3"
)

// Vertex is one mesh vertex with an interpolated shading normal.
type Vertex struct {
	Position r3.Vector
	Normal   r3.Vector
}

// Triangle is one mesh face, grounded on viamrobotics-rdk/spatialmath's
// Triangle type: vertices plus a precomputed face normal and axis-aligned
// bounding box, so voxelization's broad phase never recomputes them.
type Triangle struct {
	V0, V1, V2 Vertex
	Normal     r3.Vector

	Min, Max r3.Vector
}

// NewTriangle builds a Triangle from three vertices, computing its face
// normal via the cross product (falling back to (0,1,0) only if the face is
// degenerate — the last-resort default original_source's PlyLoader always
// used, now reserved for genuinely zero-area faces) and caching its AABB.
func NewTriangle(v0, v1, v2 Vertex) Triangle {
	e1 := v1.Position.Sub(v0.Position)
	e2 := v2.Position.Sub(v0.Position)
	n := e1.Cross(e2)
	if n.Norm() < 1e-12 {
		n = r3.Vector{X: 0, Y: 1, Z: 0}
	} else {
		n = n.Normalize()
	}

	t := Triangle{V0: v0, V1: v1, V2: v2, Normal: n}
	t.Min = componentMin(componentMin(v0.Position, v1.Position), v2.Position)
	t.Max = componentMax(componentMax(v0.Position, v1.Position), v2.Position)
	return t
}

// ClosestPoint returns the closest point on the (solid, filled) triangle to
// p using a barycentric parametrization with clamping fallback for points
// whose projection falls outside the triangle, mirroring
// spatialmath.Triangle's ClosestPointToPoint/ClosestInsidePoint pairing.
func (t Triangle) ClosestPoint(p r3.Vector) r3.Vector {
	const eps = 1e-9

	a, b, c := t.V0.Position, t.V1.Position, t.V2.Position
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w))
	}

	denom := 1.0 / (va + vb + vc + eps)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}

// Mesh is a bag of triangles, matching the shape of spatialmath.Mesh
// (pose + triangles) but with the pose folded into world-space vertices
// ahead of time since this pipeline has no runtime pose changes.
type Mesh struct {
	Triangles []Triangle
}

// Bounds returns the mesh's overall axis-aligned bounding box.
func (m Mesh) Bounds() (min, max r3.Vector) {
	if len(m.Triangles) == 0 {
		return r3.Vector{}, r3.Vector{}
	}
	min, max = m.Triangles[0].Min, m.Triangles[0].Max
	for _, tri := range m.Triangles[1:] {
		min = componentMin(min, tri.Min)
		max = componentMax(max, tri.Max)
	}
	return min, max
}

// RescaleToUnitCube returns a copy of m translated and uniformly scaled so
// its bounding box is centered at the origin and its longest axis spans
// [-1, 1], the normalization every voxelizable mesh needs before block
// processing addresses it in grid coordinates.
func (m Mesh) RescaleToUnitCube() Mesh {
	min, max := m.Bounds()
	center := min.Add(max).Mul(0.5)
	extent := max.Sub(min)
	longest := math.Max(extent.X, math.Max(extent.Y, extent.Z))
	if longest < 1e-12 {
		longest = 1
	}
	scale := 2.0 / longest

	out := Mesh{Triangles: make([]Triangle, len(m.Triangles))}
	for i, tri := range m.Triangles {
		v0 := Vertex{Position: tri.V0.Position.Sub(center).Mul(scale), Normal: tri.V0.Normal}
		v1 := Vertex{Position: tri.V1.Position.Sub(center).Mul(scale), Normal: tri.V1.Normal}
		v2 := Vertex{Position: tri.V2.Position.Sub(center).Mul(scale), Normal: tri.V2.Normal}
		out.Triangles[i] = NewTriangle(v0, v1, v2)
	}
	return out
}

func componentMin(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

func componentMax(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}
