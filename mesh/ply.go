package mesh

import (
	"os"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"

	"github.com/tunabrain/sparse-voxel-octrees/svoerr"
)

// LoadPLY reads a triangle mesh from a PLY file using the goply parser,
// synthesizing per-face normals for any vertex lacking one (see
// SPEC_FULL.md's Open Question 1: (0,1,0) is a last-resort fallback for
// degenerate faces only, never a blanket default for missing normals).
func LoadPLY(path string) (Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return Mesh{}, svoerr.NewIoError(path, err)
	}
	defer f.Close()

	doc := goply.New(f)

	vertices := doc.Elements("vertex")
	faces := doc.Elements("face")
	if len(vertices) == 0 || len(faces) == 0 {
		return Mesh{}, svoerr.NewInvalidPly("ply file %q has no vertex or face elements", path)
	}

	positions := make([]r3.Vector, len(vertices))
	normals := make([]r3.Vector, len(vertices))
	hasNormal := make([]bool, len(vertices))

	for i, v := range vertices {
		positions[i] = r3.Vector{
			X: toFloat(v["x"]),
			Y: toFloat(v["y"]),
			Z: toFloat(v["z"]),
		}
		if nx, ok := v["nx"]; ok {
			normals[i] = r3.Vector{X: toFloat(nx), Y: toFloat(v["ny"]), Z: toFloat(v["nz"])}
			hasNormal[i] = normals[i].Norm() > 1e-12
		}
	}

	tris := make([]Triangle, 0, len(faces))
	for _, f := range faces {
		idx, ok := toIntSlice(f["vertex_indices"])
		if !ok || len(idx) < 3 {
			continue
		}
		// Fan-triangulate faces with more than three vertices.
		for k := 1; k+1 < len(idx); k++ {
			i0, i1, i2 := idx[0], idx[k], idx[k+1]
			if i0 < 0 || i1 < 0 || i2 < 0 || i0 >= len(positions) || i1 >= len(positions) || i2 >= len(positions) {
				continue
			}
			v0 := Vertex{Position: positions[i0], Normal: normals[i0]}
			v1 := Vertex{Position: positions[i1], Normal: normals[i1]}
			v2 := Vertex{Position: positions[i2], Normal: normals[i2]}
			tri := NewTriangle(v0, v1, v2)

			if !hasNormal[i0] {
				tri.V0.Normal = tri.Normal
			}
			if !hasNormal[i1] {
				tri.V1.Normal = tri.Normal
			}
			if !hasNormal[i2] {
				tri.V2.Normal = tri.Normal
			}
			tris = append(tris, tri)
		}
	}

	if len(tris) == 0 {
		return Mesh{}, svoerr.NewInvalidPly("ply file %q produced no valid triangles", path)
	}

	return Mesh{Triangles: tris}, nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toIntSlice(v interface{}) ([]int, bool) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]int, len(raw))
	for i, r := range raw {
		switch n := r.(type) {
		case int:
			out[i] = n
		case int32:
			out[i] = int(n)
		case int64:
			out[i] = int(n)
		case float64:
			out[i] = int(n)
		default:
			return nil, false
		}
	}
	return out, true
}
