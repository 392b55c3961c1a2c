package octree

import (
	"bytes"

	"github.com/golang/geo/r3"
)

func centerVector(x, y, z float32) r3.Vector {
	return r3.Vector{X: float64(x), Y: float64(y), Z: float64(z)}
}

func newByteReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
