package material

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		n     r3.Vector
		shade float64
	}{
		{"axis-x", r3.Vector{X: 1, Y: 0, Z: 0}, 1.0},
		{"axis-neg-y", r3.Vector{X: 0, Y: -1, Z: 0}, 0.0},
		{"diagonal", r3.Vector{X: 1, Y: 1, Z: 1}, 0.5},
		{"half-shade", r3.Vector{X: 0.2, Y: 0.9, Z: -0.3}, 0.25},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			word := Compress(c.n, c.shade)
			n, shade := Decompress(word)

			test.That(t, n.Norm(), test.ShouldAlmostEqual, 1.0, 0.01)
			dot := n.Dot(c.n.Normalize())
			test.That(t, dot, test.ShouldBeGreaterThan, 0.98)
			test.That(t, shade, test.ShouldAlmostEqual, c.shade, 0.01)
		})
	}
}

func TestFastNormalizeApproximatesInverseSqrt(t *testing.T) {
	got := FastNormalize(4.0)
	test.That(t, float64(got), test.ShouldAlmostEqual, 0.5, 0.01)

	got = FastNormalize(1.0)
	test.That(t, float64(got), test.ShouldAlmostEqual, 1.0, 0.01)
}

func TestFastNormalizeZero(t *testing.T) {
	test.That(t, FastNormalize(0), test.ShouldEqual, float32(0))
}
