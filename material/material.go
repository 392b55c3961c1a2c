// Package material implements the compressed (normal, shade) material word
// used by every leaf voxel: a unit normal packed into an octahedral-ish
// sign/face/u/v encoding, plus a quantized shading luminance, all inside a
// single uint32.
package material

import (
	"math"

	"github.com/golang/geo/r3"
)

// Bit layout of the packed word, most significant bit first:
//
//	sign : 1
//	face : 2
//	u    : 11
//	v    : 11
//	shade: 7
const (
	shadeBits = 7
	uBits     = 11
	vBits     = 11
	faceBits  = 2

	shadeMask = (1 << shadeBits) - 1
	uMask     = (1 << uBits) - 1
	vMask     = (1 << vBits) - 1
	faceMask  = (1 << faceBits) - 1

	uMax = float64((1 << uBits) - 1)
	vMax = float64((1 << vBits) - 1)
	sMax = float64((1 << shadeBits) - 1)
)

// FastNormalize approximates 1/sqrt(x) using the classic Quake III bit-hack
// (magic constant 0x5f3759df) followed by one Newton-Raphson refinement
// step, matching original_source's Util.cpp:invSqrt.
func FastNormalize(x float32) float32 {
	if x == 0 {
		return 0
	}
	i := math.Float32bits(x)
	i = 0x5f3759df - (i >> 1)
	y := math.Float32frombits(i)
	xhalf := 0.5 * x
	y = y * (1.5 - xhalf*y*y)
	return y
}

// Compress packs a (not necessarily unit-length) normal and a shading
// luminance in [0,1] into a single 32-bit material word.
func Compress(n r3.Vector, shade float64) uint32 {
	nf := normalizeFast(n)

	// Determine the dominant axis (face) and its sign, then project the
	// other two axes onto that face's plane, matching the compression
	// convention of original_source's compressNormal (extended here with
	// a shade channel per the redesigned 1/2/11/11/7 layout).
	ax, ay, az := math.Abs(nf.X), math.Abs(nf.Y), math.Abs(nf.Z)

	var face uint32
	var sign uint32
	var u, v float64
	switch {
	case ax >= ay && ax >= az:
		face = 0
		if nf.X < 0 {
			sign = 1
		}
		u, v = nf.Y/ax, nf.Z/ax
	case ay >= ax && ay >= az:
		face = 1
		if nf.Y < 0 {
			sign = 1
		}
		u, v = nf.X/ay, nf.Z/ay
	default:
		face = 2
		if nf.Z < 0 {
			sign = 1
		}
		u, v = nf.X/az, nf.Y/az
	}

	// u, v are the off-axis components divided by the dominant axis's
	// magnitude, so they lie in [-1, 1]; remap to unsigned fixed-point
	// ranges.
	uq := uint32(clamp01((u+1)*0.5) * uMax)
	vq := uint32(clamp01((v+1)*0.5) * vMax)
	sq := uint32(clamp01(shade) * sMax)

	word := sign << 31
	word |= face << (uBits + vBits + shadeBits)
	word |= (uq & uMask) << (vBits + shadeBits)
	word |= (vq & vMask) << shadeBits
	word |= sq & shadeMask
	return word
}

// Decompress unpacks a material word into an approximately-unit normal and
// the shading luminance stored alongside it.
func Decompress(word uint32) (r3.Vector, float64) {
	sign := (word >> 31) & 1
	face := (word >> (uBits + vBits + shadeBits)) & faceMask
	uq := (word >> (vBits + shadeBits)) & uMask
	vq := (word >> shadeBits) & vMask
	sq := word & shadeMask

	u := float64(uq)/uMax*2 - 1
	v := float64(vq)/vMax*2 - 1
	shade := float64(sq) / sMax

	var n r3.Vector
	dominant := 1.0
	if sign == 1 {
		dominant = -1.0
	}
	switch face {
	case 0:
		n = r3.Vector{X: dominant, Y: u, Z: v}
	case 1:
		n = r3.Vector{X: u, Y: dominant, Z: v}
	default:
		n = r3.Vector{X: u, Y: v, Z: dominant}
	}
	return normalizeFast(n), shade
}

func normalizeFast(v r3.Vector) r3.Vector {
	lenSq := float32(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if lenSq == 0 {
		return r3.Vector{}
	}
	inv := float64(FastNormalize(lenSq))
	return r3.Vector{X: v.X * inv, Y: v.Y * inv, Z: v.Z * inv}
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
