// Package raymarch implements the stackless ESVO-style traversal of a
// packed octree, ported structurally from
// original_source/src/VoxelOctree.cpp:raymarch onto Go's
// math.Float32bits/Float32frombits for the IEEE-754 bit tricks the
// algorithm depends on for scale-restart after POP.
package raymarch

import (
	"math"
	"math/bits"

	"github.com/golang/geo/r3"

	"github.com/tunabrain/sparse-voxel-octrees/material"
	"github.com/tunabrain/sparse-voxel-octrees/octree"
)

// MaxScale is the number of usable mantissa bits used to encode traversal
// depth in the exponent of a float32 position, per spec.md §4.6.
const MaxScale = 23

const epsDir = 1e-4

// Hit describes a raymarch result.
type Hit struct {
	T      float64
	Normal r3.Vector
	Hit    bool
}

// March traverses tree from origin o in unit direction d, returning the
// first hit at distance t (and its decoded normal, when available) or a
// miss. rayScale is the ray-cone footprint per unit distance used for the
// coarse early-termination test described in spec.md §4.6 step 4.
func March(tree *octree.Octree, o, d r3.Vector, rayScale float64) Hit {
	dx, dy, dz := clampDir(d.X), clampDir(d.Y), clampDir(d.Z)

	dtx, dty, dtz := 1/-math.Abs(dx), 1/-math.Abs(dy), 1/-math.Abs(dz)
	btx, bty, btz := dtx*o.X, dty*o.Y, dtz*o.Z

	octantMask := 0
	if dx > 0 {
		octantMask ^= 1
		btx = 3*dtx - btx
	}
	if dy > 0 {
		octantMask ^= 2
		bty = 3*dty - bty
	}
	if dz > 0 {
		octantMask ^= 4
		btz = 3*dtz - btz
	}

	minT := math.Max(math.Max(2*dtx-btx, 2*dty-bty), 2*dtz-btz)
	maxT := math.Min(math.Min(dtx-btx, dty-bty), dtz-btz)
	minT = math.Max(minT, 0)

	posX, posY, posZ := float32(1.0), float32(1.0), float32(1.0)
	scale := MaxScale - 1
	scaleExp2 := 0.5

	idx := 0
	current := uint32(0)
	parent := 0

	var rayStackParent [MaxScale + 1]int
	var rayStackMaxT [MaxScale + 1]float64

	if 1.5*dtx-btx > minT {
		idx ^= 1
		posX = 1.5
	}
	if 1.5*dty-bty > minT {
		idx ^= 2
		posY = 1.5
	}
	if 1.5*dtz-btz > minT {
		idx ^= 4
		posZ = 1.5
	}

	for scale < MaxScale {
		if current == 0 {
			current = tree.Word(parent)
		}

		cornerTX := float64(posX)*dtx - btx
		cornerTY := float64(posY)*dty - bty
		cornerTZ := float64(posZ)*dtz - btz
		maxTC := math.Min(math.Min(cornerTX, cornerTY), cornerTZ)

		childShift := uint(idx ^ octantMask)
		childMasks := current << childShift

		if childMasks&0x8000 != 0 && minT <= maxT {
			if maxTC*rayScale >= scaleExp2 {
				return Hit{T: maxTC, Hit: true}
			}

			maxTV := math.Min(maxT, maxTC)
			if minT <= maxTV {
				childOffset := int(current >> octree.ChildOffsetShift)
				if current&octree.FarBit != 0 {
					childOffset = (childOffset << 32) | int(tree.Word(parent+1))
				}

				siblingRank := bits.OnesCount32((childMasks >> (8 + childShift)) << childShift & 0x7F)
				if childMasks&0x80 == 0 {
					// Leaf: the sibling slot itself is a material word.
					word := tree.Word(childOffset + parent + siblingRank)
					n, _ := material.Decompress(word)
					return Hit{T: minT, Normal: n, Hit: true}
				}

				rayStackParent[scale] = parent
				rayStackMaxT[scale] = maxT

				parent += childOffset + bits.OnesCount32(childMasks&0x7F)
				idx = 0
				scale--
				scaleExp2 *= 0.5

				if half := float32(scaleExp2); true {
					centerTX := float64(half)*dtx + cornerTX
					if centerTX > minT {
						idx ^= 1
						posX += half
					}
					centerTY := float64(half)*dty + cornerTY
					if centerTY > minT {
						idx ^= 2
						posY += half
					}
					centerTZ := float64(half)*dtz + cornerTZ
					if centerTZ > minT {
						idx ^= 4
						posZ += half
					}
				}

				maxT = maxTV
				current = 0
				continue
			}
		}

		// ADVANCE
		stepMask := 0
		if cornerTX <= maxTC {
			stepMask ^= 1
			posX -= float32(scaleExp2)
		}
		if cornerTY <= maxTC {
			stepMask ^= 2
			posY -= float32(scaleExp2)
		}
		if cornerTZ <= maxTC {
			stepMask ^= 4
			posZ -= float32(scaleExp2)
		}
		minT = maxTC
		idx ^= stepMask

		if idx&stepMask != 0 {
			// POP
			var differing uint32
			if stepMask&1 != 0 {
				differing |= math.Float32bits(posX) ^ math.Float32bits(posX+float32(scaleExp2))
			}
			if stepMask&2 != 0 {
				differing |= math.Float32bits(posY) ^ math.Float32bits(posY+float32(scaleExp2))
			}
			if stepMask&4 != 0 {
				differing |= math.Float32bits(posZ) ^ math.Float32bits(posZ+float32(scaleExp2))
			}

			newScale := int(math.Float32bits(float32(differing))>>23) - 127
			if newScale < 0 {
				newScale = 0
			}
			if newScale >= MaxScale {
				return Hit{}
			}
			scale = newScale
			scaleExp2 = math.Ldexp(1, scale-MaxScale)

			parent = rayStackParent[scale]
			maxT = rayStackMaxT[scale]

			shiftX := uint32(math.Float32bits(posX)) >> uint(scale)
			shiftY := uint32(math.Float32bits(posY)) >> uint(scale)
			shiftZ := uint32(math.Float32bits(posZ)) >> uint(scale)
			posX = math.Float32frombits(shiftX << uint(scale))
			posY = math.Float32frombits(shiftY << uint(scale))
			posZ = math.Float32frombits(shiftZ << uint(scale))

			idx = 0
			if shiftX&1 != 0 {
				idx ^= 1
			}
			if shiftY&1 != 0 {
				idx ^= 2
			}
			if shiftZ&1 != 0 {
				idx ^= 4
			}

			current = 0
		}
	}

	return Hit{}
}

func clampDir(v float64) float64 {
	if math.Abs(v) < epsDir {
		if math.Signbit(v) {
			return -epsDir
		}
		return epsDir
	}
	return v
}
