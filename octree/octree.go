// Package octree implements the packed variable-width sparse voxel octree:
// its descriptor encoding, the recursive builder that emits it via a
// chunked allocator, and its LZ4-compressed persistence format. The public
// Octree/Marshaler shape mirrors viamrobotics-rdk's octree package.
package octree

import "github.com/golang/geo/r3"

// Descriptor bit layout, matching spec.md §3:
//
//	childOffset : 14
//	farBit      : 1
//	largeBit    : 1
//	childMask   : 8
//	leafMask    : 8
const (
	leafMaskBits  = 8
	childMaskBits = 8
	// largeBit sits below farBit in significance, matching spec.md §3's
	// MSB-to-LSB layout childOffset|farBit|largeBit|childMask|leafMask.
	largeBit          = uint32(1) << (leafMaskBits + childMaskBits)
	farBit            = uint32(1) << (leafMaskBits + childMaskBits + 1)
	childOffsetBits   = 14
	maxSmallOffset    = (1 << childOffsetBits) - 1
	childOffsetShift  = leafMaskBits + childMaskBits + 2
)

func childMaskOf(word uint32) uint32 { return (word >> leafMaskBits) & 0xFF }
func leafMaskOf(word uint32) uint32  { return word & 0xFF }

// FarBit is the descriptor bit signaling that the true 32-bit child offset
// is stored in the following word rather than this word's offset field.
const FarBit = farBit

// LargeBit is the descriptor bit signaling that every child of this node is
// itself far (unused by this builder, which always emits per-node far
// pointers instead of the per-child optimization — see DESIGN.md).
const LargeBit = largeBit

// ChildOffsetShift is the bit position of the 14-bit small child offset
// field within a descriptor word.
const ChildOffsetShift = childOffsetShift

// ChildMask returns the occupied-octant bitmask of a descriptor word.
func ChildMask(word uint32) uint32 { return childMaskOf(word) }

// LeafMask returns the has-further-children bitmask of a descriptor word.
func LeafMask(word uint32) uint32 { return leafMaskOf(word) }

// Octree is a fully built, immutable sparse voxel octree ready for
// raymarching, mirroring viamrobotics-rdk/octree's Marshaler-backed public
// type shape.
type Octree struct {
	Center     r3.Vector
	Descriptor []uint32
}

// Marshaler is satisfied by types that can serialize themselves to the
// on-disk octree file format.
type Marshaler interface {
	MarshalOctree() ([]byte, error)
}

// Unmarshaler is satisfied by types that can parse the on-disk octree file
// format back into an Octree.
type Unmarshaler interface {
	UnmarshalOctree([]byte) (*Octree, error)
}

// Word returns the descriptor word at idx.
func (o *Octree) Word(idx int) uint32 { return o.Descriptor[idx] }

// Count reports the number of descriptor words.
func (o *Octree) Count() int { return len(o.Descriptor) }
