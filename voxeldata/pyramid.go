package voxeldata

// pyramid is one tier (top or low) of the hierarchical occupancy lookup: a
// set of single-byte cell arrays, one per level, level 0 being coarsest.
// Level l holds (2^l)^3 cells indexed by idx(x,y,z) = x + (y<<l) + (z<<2l),
// per spec.md §3's hierarchical occupancy grid definition.
type pyramid struct {
	levels [][]byte // levels[l] has length (1<<l)^3
}

func newPyramid(numLevels int) *pyramid {
	p := &pyramid{levels: make([][]byte, numLevels)}
	for l := 0; l < numLevels; l++ {
		dim := 1 << uint(l)
		p.levels[l] = make([]byte, dim*dim*dim)
	}
	return p
}

func (p *pyramid) clear() {
	for _, level := range p.levels {
		for i := range level {
			level[i] = 0
		}
	}
}

func cellIndex(x, y, z, level int) int {
	return x + (y << uint(level)) + (z << uint(2*level))
}

func (p *pyramid) get(x, y, z, level int) bool {
	return p.levels[level][cellIndex(x, y, z, level)] != 0
}

func (p *pyramid) set(x, y, z, level int, val bool) {
	var b byte
	if val {
		b = 1
	}
	p.levels[level][cellIndex(x, y, z, level)] = b
}

func (p *pyramid) or(x, y, z, level int, val bool) {
	if val {
		p.levels[level][cellIndex(x, y, z, level)] = 1
	}
}

func (p *pyramid) clearCell(x, y, z, level int) {
	p.levels[level][cellIndex(x, y, z, level)] = 0
}

// upsampleFrom fills every level below (coarser than) finestLevel by OR-ing
// the 8 children of each cell at the next finer level, matching
// original_source's upsampleLutLevel generalized to an arbitrary tier.
func (p *pyramid) upsampleFrom(finestLevel int) {
	for l := finestLevel - 1; l >= 0; l-- {
		dim := 1 << uint(l)
		childDim := dim * 2
		for z := 0; z < dim; z++ {
			for y := 0; y < dim; y++ {
				for x := 0; x < dim; x++ {
					occupied := false
					for dz := 0; dz < 2 && !occupied; dz++ {
						for dy := 0; dy < 2 && !occupied; dy++ {
							for dx := 0; dx < 2 && !occupied; dx++ {
								cx, cy, cz := x*2+dx, y*2+dy, z*2+dz
								if cx < childDim && cy < childDim && cz < childDim {
									if p.get(cx, cy, cz, l+1) {
										occupied = true
									}
								}
							}
						}
					}
					p.set(x, y, z, l, occupied)
				}
			}
		}
	}
}
