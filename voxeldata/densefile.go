package voxeldata

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/tunabrain/sparse-voxel-octrees/svoerr"
)

// denseFileHeaderBytes is the byte size of the W,H,D uint32 header in the
// dense voxel file format (spec.md §6.2).
const denseFileHeaderBytes = 3 * 4

// WriteDenseFile streams src's voxels into a new dense voxel file at path,
// one z-slab at a time to bound memory, backing the "on-disk" build mode's
// intermediate representation (spec.md §6.3 "-mode 1" writes a temporary
// dense voxel file, then builds from it").
func WriteDenseFile(path string, w, h, d int, src BlockProducer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return svoerr.NewIoError(path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	header := make([]byte, denseFileHeaderBytes)
	binary.LittleEndian.PutUint32(header[0:4], uint32(w))
	binary.LittleEndian.PutUint32(header[4:8], uint32(h))
	binary.LittleEndian.PutUint32(header[8:12], uint32(d))
	if _, err := f.Write(header); err != nil {
		return svoerr.NewIoError(path, err)
	}

	slab := make([]uint32, w*h)
	raw := make([]byte, w*h*4)
	for z := 0; z < d; z++ {
		if err := src.ProcessBlock(slab, 0, 0, z, w, h, 1); err != nil {
			return err
		}
		for i, v := range slab {
			binary.LittleEndian.PutUint32(raw[i*4:i*4+4], v)
		}
		if _, err := f.Write(raw); err != nil {
			return svoerr.NewIoError(path, err)
		}
	}
	return nil
}

// DenseFileProducer implements BlockProducer by seeking into an on-disk
// dense voxel file, keeping only the requested block resident, the
// disk-backed counterpart to an in-memory mesh voxelizer.
type DenseFileProducer struct {
	f       *os.File
	path    string
	w, h, d int
}

// OpenDenseFile opens path and validates its W,H,D header.
func OpenDenseFile(path string) (*DenseFileProducer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, svoerr.NewIoError(path, err)
	}
	header := make([]byte, denseFileHeaderBytes)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, svoerr.NewCorruptOctree("dense voxel file %s: short header: %v", path, err)
	}
	return &DenseFileProducer{
		f:    f,
		path: path,
		w:    int(binary.LittleEndian.Uint32(header[0:4])),
		h:    int(binary.LittleEndian.Uint32(header[4:8])),
		d:    int(binary.LittleEndian.Uint32(header[8:12])),
	}, nil
}

// Dims reports the volume's width, height and depth.
func (p *DenseFileProducer) Dims() (w, h, d int) { return p.w, p.h, p.d }

// Close releases the underlying file handle.
func (p *DenseFileProducer) Close() error { return p.f.Close() }

func (p *DenseFileProducer) cellOffset(x, y, z int) int64 {
	return denseFileHeaderBytes + int64(x+y*p.w+z*p.w*p.h)*4
}

func (p *DenseFileProducer) readCell(x, y, z int) uint32 {
	if x < 0 || y < 0 || z < 0 || x >= p.w || y >= p.h || z >= p.d {
		return 0
	}
	var raw [4]byte
	if _, err := p.f.ReadAt(raw[:], p.cellOffset(x, y, z)); err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(raw[:])
}

// ProcessBlock fills dst with the [x,x+w)x[y,y+h)x[z,z+d) sub-volume,
// reading one row at a time via ReadAt.
func (p *DenseFileProducer) ProcessBlock(dst []uint32, x, y, z, w, h, d int) error {
	rowBuf := make([]byte, w*4)
	for lz := 0; lz < d; lz++ {
		for ly := 0; ly < h; ly++ {
			gx, gy, gz := x, y+ly, z+lz
			if gy < 0 || gy >= p.h || gz < 0 || gz >= p.d || x+w <= 0 || x >= p.w {
				for lx := 0; lx < w; lx++ {
					dst[lx+ly*w+lz*w*h] = 0
				}
				continue
			}
			lo := maxInt(gx, 0)
			hi := minInt(gx+w, p.w)
			if lo < hi {
				n, err := p.f.ReadAt(rowBuf[:(hi-lo)*4], p.cellOffset(lo, gy, gz))
				if err != nil && err != io.EOF {
					return svoerr.NewIoError(p.path, err)
				}
				_ = n
			}
			for lx := 0; lx < w; lx++ {
				gxLx := gx + lx
				if gxLx < lo || gxLx >= hi {
					dst[lx+ly*w+lz*w*h] = 0
					continue
				}
				off := (gxLx - lo) * 4
				dst[lx+ly*w+lz*w*h] = binary.LittleEndian.Uint32(rowBuf[off : off+4])
			}
		}
	}
	return nil
}

// IsBlockEmpty reports whether every cell in the given cube is zero.
func (p *DenseFileProducer) IsBlockEmpty(x, y, z, size int) bool {
	for lz := 0; lz < size; lz++ {
		for ly := 0; ly < size; ly++ {
			for lx := 0; lx < size; lx++ {
				if p.readCell(x+lx, y+ly, z+lz) != 0 {
					return false
				}
			}
		}
	}
	return true
}
