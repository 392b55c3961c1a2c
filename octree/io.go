package octree

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/tunabrain/sparse-voxel-octrees/svoerr"
)

const compressionBlockBytes = 64 * 1024 * 1024

// Save writes o to path in the wire format described by spec.md §6:
// center (3x f32), a u64 descriptor-word count, then one or more
// LZ4-compressed blocks (each preceded by its compressed length) covering
// up to 64 MiB of uncompressed descriptor bytes apiece. The LZ4 writer is
// reset for every block, so each block is an independent LZ4 frame; blocks
// share no dictionary and later blocks do not reference earlier ones.
func (o *Octree) Save(path string) (err error) {
	f, ferr := os.Create(path)
	if ferr != nil {
		return svoerr.NewIoError(path, ferr)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = svoerr.NewIoError(path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, float32(o.Center.X)); err != nil {
		return svoerr.NewIoError(path, err)
	}
	if err := binary.Write(w, binary.LittleEndian, float32(o.Center.Y)); err != nil {
		return svoerr.NewIoError(path, err)
	}
	if err := binary.Write(w, binary.LittleEndian, float32(o.Center.Z)); err != nil {
		return svoerr.NewIoError(path, err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(o.Descriptor))); err != nil {
		return svoerr.NewIoError(path, err)
	}

	raw := make([]byte, len(o.Descriptor)*4)
	for i, word := range o.Descriptor {
		binary.LittleEndian.PutUint32(raw[i*4:], word)
	}

	lzw := lz4.NewWriter(nil)
	if err := lzw.Apply(lz4.CompressionLevelOption(lz4.Level5)); err != nil {
		return svoerr.NewIoError(path, err)
	}

	for off := 0; off < len(raw); off += compressionBlockBytes {
		end := off + compressionBlockBytes
		if end > len(raw) {
			end = len(raw)
		}
		chunk := raw[off:end]

		var buf countingBuffer
		lzw.Reset(&buf)
		if _, err := lzw.Write(chunk); err != nil {
			return svoerr.NewIoError(path, err)
		}
		if err := lzw.Close(); err != nil {
			return svoerr.NewIoError(path, err)
		}
		compressed := buf.data

		if err := binary.Write(w, binary.LittleEndian, uint64(len(compressed))); err != nil {
			return svoerr.NewIoError(path, err)
		}
		if _, err := w.Write(compressed); err != nil {
			return svoerr.NewIoError(path, err)
		}
	}

	if err := w.Flush(); err != nil {
		return svoerr.NewIoError(path, err)
	}
	return nil
}

// countingBuffer is a minimal io.Writer sink used to size and capture the
// lz4.Writer's compressed output for one block.
type countingBuffer struct{ data []byte }

func (b *countingBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// Load reads an octree file written by Save.
func Load(path string) (*Octree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, svoerr.NewIoError(path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var cx, cy, cz float32
	if err := binary.Read(r, binary.LittleEndian, &cx); err != nil {
		return nil, svoerr.NewIoError(path, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &cy); err != nil {
		return nil, svoerr.NewIoError(path, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &cz); err != nil {
		return nil, svoerr.NewIoError(path, err)
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, svoerr.NewIoError(path, err)
	}

	totalBytes := count * 4
	raw := make([]byte, 0, totalBytes)

	lzr := lz4.NewReader(nil)
	for uint64(len(raw)) < totalBytes {
		var compSize uint64
		if err := binary.Read(r, binary.LittleEndian, &compSize); err != nil {
			return nil, svoerr.NewCorruptOctree("truncated block header: %v", err)
		}
		compressed := make([]byte, compSize)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, svoerr.NewCorruptOctree("truncated block body: %v", err)
		}

		lzr.Reset(newByteReader(compressed))
		block, err := io.ReadAll(lzr)
		if err != nil {
			return nil, svoerr.NewCorruptOctree("lz4 decode failed: %v", err)
		}
		raw = append(raw, block...)
	}

	if uint64(len(raw)) != totalBytes {
		return nil, svoerr.NewCorruptOctree("declared count %d does not match decompressed size %d", count, len(raw))
	}

	descriptors := make([]uint32, count)
	for i := range descriptors {
		descriptors[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}

	return &Octree{
		Center:     centerVector(cx, cy, cz),
		Descriptor: descriptors,
	}, nil
}
