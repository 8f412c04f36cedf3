package las

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/banshee-data/mapdiff/internal/cloud"
)

const generatingSoftware = "mapdiff"

// Write encodes pts as a LAS file at path with a uniform color. The kind
// (plain or gzip) is chosen by the path suffix and always honored. An empty
// set is a first-class case: the file still carries a valid header with a
// zero record count. The returned artifact reports the count actually
// written.
//
// Write does not replace atomically; a file left behind by a failed call is
// invalid and must be discarded by the caller.
func Write(path string, pts cloud.PointSet, c Color) (*Artifact, error) {
	kind, err := KindForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if kind == KindLASGz {
		gz = gzip.NewWriter(f)
		w = gz
	}
	bw := bufio.NewWriter(w)

	if err := encode(bw, pts, c); err != nil {
		f.Close()
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			f.Close()
			return nil, fmt.Errorf("compress %s: %w", path, err)
		}
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", path, err)
	}
	return &Artifact{Path: path, Count: len(pts)}, nil
}

// encode writes the LAS 1.2 header and point records to w.
func encode(w io.Writer, pts cloud.PointSet, c Color) error {
	min, max := pts.Bounds()
	// Offsets anchor quantization at the set minimum so int32 storage holds
	// any coordinate within ~21 million units of the cloud's own extent.
	off := min

	hdr := make([]byte, headerSize)
	copy(hdr[0:4], signature[:])
	// File source ID and global encoding stay zero.
	hdr[24] = 1 // version major
	hdr[25] = 2 // version minor
	copy(hdr[58:90], generatingSoftware)
	now := time.Now().UTC()
	binary.LittleEndian.PutUint16(hdr[90:92], uint16(now.YearDay()))
	binary.LittleEndian.PutUint16(hdr[92:94], uint16(now.Year()))
	binary.LittleEndian.PutUint16(hdr[94:96], headerSize)
	binary.LittleEndian.PutUint32(hdr[96:100], headerSize) // offset to point data
	// Number of VLRs stays zero.
	hdr[104] = pointFormat
	binary.LittleEndian.PutUint16(hdr[105:107], recordLen)
	binary.LittleEndian.PutUint32(hdr[107:111], uint32(len(pts)))
	// All points are nominally first-return.
	binary.LittleEndian.PutUint32(hdr[111:115], uint32(len(pts)))

	putF64 := func(at int, v float64) {
		binary.LittleEndian.PutUint64(hdr[at:at+8], math.Float64bits(v))
	}
	putF64(131, DefaultScale) // x scale
	putF64(139, DefaultScale) // y scale
	putF64(147, DefaultScale) // z scale
	putF64(155, off.X)
	putF64(163, off.Y)
	putF64(171, off.Z)
	putF64(179, max.X)
	putF64(187, min.X)
	putF64(195, max.Y)
	putF64(203, min.Y)
	putF64(211, max.Z)
	putF64(219, min.Z)

	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	r16, g16, b16 := c.RGB16()
	rec := make([]byte, recordLen)
	for i, p := range pts {
		binary.LittleEndian.PutUint32(rec[0:4], uint32(quantize(p.X, off.X)))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(quantize(p.Y, off.Y)))
		binary.LittleEndian.PutUint32(rec[8:12], uint32(quantize(p.Z, off.Z)))
		// Intensity, flags, classification, scan angle, user data, point
		// source and GPS time all stay zero.
		for j := 12; j < 28; j++ {
			rec[j] = 0
		}
		binary.LittleEndian.PutUint16(rec[28:30], r16)
		binary.LittleEndian.PutUint16(rec[30:32], g16)
		binary.LittleEndian.PutUint16(rec[32:34], b16)
		if _, err := w.Write(rec); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return nil
}

// quantize maps a coordinate to its int32 storage value using the declared
// scale and offset.
func quantize(v, offset float64) int32 {
	return int32(math.Round((v - offset) / DefaultScale))
}
