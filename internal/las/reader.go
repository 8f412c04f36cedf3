package las

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/banshee-data/mapdiff/internal/cloud"
)

// File is a decoded LAS artifact.
type File struct {
	Count       int
	Scale       [3]float64
	Offset      [3]float64
	Points      cloud.PointSet
	Red         []uint16
	Green       []uint16
	Blue        []uint16
	VersionText string
}

// Read decodes a LAS or gzipped-LAS file written by this package (or any
// LAS 1.x format-3 file with standard record length).
func Read(path string) (*File, error) {
	kind, err := KindForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if kind == KindLASGz {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return decode(bufio.NewReader(r))
}

func decode(r io.Reader) (*File, error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrBadFormat, err)
	}
	if [4]byte(hdr[0:4]) != signature {
		return nil, fmt.Errorf("%w: missing LASF signature", ErrBadFormat)
	}
	if hdr[24] != 1 {
		return nil, fmt.Errorf("%w: unsupported LAS version %d.%d", ErrBadFormat, hdr[24], hdr[25])
	}
	if hdr[104] != pointFormat {
		return nil, fmt.Errorf("%w: point format %d, want %d", ErrBadFormat, hdr[104], pointFormat)
	}
	recLen := binary.LittleEndian.Uint16(hdr[105:107])
	if recLen != recordLen {
		return nil, fmt.Errorf("%w: record length %d, want %d", ErrBadFormat, recLen, recordLen)
	}
	count := int(binary.LittleEndian.Uint32(hdr[107:111]))
	dataOffset := int(binary.LittleEndian.Uint32(hdr[96:100]))
	if dataOffset < headerSize {
		return nil, fmt.Errorf("%w: point data offset %d inside header", ErrBadFormat, dataOffset)
	}
	// Skip any VLR bytes between the header and point data.
	if skip := dataOffset - headerSize; skip > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(skip)); err != nil {
			return nil, fmt.Errorf("%w: truncated before point data: %v", ErrBadFormat, err)
		}
	}

	getF64 := func(at int) float64 {
		return math.Float64frombits(binary.LittleEndian.Uint64(hdr[at : at+8]))
	}
	out := &File{
		Count:       count,
		Scale:       [3]float64{getF64(131), getF64(139), getF64(147)},
		Offset:      [3]float64{getF64(155), getF64(163), getF64(171)},
		Points:      make(cloud.PointSet, 0, count),
		Red:         make([]uint16, 0, count),
		Green:       make([]uint16, 0, count),
		Blue:        make([]uint16, 0, count),
		VersionText: fmt.Sprintf("1.%d", hdr[25]),
	}

	rec := make([]byte, recLen)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, rec); err != nil {
			return nil, fmt.Errorf("%w: truncated at record %d: %v", ErrBadFormat, i, err)
		}
		out.Points = append(out.Points, cloud.Point{
			X: float64(int32(binary.LittleEndian.Uint32(rec[0:4])))*out.Scale[0] + out.Offset[0],
			Y: float64(int32(binary.LittleEndian.Uint32(rec[4:8])))*out.Scale[1] + out.Offset[1],
			Z: float64(int32(binary.LittleEndian.Uint32(rec[8:12])))*out.Scale[2] + out.Offset[2],
		})
		out.Red = append(out.Red, binary.LittleEndian.Uint16(rec[28:30]))
		out.Green = append(out.Green, binary.LittleEndian.Uint16(rec[30:32]))
		out.Blue = append(out.Blue, binary.LittleEndian.Uint16(rec[32:34]))
	}
	return out, nil
}
