// Package las writes and reads LAS 1.2 point-cloud files using point data
// record format 3 (XYZ + intensity + GPS time + 16-bit RGB). Two output
// kinds are supported: plain ".las" and gzip-compressed ".las.gz". The
// gzip variant is a container convenience for archival; the payload is the
// same LAS byte stream.
package las

import (
	"errors"
	"fmt"
	"strings"
)

const (
	headerSize  = 227
	pointFormat = 3
	recordLen   = 34

	// DefaultScale is the quantization step per axis, in input units.
	// Decoded coordinates are within DefaultScale/2 of the originals.
	DefaultScale = 0.01
)

var signature = [4]byte{'L', 'A', 'S', 'F'}

// ErrBadFormat is returned when an output path does not name one of the two
// supported kinds, or when a read file is not a LAS stream this package
// understands.
var ErrBadFormat = errors.New("unsupported las format")

// Kind identifies one of the two supported artifact encodings.
type Kind int

const (
	KindLAS Kind = iota
	KindLASGz
)

// KindForPath derives the artifact kind from a destination path. Only ".las"
// and ".las.gz" are valid; anything else is rejected with ErrBadFormat.
func KindForPath(path string) (Kind, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".las.gz"):
		return KindLASGz, nil
	case strings.HasSuffix(lower, ".las"):
		return KindLAS, nil
	default:
		return 0, fmt.Errorf("%w: %q must end in .las or .las.gz", ErrBadFormat, path)
	}
}

// Artifact describes one written point-cloud file. It is never mutated after
// creation.
type Artifact struct {
	Path  string
	Count int
}

// Color is a uniform RGB tag applied to every point of one artifact.
// Channels are normalized to [0, 1]; values outside are clamped at encode
// time.
type Color struct {
	R, G, B float64
}

// RGB16 maps the color to LAS 16-bit channels: clamp to [0,1], scale by
// 65535 and truncate.
func (c Color) RGB16() (r, g, b uint16) {
	return channel16(c.R), channel16(c.G), channel16(c.B)
}

func channel16(v float64) uint16 {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return uint16(v * 65535)
}

// White is the color written for empty subsets, matching the map-diff
// convention of white placeholder artifacts.
var White = Color{R: 1, G: 1, B: 1}
