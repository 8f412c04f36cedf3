// Package ingest decodes uploaded background static map files into core
// point sets. The wire format is a hex-encoded protobuf BackgroundStaticMap
// message; coordinates are reordered into the viewer frame at this boundary
// so the diff engine only ever sees one axis convention.
package ingest

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/banshee-data/mapdiff/internal/cloud"
)

// BackgroundStaticMap field numbers:
//
//	message BackgroundStaticMap {
//	  BackgroundStaticPoints points = 1;
//	}
//	message BackgroundStaticPoints {
//	  uint32 size = 1;
//	  repeated double x = 2;
//	  repeated double y = 3;
//	  repeated double z = 4;
//	}
const (
	fieldPoints = 1

	fieldSize = 1
	fieldX    = 2
	fieldY    = 3
	fieldZ    = 4
)

// ErrBadMap is returned for inputs that do not decode to a consistent
// static map: broken hex, malformed wire data, or mismatched axis lengths.
var ErrBadMap = errors.New("malformed static map")

// Load reads a hex-encoded BackgroundStaticMap and returns its points in the
// viewer frame.
func Load(r io.Reader) (cloud.PointSet, error) {
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read static map: %w", err)
	}
	raw, err := hex.DecodeString(string(bytes.TrimSpace(text)))
	if err != nil {
		return nil, fmt.Errorf("%w: hex decode: %v", ErrBadMap, err)
	}
	return Parse(raw)
}

// Parse decodes the protobuf payload of a BackgroundStaticMap and applies
// the viewer-frame transform to every point.
func Parse(raw []byte) (cloud.PointSet, error) {
	xs, ys, zs, declared, err := parseMap(raw)
	if err != nil {
		return nil, err
	}
	if len(xs) != len(ys) || len(xs) != len(zs) {
		return nil, fmt.Errorf("%w: axis lengths differ (x=%d y=%d z=%d)", ErrBadMap, len(xs), len(ys), len(zs))
	}
	if declared >= 0 && declared != len(xs) {
		return nil, fmt.Errorf("%w: declared size %d, found %d points", ErrBadMap, declared, len(xs))
	}
	pts := make(cloud.PointSet, len(xs))
	for i := range xs {
		pts[i] = ViewerFrame(xs[i], ys[i], zs[i])
	}
	return pts, nil
}

// ViewerFrame maps a sensor-frame coordinate triple (x, y, z) to the viewer
// convention (z, -y, x) used by every downstream artifact. This is the only
// place the axis convention is applied.
func ViewerFrame(x, y, z float64) cloud.Point {
	return cloud.Point{X: z, Y: -y, Z: x}
}

func parseMap(raw []byte) (xs, ys, zs []float64, declared int, err error) {
	declared = -1
	b := raw
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, nil, nil, 0, fmt.Errorf("%w: %v", ErrBadMap, protowire.ParseError(n))
		}
		b = b[n:]
		if num == fieldPoints && typ == protowire.BytesType {
			msg, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, nil, nil, 0, fmt.Errorf("%w: %v", ErrBadMap, protowire.ParseError(n))
			}
			b = b[n:]
			if xs, ys, zs, declared, err = parsePoints(msg); err != nil {
				return nil, nil, nil, 0, err
			}
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, nil, nil, 0, fmt.Errorf("%w: %v", ErrBadMap, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return xs, ys, zs, declared, nil
}

func parsePoints(msg []byte) (xs, ys, zs []float64, declared int, err error) {
	declared = -1
	b := msg
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, nil, nil, 0, fmt.Errorf("%w: %v", ErrBadMap, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldSize && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, nil, nil, 0, fmt.Errorf("%w: %v", ErrBadMap, protowire.ParseError(n))
			}
			b = b[n:]
			declared = int(v)
		case num >= fieldX && num <= fieldZ && typ == protowire.BytesType:
			// Packed repeated doubles.
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, nil, nil, 0, fmt.Errorf("%w: %v", ErrBadMap, protowire.ParseError(n))
			}
			b = b[n:]
			vals, err := consumePacked(packed)
			if err != nil {
				return nil, nil, nil, 0, err
			}
			switch num {
			case fieldX:
				xs = append(xs, vals...)
			case fieldY:
				ys = append(ys, vals...)
			case fieldZ:
				zs = append(zs, vals...)
			}
		case num >= fieldX && num <= fieldZ && typ == protowire.Fixed64Type:
			// Unpacked encoding is legal for repeated doubles too.
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, nil, nil, 0, fmt.Errorf("%w: %v", ErrBadMap, protowire.ParseError(n))
			}
			b = b[n:]
			f := math.Float64frombits(v)
			switch num {
			case fieldX:
				xs = append(xs, f)
			case fieldY:
				ys = append(ys, f)
			case fieldZ:
				zs = append(zs, f)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, nil, nil, 0, fmt.Errorf("%w: %v", ErrBadMap, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return xs, ys, zs, declared, nil
}

func consumePacked(packed []byte) ([]float64, error) {
	if len(packed)%8 != 0 {
		return nil, fmt.Errorf("%w: packed doubles length %d not a multiple of 8", ErrBadMap, len(packed))
	}
	vals := make([]float64, 0, len(packed)/8)
	for len(packed) > 0 {
		v, n := protowire.ConsumeFixed64(packed)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrBadMap, protowire.ParseError(n))
		}
		packed = packed[n:]
		vals = append(vals, math.Float64frombits(v))
	}
	return vals, nil
}
