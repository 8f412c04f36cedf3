package ingest

import (
	"encoding/hex"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Encode builds the hex-encoded wire form of a BackgroundStaticMap from
// sensor-frame coordinate slices. It is the inverse of Load and exists for
// fixtures and tooling; all slices must be the same length.
func Encode(xs, ys, zs []float64) string {
	var points []byte
	points = protowire.AppendTag(points, fieldSize, protowire.VarintType)
	points = protowire.AppendVarint(points, uint64(len(xs)))
	points = appendPackedDoubles(points, fieldX, xs)
	points = appendPackedDoubles(points, fieldY, ys)
	points = appendPackedDoubles(points, fieldZ, zs)

	var msg []byte
	msg = protowire.AppendTag(msg, fieldPoints, protowire.BytesType)
	msg = protowire.AppendBytes(msg, points)
	return hex.EncodeToString(msg)
}

func appendPackedDoubles(dst []byte, num protowire.Number, vals []float64) []byte {
	if len(vals) == 0 {
		return dst
	}
	var packed []byte
	for _, v := range vals {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	dst = protowire.AppendTag(dst, num, protowire.BytesType)
	return protowire.AppendBytes(dst, packed)
}
