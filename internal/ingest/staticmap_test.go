package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/mapdiff/internal/cloud"
)

func TestLoadRoundTrip(t *testing.T) {
	xs := []float64{1, 4}
	ys := []float64{2, 5}
	zs := []float64{3, 6}

	pts, err := Load(strings.NewReader(Encode(xs, ys, zs)))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Sensor (x, y, z) becomes viewer (z, -y, x).
	want := cloud.PointSet{
		{X: 3, Y: -2, Z: 1},
		{X: 6, Y: -5, Z: 4},
	}
	if diff := cmp.Diff(want, pts); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEmptyMap(t *testing.T) {
	pts, err := Load(strings.NewReader(Encode(nil, nil, nil)))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(pts) != 0 {
		t.Errorf("Load() = %d points, want 0", len(pts))
	}
}

func TestLoadTrimsWhitespace(t *testing.T) {
	encoded := "  " + Encode([]float64{1}, []float64{2}, []float64{3}) + "\n"
	pts, err := Load(strings.NewReader(encoded))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(pts) != 1 {
		t.Errorf("Load() = %d points, want 1", len(pts))
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not hex", "zzzz"},
		{"odd-length hex", "abc"},
		{"hex but not protobuf", "ffffffffffffffff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			if !errors.Is(err, ErrBadMap) {
				t.Errorf("Load(%q) error = %v, want ErrBadMap", tt.input, err)
			}
		})
	}
}

func TestParseRejectsMismatchedAxes(t *testing.T) {
	// y carries one fewer value than x and z.
	encoded := Encode([]float64{1, 2}, []float64{9}, []float64{3, 4})
	// Encode writes size=len(xs); strip the hex wrapper and parse directly
	// so the axis check fires before the size check.
	_, err := Load(strings.NewReader(encoded))
	if !errors.Is(err, ErrBadMap) {
		t.Errorf("Load() error = %v, want ErrBadMap", err)
	}
}

func TestParseRejectsSizeMismatch(t *testing.T) {
	// Hand-assemble a map whose declared size disagrees with the data.
	encoded := Encode([]float64{1}, []float64{1}, []float64{1})
	tampered := strings.Replace(encoded, "0801", "0805", 1) // size 1 -> 5
	_, err := Load(strings.NewReader(tampered))
	if !errors.Is(err, ErrBadMap) {
		t.Errorf("Load() error = %v, want ErrBadMap", err)
	}
}

func TestViewerFrame(t *testing.T) {
	got := ViewerFrame(1, 2, 3)
	want := cloud.Point{X: 3, Y: -2, Z: 1}
	if got != want {
		t.Errorf("ViewerFrame(1,2,3) = %v, want %v", got, want)
	}
}
