package diff

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/banshee-data/mapdiff/internal/cloud"
	"github.com/banshee-data/mapdiff/internal/las"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return &Pipeline{
		OutDir:  t.TempDir(),
		Epsilon: 0.5,
		Colors:  DefaultColors(),
	}
}

func TestRunNearbyCloudsAllMatched(t *testing.T) {
	// Scenario: two clouds within tolerance of each other.
	p := newTestPipeline(t)
	sum, err := p.Run(
		cloud.PointSet{{X: 0, Y: 0, Z: 0}},
		cloud.PointSet{{X: 0, Y: 0, Z: 0.1}},
	)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum.Base.Count != 1 || sum.Gen.Count != 1 {
		t.Errorf("matched counts = %d/%d, want 1/1", sum.Base.Count, sum.Gen.Count)
	}
	if sum.ExtraBase.Count != 0 || sum.ExtraGen.Count != 0 {
		t.Errorf("extra counts = %d/%d, want 0/0", sum.ExtraBase.Count, sum.ExtraGen.Count)
	}
	if sum.ExtraGenPercent != 0 {
		t.Errorf("ExtraGenPercent = %v, want 0", sum.ExtraGenPercent)
	}
}

func TestRunDisjointCloudsAllExtra(t *testing.T) {
	// Scenario: clouds far apart; everything is extra and the percentage
	// is 100 of base.
	p := newTestPipeline(t)
	sum, err := p.Run(
		cloud.PointSet{{X: 0, Y: 0, Z: 0}},
		cloud.PointSet{{X: 10, Y: 0, Z: 0}},
	)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum.ExtraGenCount != 1 {
		t.Errorf("ExtraGenCount = %d, want 1", sum.ExtraGenCount)
	}
	if sum.ExtraGenPercent != 100 {
		t.Errorf("ExtraGenPercent = %v, want 100", sum.ExtraGenPercent)
	}
	if sum.ExtraBase.Count != 1 {
		t.Errorf("ExtraBase.Count = %d, want 1", sum.ExtraBase.Count)
	}

	// The extra-in-gen artifact decodes back to the gen point in blue.
	f, err := las.Read(sum.ExtraGen.Path)
	if err != nil {
		t.Fatalf("Read(%s) error: %v", sum.ExtraGen.Path, err)
	}
	if f.Count != 1 {
		t.Fatalf("artifact count = %d, want 1", f.Count)
	}
	if f.Red[0] != 0 || f.Green[0] != 0 || f.Blue[0] != 65535 {
		t.Errorf("extra_gen color = (%d,%d,%d), want (0,0,65535)", f.Red[0], f.Green[0], f.Blue[0])
	}
}

func TestRunEmptyBaseDefinedPercent(t *testing.T) {
	// Scenario: empty base. The percentage is defined as 0, not a division
	// failure.
	p := newTestPipeline(t)
	sum, err := p.Run(nil, cloud.PointSet{{X: 1, Y: 1, Z: 1}})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum.ExtraGenCount != 1 {
		t.Errorf("ExtraGenCount = %d, want 1", sum.ExtraGenCount)
	}
	if sum.ExtraGenPercent != 0 {
		t.Errorf("ExtraGenPercent = %v, want 0", sum.ExtraGenPercent)
	}
}

func TestRunWritesFourValidArtifacts(t *testing.T) {
	p := newTestPipeline(t)
	sum, err := p.Run(
		cloud.PointSet{{X: 0, Y: 0, Z: 0}, {X: 30, Y: 0, Z: 0}},
		cloud.PointSet{{X: 0, Y: 0, Z: 0.2}},
	)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	arts := map[string]*las.Artifact{
		NameBase:      sum.Base,
		NameGen:       sum.Gen,
		NameExtraBase: sum.ExtraBase,
		NameExtraGen:  sum.ExtraGen,
	}
	for name, art := range arts {
		want := filepath.Join(p.OutDir, name+".las")
		if art.Path != want {
			t.Errorf("%s path = %s, want %s", name, art.Path, want)
		}
		f, err := las.Read(art.Path)
		if err != nil {
			t.Errorf("Read(%s) error: %v", art.Path, err)
			continue
		}
		if f.Count != art.Count {
			t.Errorf("%s decoded count = %d, artifact count = %d", name, f.Count, art.Count)
		}
	}

	// extra_gen is empty here: still a well-formed artifact, white tagged.
	if sum.ExtraGen.Count != 0 {
		t.Fatalf("ExtraGen.Count = %d, want 0", sum.ExtraGen.Count)
	}
}

func TestRunCompressedArtifacts(t *testing.T) {
	p := newTestPipeline(t)
	p.Compress = true
	sum, err := p.Run(cloud.PointSet{{X: 1, Y: 2, Z: 3}}, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if filepath.Ext(sum.Base.Path) != ".gz" {
		t.Errorf("compressed artifact path = %s, want .las.gz", sum.Base.Path)
	}
	if _, err := las.Read(sum.ExtraBase.Path); err != nil {
		t.Errorf("Read(compressed) error: %v", err)
	}
}

func TestRunStageErrors(t *testing.T) {
	t.Run("classify failure carries stage", func(t *testing.T) {
		p := newTestPipeline(t)
		p.Epsilon = -1
		_, err := p.Run(nil, nil)
		var stageErr *StageError
		if !errors.As(err, &stageErr) || stageErr.Stage != "classify" {
			t.Fatalf("Run() error = %v, want classify StageError", err)
		}
		if !errors.Is(err, ErrInvalidTolerance) {
			t.Errorf("Run() error = %v, want wrapped ErrInvalidTolerance", err)
		}
	})

	t.Run("encode failure carries stage", func(t *testing.T) {
		p := newTestPipeline(t)
		p.OutDir = filepath.Join(p.OutDir, "missing", "dir")
		_, err := p.Run(cloud.PointSet{{X: 1}}, nil)
		var stageErr *StageError
		if !errors.As(err, &stageErr) {
			t.Fatalf("Run() error = %v, want StageError", err)
		}
		if stageErr.Stage != "encode base" {
			t.Errorf("Stage = %q, want %q", stageErr.Stage, "encode base")
		}
	})
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{33.333333, 33.33},
		{66.666666, 66.67},
		{100, 100},
		{0, 0},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
