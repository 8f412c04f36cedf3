package diff

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/banshee-data/mapdiff/internal/cloud"
	"github.com/banshee-data/mapdiff/internal/las"
)

// DefaultEpsilon is the match tolerance in input units (meters for the
// ingestion system's maps). Tune per point-cloud density.
const DefaultEpsilon = 0.5

// Colors assigns one uniform color per output subset.
type Colors struct {
	BaseMatched las.Color
	GenMatched  las.Color
	ExtraInBase las.Color
	ExtraInGen  las.Color
}

// DefaultColors returns the viewer convention: matched base points light
// grey, matched gen points darker grey, extra-in-base red, extra-in-gen
// blue. Empty subsets are always written white regardless of these.
func DefaultColors() Colors {
	return Colors{
		BaseMatched: las.Color{R: 0.7, G: 0.7, B: 0.7},
		GenMatched:  las.Color{R: 0.5, G: 0.5, B: 0.5},
		ExtraInBase: las.Color{R: 1, G: 0, B: 0},
		ExtraInGen:  las.Color{R: 0, G: 0, B: 1},
	}
}

// Subset names, also used as artifact base filenames. The encode order is
// fixed: base, gen, extra_base, extra_gen.
const (
	NameBase      = "base"
	NameGen       = "gen"
	NameExtraBase = "extra_base"
	NameExtraGen  = "extra_gen"
)

// Pipeline runs classification and artifact encoding for one pair of clouds.
// A Pipeline value is cheap and may be used concurrently as long as each Run
// call gets a distinct OutDir; the caller owns namespace uniqueness.
type Pipeline struct {
	// OutDir is the destination directory for the four artifacts. It must
	// exist and must not be shared with a concurrent run.
	OutDir string
	// Epsilon is the match tolerance. Zero means only exact coincidence
	// matches; negative or non-finite values fail the run.
	Epsilon float64
	// Colors per subset; zero value means all-black, so callers normally
	// start from DefaultColors.
	Colors Colors
	// Compress selects the gzipped artifact kind (.las.gz) instead of .las.
	Compress bool
}

// Summary reports one completed run.
type Summary struct {
	Result *Result

	// Artifacts in fixed order: base, gen, extra_base, extra_gen.
	Base      *las.Artifact
	Gen       *las.Artifact
	ExtraBase *las.Artifact
	ExtraGen  *las.Artifact

	ExtraGenCount int
	// ExtraGenPercent is extra-in-gen as a percentage of the base size,
	// rounded to two decimals, and 0 when base is empty.
	ExtraGenPercent float64
}

// Run classifies base against gen and writes the four subset artifacts.
// Every subset is written, including empty ones (as valid zero-record
// files), so downstream consumers always see four well-formed artifacts.
// Any stage failure aborts the run with a StageError; inputs are never
// mutated and no stage is retried.
func (p *Pipeline) Run(base, gen cloud.PointSet) (*Summary, error) {
	res, err := Classify(base, gen, p.Epsilon)
	if err != nil {
		return nil, &StageError{Stage: "classify", Err: err}
	}

	sum := &Summary{Result: res, ExtraGenCount: len(res.ExtraInGen)}
	steps := []struct {
		name  string
		pts   cloud.PointSet
		color las.Color
		dst   **las.Artifact
	}{
		{NameBase, res.BaseMatched, p.Colors.BaseMatched, &sum.Base},
		{NameGen, res.GenMatched, p.Colors.GenMatched, &sum.Gen},
		{NameExtraBase, res.ExtraInBase, p.Colors.ExtraInBase, &sum.ExtraBase},
		{NameExtraGen, res.ExtraInGen, p.Colors.ExtraInGen, &sum.ExtraGen},
	}
	for _, st := range steps {
		color := st.color
		if len(st.pts) == 0 {
			color = las.White
		}
		art, err := las.Write(p.artifactPath(st.name), st.pts, color)
		if err != nil {
			return nil, &StageError{Stage: fmt.Sprintf("encode %s", st.name), Err: err}
		}
		*st.dst = art
	}

	if len(base) > 0 {
		sum.ExtraGenPercent = round2(100 * float64(sum.ExtraGenCount) / float64(len(base)))
	}
	return sum, nil
}

func (p *Pipeline) artifactPath(name string) string {
	ext := ".las"
	if p.Compress {
		ext = ".las.gz"
	}
	return filepath.Join(p.OutDir, name+ext)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
