// Command mapdiff diffs two background static map files offline and writes
// the four classified subsets as LAS artifacts, without the HTTP server or
// run registry.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/mapdiff/internal/cloud"
	"github.com/banshee-data/mapdiff/internal/diff"
	"github.com/banshee-data/mapdiff/internal/ingest"
)

var (
	basePath = flag.String("base", "", "Path to the base static map (.pcd, hex-encoded)")
	genPath  = flag.String("gen", "", "Path to the generated static map (.pcd, hex-encoded)")
	outDir   = flag.String("out", ".", "Output directory for the four LAS artifacts")
	epsilon  = flag.Float64("epsilon", diff.DefaultEpsilon, "Match tolerance in map units")
	compress = flag.Bool("gzip", false, "Write gzip-compressed artifacts (.las.gz)")
)

func main() {
	flag.Parse()

	if *basePath == "" || *genPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	base := mustLoad(*basePath)
	gen := mustLoad(*genPath)
	log.Printf("loaded base=%d points, gen=%d points", len(base), len(gen))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	pipeline := &diff.Pipeline{
		OutDir:   *outDir,
		Epsilon:  *epsilon,
		Colors:   diff.DefaultColors(),
		Compress: *compress,
	}
	sum, err := pipeline.Run(base, gen)
	if err != nil {
		log.Fatalf("diff failed: %v", err)
	}

	fmt.Printf("base matched:   %8d -> %s\n", sum.Base.Count, sum.Base.Path)
	fmt.Printf("gen matched:    %8d -> %s\n", sum.Gen.Count, sum.Gen.Path)
	fmt.Printf("extra in base:  %8d -> %s\n", sum.ExtraBase.Count, sum.ExtraBase.Path)
	fmt.Printf("extra in gen:   %8d -> %s\n", sum.ExtraGen.Count, sum.ExtraGen.Path)
	fmt.Printf("extra_gen is %.2f%% of base\n", sum.ExtraGenPercent)
}

func mustLoad(path string) cloud.PointSet {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	pts, err := ingest.Load(f)
	if err != nil {
		log.Fatalf("failed to parse %s: %v", path, err)
	}
	return pts
}
