// Command las-info prints a summary of a LAS artifact: header fields,
// quantization parameters and the first few decoded points.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/mapdiff/internal/las"
)

var preview = flag.Int("n", 5, "Number of points to preview")

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: las-info [-n points] <file.las|file.las.gz>\n")
		os.Exit(2)
	}

	f, err := las.Read(flag.Arg(0))
	if err != nil {
		log.Fatalf("failed to read %s: %v", flag.Arg(0), err)
	}

	fmt.Printf("version:  LAS %s (point format 3)\n", f.VersionText)
	fmt.Printf("points:   %d\n", f.Count)
	fmt.Printf("scale:    %v\n", f.Scale)
	fmt.Printf("offset:   %v\n", f.Offset)
	if f.Count > 0 {
		fmt.Printf("color:    rgb16(%d, %d, %d)\n", f.Red[0], f.Green[0], f.Blue[0])
	}
	for i, p := range f.Points {
		if i >= *preview {
			fmt.Printf("... %d more\n", f.Count-*preview)
			break
		}
		fmt.Printf("  [%d] %.3f %.3f %.3f\n", i, p.X, p.Y, p.Z)
	}
}
