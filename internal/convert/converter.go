// Package convert turns flat LAS artifacts into browsable octree tilesets.
// The conversion step is modelled as an injected capability so the HTTP
// layer can run the real PotreeConverter binary in production and a mock in
// tests.
package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
)

// Converter produces a tiled octree from a LAS artifact. Implementations
// return the directory that now holds the tileset, which may differ from
// outDir if the tool nests its output.
type Converter interface {
	Convert(ctx context.Context, lasPath, outDir string) (string, error)
}

// Potree runs the external PotreeConverter binary.
type Potree struct {
	// Bin is the path to the PotreeConverter executable. Its directory is
	// prepended to LD_LIBRARY_PATH so the bundled shared objects resolve.
	Bin string
}

// Convert invokes PotreeConverter on lasPath, writing the octree under
// outDir, and then normalizes the generated metadata. Any existing outDir
// content is replaced.
func (p *Potree) Convert(ctx context.Context, lasPath, outDir string) (string, error) {
	info, err := os.Stat(p.Bin)
	if err != nil {
		return "", fmt.Errorf("converter binary %s: %w", p.Bin, err)
	}
	if info.Mode()&0111 == 0 {
		// Unpacked release archives often lose the execute bit.
		if err := os.Chmod(p.Bin, 0o755); err != nil {
			return "", fmt.Errorf("converter binary %s not executable: %w", p.Bin, err)
		}
	}

	if err := os.RemoveAll(outDir); err != nil {
		return "", fmt.Errorf("clear output dir %s: %w", outDir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", outDir, err)
	}

	cmd := exec.CommandContext(ctx, p.Bin,
		lasPath,
		"-o", outDir,
		"--generate-page", "no",
		"--output-format", "POTREE",
	)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("LD_LIBRARY_PATH=%s:%s", filepath.Dir(p.Bin), os.Getenv("LD_LIBRARY_PATH")))

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("PotreeConverter failed for %s: %w\noutput:\n%s", lasPath, err, out)
	}
	log.Printf("converted %s -> %s", lasPath, outDir)

	// PotreeConverter nests the cloud under pointclouds/<name> where <name>
	// comes from the --generate-page value.
	metaDir := filepath.Join(outDir, "pointclouds", "no")
	if err := FixMetadataEncoding(filepath.Join(metaDir, "metadata.json")); err != nil {
		return "", err
	}
	return outDir, nil
}

// FixMetadataEncoding rewrites a tileset metadata.json whose "encoding"
// field still carries the converter's "DEFAULT" marker to "BINARY", which is
// what the web viewer expects to load. Files already marked BINARY are left
// untouched.
func FixMetadataEncoding(metaPath string) error {
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", metaPath, err)
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return fmt.Errorf("parse %s: %w", metaPath, err)
	}
	if enc, _ := meta["encoding"].(string); enc != "DEFAULT" {
		return nil
	}
	meta["encoding"] = "BINARY"
	fixed, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("re-encode %s: %w", metaPath, err)
	}
	if err := os.WriteFile(metaPath, fixed, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", metaPath, err)
	}
	return nil
}
