// Package security validates filesystem paths handed to the artifact layer,
// keeping every write inside the configured artifacts root.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateWithinRoot checks that path, once cleaned and made absolute,
// stays inside root. It guards the per-run artifact namespaces against
// traversal via crafted run identifiers or filenames.
func ValidateWithinRoot(path, root string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absRoot, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return fmt.Errorf("path %q escapes artifacts root %q", path, root)
	}
	return nil
}

// ValidateArtifactName accepts bare filenames for the two artifact kinds the
// encoder produces. Directory components are rejected outright.
func ValidateArtifactName(name string) error {
	if name == "" {
		return fmt.Errorf("empty artifact name")
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("artifact name %q must not contain path separators", name)
	}
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".las") && !strings.HasSuffix(lower, ".las.gz") {
		return fmt.Errorf("artifact name %q must end in .las or .las.gz", name)
	}
	return nil
}
