// internal/runner/artifacts.go
package runner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/valpere/UIVerifier/internal/errors"
	"github.com/valpere/UIVerifier/internal/scenario"
	"github.com/valpere/UIVerifier/internal/utils"
)

// resolveArtifactPath prefixes relative artifact paths with the
// configured artifact directory.
func resolveArtifactPath(sc *scenario.Scenario, path string) string {
	if sc.Artifacts == nil || sc.Artifacts.Dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(sc.Artifacts.Dir, path)
}

// writeArtifact persists captured bytes under the scenario's artifact
// rules. The parent directory must already exist unless create_dirs is
// set, and an empty capture is treated as a failed one. Returns the
// resolved destination path.
func (e *Engine) writeArtifact(sc *scenario.Scenario, path string, data []byte) (string, error) {
	if path == "" {
		return "", errors.NewArtifactError(path, fmt.Errorf("no destination path configured"))
	}

	resolved := resolveArtifactPath(sc, path)

	if len(data) == 0 {
		return resolved, errors.NewArtifactError(resolved, fmt.Errorf("capture produced no data"))
	}

	dir := filepath.Dir(resolved)
	if sc.Artifacts != nil && sc.Artifacts.CreateDirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return resolved, errors.NewArtifactError(resolved, err)
		}
	} else if info, err := os.Stat(dir); err != nil {
		return resolved, errors.NewArtifactError(resolved, fmt.Errorf("output directory %s: %w", dir, err))
	} else if !info.IsDir() {
		return resolved, errors.NewArtifactError(resolved, fmt.Errorf("output path %s is not a directory", dir))
	}

	if !sc.Artifacts.ShouldOverwrite() {
		if _, err := os.Stat(resolved); err == nil {
			return resolved, errors.NewArtifactError(resolved,
				fmt.Errorf("artifact exists and overwrite is disabled"))
		}
	}

	if err := os.WriteFile(resolved, data, 0644); err != nil {
		return resolved, errors.NewArtifactError(resolved, err)
	}

	e.metrics.RecordArtifact(int64(len(data)))
	e.logger.Infof("wrote artifact %s (%d bytes, sha256 %s)",
		resolved, len(data), utils.HashBytes(data)[:12])
	return resolved, nil
}
