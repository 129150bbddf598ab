// Package fetch materializes the two artifacts of a release (the annotated
// sequence file and the accession mapping file) into a working directory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"imgtdb/internal/release"
)

// Artifacts are the local paths of a fetched release.
type Artifacts struct {
	Dat        string
	AlleleList string
}

// Paths lists both artifact paths, dat file first.
func (a Artifacts) Paths() []string { return []string{a.Dat, a.AlleleList} }

// Fetcher produces the artifacts of one release. Implementations do not retry.
type Fetcher interface {
	Fetch(ctx context.Context, rel release.Release) (Artifacts, error)
}

// ArtifactsIn returns where the artifacts of rel land inside workDir.
func ArtifactsIn(workDir string, rel release.Release) Artifacts {
	if workDir == "" {
		workDir = "."
	}
	return Artifacts{
		Dat:        filepath.Join(workDir, rel.DatFile()),
		AlleleList: filepath.Join(workDir, rel.AlleleListFile()),
	}
}

// writeFile streams r into path, creating or truncating it.
func writeFile(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create dirs: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}
