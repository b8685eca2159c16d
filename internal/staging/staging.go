// Package staging manages the local working directories that hold raw and
// processed videos while a job runs, and derives the per-job file paths
// inside them.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProcessedPrefix is prepended to a source identifier to form the name of the
// transcoded object.
const ProcessedPrefix = "processed-"

// Dirs holds the two process-wide staging directories.
type Dirs struct {
	// Raw receives downloaded source videos (e.g. "./raw-videos").
	Raw string
	// Processed receives transcoder output (e.g. "./processed-videos").
	Processed string
}

// Paths are the names and local locations owned by a single job.
type Paths struct {
	Source    string
	Target    string
	Raw       string
	Processed string
}

// EnsureDirectory creates path and any missing parents. It is a no-op when
// the directory already exists and is safe to call concurrently.
func EnsureDirectory(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("staging directory path is empty")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// Setup ensures both staging directories exist.
func (d Dirs) Setup() error {
	if err := EnsureDirectory(d.Raw); err != nil {
		return fmt.Errorf("raw staging dir: %w", err)
	}
	if err := EnsureDirectory(d.Processed); err != nil {
		return fmt.Errorf("processed staging dir: %w", err)
	}
	return nil
}

// Check reports an error unless both staging directories exist and are
// directories.
func (d Dirs) Check() error {
	for _, dir := range []string{d.Raw, d.Processed} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("stat %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
	}
	return nil
}

// TargetName returns the destination object name for source.
func TargetName(source string) string {
	return ProcessedPrefix + source
}

// PathsFor derives the local paths for source. Object names with slashes are
// flattened so every local file sits directly in its staging directory. When
// token is non-empty the local file names are prefixed with it so that two
// jobs for the same source never share a file; the remote names are
// unaffected.
func (d Dirs) PathsFor(source, token string) Paths {
	target := TargetName(source)
	return Paths{
		Source:    source,
		Target:    target,
		Raw:       filepath.Join(d.Raw, localName(token, source)),
		Processed: filepath.Join(d.Processed, localName(token, target)),
	}
}

func localName(token, name string) string {
	flat := strings.ReplaceAll(name, "/", "_")
	if token == "" {
		return flat
	}
	return token + "-" + flat
}
