package staging_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-teammate/video-processing-service/internal/staging"
)

// ── EnsureDirectory / Setup ───────────────────────────────────────────────────

func TestEnsureDirectory_CreatesParents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "raw")

	require.NoError(t, staging.EnsureDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureDirectory_ExistingIsNoop(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	require.NoError(t, staging.EnsureDirectory(dir))

	_, err := os.Stat(marker)
	assert.NoError(t, err, "existing contents must survive")
}

func TestEnsureDirectory_EmptyPath(t *testing.T) {
	assert.Error(t, staging.EnsureDirectory("  "))
}

func TestEnsureDirectory_PathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.Error(t, staging.EnsureDirectory(file))
}

func TestEnsureDirectory_Concurrent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shared")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- staging.EnsureDirectory(dir)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestSetup_TwiceLeavesExactlyTwoDirs(t *testing.T) {
	root := t.TempDir()
	dirs := staging.Dirs{
		Raw:       filepath.Join(root, "raw-videos"),
		Processed: filepath.Join(root, "processed-videos"),
	}

	require.NoError(t, dirs.Setup())
	require.NoError(t, dirs.Setup())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		assert.True(t, e.IsDir())
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"raw-videos", "processed-videos"}, names)
	assert.NoError(t, dirs.Check())
}

func TestCheck_MissingDir(t *testing.T) {
	root := t.TempDir()
	dirs := staging.Dirs{
		Raw:       filepath.Join(root, "raw"),
		Processed: filepath.Join(root, "processed"),
	}
	require.NoError(t, staging.EnsureDirectory(dirs.Raw))

	assert.Error(t, dirs.Check())
}

// ── path derivation ───────────────────────────────────────────────────────────

func TestTargetName(t *testing.T) {
	assert.Equal(t, "processed-clip1.mp4", staging.TargetName("clip1.mp4"))
}

func TestPathsFor_NoToken(t *testing.T) {
	dirs := staging.Dirs{Raw: "/work/raw", Processed: "/work/processed"}

	p := dirs.PathsFor("clip1.mp4", "")

	assert.Equal(t, "clip1.mp4", p.Source)
	assert.Equal(t, "processed-clip1.mp4", p.Target)
	assert.Equal(t, "/work/raw/clip1.mp4", p.Raw)
	assert.Equal(t, "/work/processed/processed-clip1.mp4", p.Processed)
}

func TestPathsFor_Deterministic(t *testing.T) {
	dirs := staging.Dirs{Raw: "/r", Processed: "/p"}
	assert.Equal(t, dirs.PathsFor("a.mp4", "tok"), dirs.PathsFor("a.mp4", "tok"))
}

func TestPathsFor_TokenScopesLocalNamesOnly(t *testing.T) {
	dirs := staging.Dirs{Raw: "/r", Processed: "/p"}

	a := dirs.PathsFor("clip1.mp4", "job-a")
	b := dirs.PathsFor("clip1.mp4", "job-b")

	assert.NotEqual(t, a.Raw, b.Raw)
	assert.NotEqual(t, a.Processed, b.Processed)
	assert.Equal(t, a.Target, b.Target)
	assert.Equal(t, "/r/job-a-clip1.mp4", a.Raw)
	assert.Equal(t, "/p/job-a-processed-clip1.mp4", a.Processed)
	assert.True(t, strings.HasSuffix(a.Processed, ".mp4"), "extension drives the output container")
}

func TestPathsFor_TokenFlattensNestedNames(t *testing.T) {
	dirs := staging.Dirs{Raw: "/r", Processed: "/p"}

	p := dirs.PathsFor("uploads/2024/clip.mp4", "t")

	assert.Equal(t, "/r/t-uploads_2024_clip.mp4", p.Raw)
	assert.Equal(t, "processed-uploads/2024/clip.mp4", p.Target)
}

func TestPathsFor_NoTokenFlattensNestedNames(t *testing.T) {
	dirs := staging.Dirs{Raw: "/r", Processed: "/p"}

	p := dirs.PathsFor("videos/clip.mp4", "")

	assert.Equal(t, "/r/videos_clip.mp4", p.Raw)
	assert.Equal(t, "/p/processed-videos_clip.mp4", p.Processed)
	assert.Equal(t, "videos/clip.mp4", p.Source)
	assert.Equal(t, "processed-videos/clip.mp4", p.Target)
}
