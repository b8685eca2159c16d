// Package ffmpeg wraps the FFmpeg binary for single-rendition downscaling.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
)

// DefaultHeight is the output height in pixels (360p).
const DefaultHeight = 360

// CommandRunner abstracts exec.CommandContext so tests can inject a stub.
type CommandRunner interface {
	// Run executes name with args and returns any error.
	Run(ctx context.Context, name string, args ...string) error
}

// ExecCommandRunner is the real CommandRunner that shells out to the system.
type ExecCommandRunner struct{}

// Run executes name with args using os/exec.
func (ExecCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s exited with error: %w\noutput:\n%s", name, err, string(out))
	}
	return nil
}

// Runner wraps FFmpeg commands.
type Runner struct {
	// Cmd is the command executor; defaults to ExecCommandRunner{}.
	Cmd CommandRunner
	// Binary is the ffmpeg executable name or path.
	Binary string
}

// NewRunner constructs a Runner with the real ExecCommandRunner. An empty
// binary means "ffmpeg" from PATH.
func NewRunner(binary string) *Runner {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{Cmd: ExecCommandRunner{}, Binary: binary}
}

// Scale transcodes inputPath into outputPath at the given height. The width
// follows the source aspect ratio, rounded to an even number as libx264
// requires. The output container is chosen by FFmpeg from the outputPath
// extension.
//
// Scale returns only after FFmpeg has exited: a nil error means outputPath
// is complete, any error means its contents must be discarded.
func (r *Runner) Scale(ctx context.Context, inputPath, outputPath string, height int) error {
	if height <= 0 {
		return fmt.Errorf("invalid target height %d", height)
	}
	if inputPath == outputPath {
		return fmt.Errorf("input and output paths are the same: %s", inputPath)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vf", ScaleFilter(height),
		outputPath,
	}
	return r.Cmd.Run(ctx, r.binary(), args...)
}

// ScaleFilter returns the -vf value for height, e.g. "scale=-2:360".
func ScaleFilter(height int) string {
	return fmt.Sprintf("scale=-2:%d", height)
}

func (r *Runner) binary() string {
	if r.Binary == "" {
		return "ffmpeg"
	}
	return r.Binary
}
