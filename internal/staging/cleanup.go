package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Remove deletes the file at path. A path that does not exist is not an
// error and reports removed=false; a file that exists but cannot be deleted
// is.
func Remove(path string) (removed bool, err error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove %s: %w", path, err)
	}
	return true, nil
}

// Cleanup attempts to remove every path, independently of the others, and
// returns the combined error of the removals that failed.
func Cleanup(logger *zap.Logger, paths ...string) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	var errs error
	for _, p := range paths {
		if p == "" {
			continue
		}
		removed, err := Remove(p)
		switch {
		case err != nil:
			logger.Warn("failed to remove staged file",
				zap.String("path", p),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		case removed:
			logger.Debug("removed staged file", zap.String("path", p))
		default:
			logger.Debug("staged file already absent", zap.String("path", p))
		}
	}
	return errs
}
