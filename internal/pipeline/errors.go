package pipeline

import (
	"errors"
	"fmt"
)

// Failure kinds. Check with errors.Is.
var (
	ErrDownloadFailed  = errors.New("download failed")
	ErrTranscodeFailed = errors.New("transcode failed")
	ErrUploadFailed    = errors.New("upload failed")
	// ErrPublishFailed means the object was uploaded but could not be made
	// public. It also matches ErrUploadFailed.
	ErrPublishFailed = fmt.Errorf("%w: object not made public", ErrUploadFailed)
	// ErrCleanupFailed is only ever reported through Result.CleanupErr.
	ErrCleanupFailed = errors.New("cleanup failed")
)

// StageError records the stage a job failed in and the kind of failure.
type StageError struct {
	Stage Stage
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// FailedStage returns the stage carried by err, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

func fail(stage Stage, kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
