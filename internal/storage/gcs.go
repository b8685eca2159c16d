// Package storage moves videos between object storage buckets and the local
// staging directories.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNotFound is wrapped by backends when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectReader abstracts object reads so tests can inject a stub.
type ObjectReader interface {
	// NewReader opens a reader for the given bucket/object.
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// ObjectWriter abstracts object writes so tests can inject a stub.
type ObjectWriter interface {
	// NewWriter opens a writer for the given bucket/object.
	// The caller must close the writer to finalise the upload. Cancelling ctx
	// before Close discards the upload.
	NewWriter(ctx context.Context, bucket, object string) io.WriteCloser
}

// ObjectPublisher grants anonymous read access to an object.
type ObjectPublisher interface {
	MakePublic(ctx context.Context, bucket, object string) error
}

// Downloader downloads an object to the local filesystem.
type Downloader struct {
	Reader ObjectReader
}

// NewDownloader constructs a Downloader backed by the provided ObjectReader.
func NewDownloader(r ObjectReader) *Downloader {
	return &Downloader{Reader: r}
}

// Download copies the object at <bucket>/<objectPath> to destPath.
// The bytes are staged in a hidden sibling file and renamed into place, so
// destPath either holds the whole object or does not exist.
func (d *Downloader) Download(ctx context.Context, bucket, objectPath, destPath string) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	rc, err := d.Reader.NewReader(ctx, bucket, objectPath)
	if err != nil {
		return fmt.Errorf("open reader %s/%s: %w", bucket, objectPath, err)
	}
	defer rc.Close()

	f, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmp := f.Name()

	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("copy %s/%s to %s: %w", bucket, objectPath, destPath, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, destPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s to %s: %w", tmp, destPath, err)
	}
	return nil
}

// Uploader uploads local files to object storage.
type Uploader struct {
	Writer ObjectWriter
}

// NewUploader constructs an Uploader backed by the provided ObjectWriter.
func NewUploader(w ObjectWriter) *Uploader {
	return &Uploader{Writer: w}
}

// UploadFile copies a local file at srcPath to <bucket>/<objectPath>.
// A failed copy cancels the write so no truncated object is finalised.
func (u *Uploader) UploadFile(ctx context.Context, bucket, objectPath, srcPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open local file %s: %w", srcPath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wc := u.Writer.NewWriter(ctx, bucket, objectPath)
	if _, err := io.Copy(wc, f); err != nil {
		cancel()
		_ = wc.Close()
		return fmt.Errorf("copy %s to %s/%s: %w", srcPath, bucket, objectPath, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("finalise upload %s/%s: %w", bucket, objectPath, err)
	}
	return nil
}
