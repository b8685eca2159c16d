package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds the connection settings for an S3-compatible endpoint.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewMinIOClient creates a *minio.Client with static credentials.
func NewMinIOClient(cfg MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client for %s: %w", cfg.Endpoint, err)
	}
	return client, nil
}

// MinIOStore implements ObjectReader, ObjectWriter and ObjectPublisher on an
// S3-compatible store.
type MinIOStore struct {
	client *minio.Client
}

// NewMinIOStore wraps a *minio.Client.
func NewMinIOStore(client *minio.Client) *MinIOStore {
	return &MinIOStore{client: client}
}

// NewReader opens bucket/object. GetObject is lazy, so the object is stat'ed
// first to surface a missing object here rather than on the first Read.
func (m *MinIOStore) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, minioError(err, bucket, object)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, minioError(err, bucket, object)
	}
	return obj, nil
}

// NewWriter streams writes into a PutObject call running in the background.
// Close waits for the upload to finish and returns its error.
func (m *MinIOStore) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	pr, pw := io.Pipe()
	w := &pipeWriter{ctx: ctx, pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := m.client.PutObject(ctx, bucket, object, pr, -1, minio.PutObjectOptions{
			ContentType: contentType(object),
		})
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w
}

// MakePublic copies bucket/object onto itself with a public-read canned ACL.
func (m *MinIOStore) MakePublic(ctx context.Context, bucket, object string) error {
	info, err := m.client.StatObject(ctx, bucket, object, minio.StatObjectOptions{})
	if err != nil {
		return fmt.Errorf("stat %s/%s: %w", bucket, object, minioError(err, bucket, object))
	}
	dst := minio.CopyDestOptions{
		Bucket:          bucket,
		Object:          object,
		ReplaceMetadata: true,
		UserMetadata: map[string]string{
			"x-amz-acl":    "public-read",
			"Content-Type": info.ContentType,
		},
	}
	src := minio.CopySrcOptions{Bucket: bucket, Object: object}
	if _, err := m.client.CopyObject(ctx, dst, src); err != nil {
		return fmt.Errorf("set public-read on %s/%s: %w", bucket, object, err)
	}
	return nil
}

// pipeWriter adapts an io.Pipe feeding PutObject to io.WriteCloser.
type pipeWriter struct {
	ctx  context.Context
	pw   *io.PipeWriter
	done chan error
}

func (w *pipeWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Close ends the stream and waits for PutObject. If ctx is already done the
// stream is aborted instead, so PutObject never sees a clean EOF for a
// truncated body.
func (w *pipeWriter) Close() error {
	if w.ctx != nil && w.ctx.Err() != nil {
		_ = w.pw.CloseWithError(w.ctx.Err())
		if err := <-w.done; err != nil {
			return err
		}
		return w.ctx.Err()
	}
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

func minioError(err error, bucket, object string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, object)
	}
	return err
}
