package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSClient creates a *storage.Client. A non-empty endpoint points the
// client at an emulator (e.g. fake-gcs-server) without credentials;
// otherwise Application Default Credentials are used.
func NewGCSClient(ctx context.Context, endpoint string) (*storage.Client, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return client, nil
}

// GCSStore implements ObjectReader, ObjectWriter and ObjectPublisher using
// the real GCS client.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore wraps a *storage.Client.
func NewGCSStore(client *storage.Client) *GCSStore {
	return &GCSStore{client: client}
}

// NewReader opens a GCS object reader for bucket/object.
func (g *GCSStore) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", ErrNotFound, bucket, object)
		}
		return nil, err
	}
	return r, nil
}

// NewWriter opens a GCS object writer for bucket/object.
func (g *GCSStore) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	w := g.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType(object)
	return w
}

// MakePublic grants allUsers read access to bucket/object.
func (g *GCSStore) MakePublic(ctx context.Context, bucket, object string) error {
	acl := g.client.Bucket(bucket).Object(object).ACL()
	if err := acl.Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return fmt.Errorf("set public ACL on gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

// contentType guesses the MIME type from the object extension, falling back
// to the generic binary type.
func contentType(object string) string {
	if ct := mime.TypeByExtension(path.Ext(object)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
