// Package blobstore wraps the object-storage backend behind a small
// interface: per-tenant bucket existence and creation, object CRUD,
// server-side copy and property retrieval. Implementations translate backend
// failures into the shared error kinds so orchestration code never inspects
// SDK error strings.
package blobstore

import (
	"context"
	"io"
	"time"
)

// ObjectInfo carries the property set the gateway exposes for a stored
// object. ContentHash is the backend entity tag with quotes stripped; for
// single-part uploads this is the hex MD5 of the content.
type ObjectInfo struct {
	Name         string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
	ContentHash  string
}

type ObjectStore interface {
	// BucketExists reports whether the bucket exists. A missing bucket is
	// not an error.
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// CreateBucket creates the bucket. When the bucket already exists the
	// error wraps common.ErrorConflict so callers can treat a lost
	// provisioning race as success.
	CreateBucket(ctx context.Context, bucket string) error

	// Put writes the object, overwriting any previous version. Content-Type
	// and an inline Content-Disposition are set so browsers render rather
	// than download.
	Put(ctx context.Context, bucket, key, contentType string, body io.Reader) error

	// Head returns object properties. Wraps common.ErrorNotFound when the
	// object (or its bucket) is absent.
	Head(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// List enumerates every object in the bucket with full properties.
	List(ctx context.Context, bucket string) ([]ObjectInfo, error)

	// Copy performs a server-side copy; the payload never streams through
	// the gateway.
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error

	// Delete removes the object if it exists. Reports whether an object was
	// actually removed; deleting an absent object is (false, nil).
	Delete(ctx context.Context, bucket, key string) (bool, error)

	// Get opens the object content for reading along with its properties.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectInfo, error)

	// ObjectURL returns the externally reachable URL of an object.
	ObjectURL(bucket, key string) string
}
