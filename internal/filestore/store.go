// Package filestore reads model declaration documents from object storage.
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	data, err := filestore.ReadObject(ctx, store, "models", "shop.yaml", 0)
package filestore

import (
	"context"
	"io"

	"github.com/koustreak/rowmodel/internal/errs"
)

// Store is implemented by every object storage provider. It is read-only.
type Store interface {
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error

	// ListObjects returns the objects in bucket that match opts.
	ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error)

	// GetObject opens the object at key. The caller must close it.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// StatObject returns the metadata of the object at key without
	// downloading it.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)
}

// DefaultMaxObjectSize caps ReadObject when no limit is given.
const DefaultMaxObjectSize = 8 << 20

// ReadObject downloads the whole object at key. Objects larger than limit
// bytes are rejected with ErrKindInvalidInput; limit <= 0 means
// DefaultMaxObjectSize.
func ReadObject(ctx context.Context, s Store, bucket, key string, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxObjectSize
	}

	obj, err := s.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	if info := obj.Info(); info != nil && info.Size > limit {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "object %s/%s is %d bytes, limit is %d", bucket, key, info.Size, limit)
	}

	data, err := io.ReadAll(io.LimitReader(obj, limit+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "reading object "+bucket+"/"+key, err)
	}
	if int64(len(data)) > limit {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "object %s/%s exceeds %d bytes", bucket, key, limit)
	}
	return data, nil
}
