// Package minio implements filestore.Store on top of minio-go.
package minio

import (
	"context"
	"io"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/filestore"
)

// Driver is safe for concurrent use.
type Driver struct {
	client *miniogo.Client
	cfg    *filestore.Config
}

// New builds a client for cfg and pings it before returning.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "minio endpoint is required")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{client: client, cfg: cfg}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Ping checks the default bucket exists, or lists buckets when none is
// configured.
func (d *Driver) Ping(ctx context.Context) error {
	if d.cfg.DefaultBucket == "" {
		if _, err := d.client.ListBuckets(ctx); err != nil {
			return mapError(err, "ping failed")
		}
		return nil
	}

	ok, err := d.client.BucketExists(ctx, d.cfg.DefaultBucket)
	if err != nil {
		return mapError(err, "ping failed")
	}
	if !ok {
		return errs.Newf(errs.ErrKindNotFound, "bucket %s does not exist", d.cfg.DefaultBucket)
	}
	return nil
}

// Close is a no-op; the client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	bucket = d.cfg.Bucket(bucket)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var results []filestore.ObjectInfo
	for obj := range d.client.ListObjects(ctx, bucket, miniogo.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: opts.Recursive,
	}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list objects")
		}

		results = append(results, filestore.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
			IsDir:        strings.HasSuffix(obj.Key, "/"),
		})
		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
	}
	return results, nil
}

// GetObject opens the object at key. The caller must close it.
func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	bucket = d.cfg.Bucket(bucket)

	obj, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}

	// GetObject is lazy; Stat surfaces a missing key.
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, mapError(err, "failed to stat object "+bucket+"/"+key)
	}

	return &object{ReadCloser: obj, info: infoOf(key, stat)}, nil
}

func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	bucket = d.cfg.Bucket(bucket)

	stat, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat object "+bucket+"/"+key)
	}
	return infoOf(key, stat), nil
}

func infoOf(key string, stat miniogo.ObjectInfo) *filestore.ObjectInfo {
	if stat.Key != "" {
		key = stat.Key
	}
	return &filestore.ObjectInfo{
		Key:          key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
	}
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo {
	return o.info
}

var _ filestore.Store = (*Driver)(nil)
