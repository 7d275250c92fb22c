// Package memstore is an in-memory filestore.Store.
package memstore

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/filestore"
)

type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// New returns a store holding the given bucket -> key -> content objects.
func New(objects map[string]map[string]string) *Store {
	s := &Store{buckets: make(map[string]map[string][]byte)}
	for bucket, keys := range objects {
		for key, content := range keys {
			s.Put(bucket, key, []byte(content))
		}
	}
	return s
}

// Put stores a copy of data under bucket/key, creating the bucket.
func (s *Store) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		s.buckets[bucket] = b
	}
	b[key] = append([]byte(nil), data...)
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "failed to list objects", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "bucket %s does not exist", bucket)
	}

	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []filestore.ObjectInfo
	seen := make(map[string]bool)
	for _, k := range keys {
		if !strings.HasPrefix(k, opts.Prefix) {
			continue
		}
		info := filestore.ObjectInfo{Key: k, Size: int64(len(b[k]))}
		if !opts.Recursive {
			if i := strings.Index(k[len(opts.Prefix):], "/"); i >= 0 {
				dir := k[:len(opts.Prefix)+i+1]
				if seen[dir] {
					continue
				}
				seen[dir] = true
				info = filestore.ObjectInfo{Key: dir, Size: -1, IsDir: true}
			}
		}
		out = append(out, info)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	info, err := s.StatObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	data := s.buckets[bucket][key]
	s.mu.RUnlock()

	return &object{Reader: strings.NewReader(string(data)), info: info}, nil
}

func (s *Store) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "failed to stat object", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.buckets[bucket][key]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "object %s/%s does not exist", bucket, key)
	}
	return &filestore.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

type object struct {
	io.Reader
	info *filestore.ObjectInfo
}

func (o *object) Close() error                { return nil }
func (o *object) Info() *filestore.ObjectInfo { return o.info }

var _ filestore.Store = (*Store)(nil)
