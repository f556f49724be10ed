package blobstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/filegilla/filegateway/internal/common"
)

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
	metadata    map[string]string
}

// MemoryStore is an in-memory ObjectStore used by tests. It mirrors the
// sentinel-error semantics of the S3 implementation and offers error
// injection hooks so orchestrator tests can exercise partial failures.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*memObject
	baseURL string

	// Error injection for partial-failure tests. When set, the matching
	// operation fails with the given error before touching state.
	PutErr    error
	CopyErr   error
	DeleteErr error
	CreateErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]map[string]*memObject),
		baseURL: "http://blobstore.local",
	}
}

func (m *MemoryStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.buckets[bucket]
	return ok, nil
}

func (m *MemoryStore) CreateBucket(ctx context.Context, bucket string) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; ok {
		return fmt.Errorf("%w: bucket %s", common.ErrorConflict, bucket)
	}
	m.buckets[bucket] = make(map[string]*memObject)
	return nil
}

func (m *MemoryStore) Put(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[bucket]
	if !ok {
		return fmt.Errorf("%w: bucket %s", common.ErrorNotFound, bucket)
	}
	b[key] = &memObject{
		data:        data,
		contentType: contentType,
		modified:    time.Now().UTC(),
		metadata:    map[string]string{},
	}
	return nil
}

func (m *MemoryStore) Head(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, err := m.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	return m.info(key, obj), nil
}

func (m *MemoryStore) List(ctx context.Context, bucket string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("%w: bucket %s", common.ErrorNotFound, bucket)
	}

	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	infos := make([]ObjectInfo, 0, len(keys))
	for _, k := range keys {
		infos = append(infos, *m.info(k, b[k]))
	}
	return infos, nil
}

func (m *MemoryStore) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if m.CopyErr != nil {
		return m.CopyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	src, err := m.lookup(srcBucket, srcKey)
	if err != nil {
		return err
	}
	dst, ok := m.buckets[dstBucket]
	if !ok {
		return fmt.Errorf("%w: bucket %s", common.ErrorNotFound, dstBucket)
	}
	cp := *src
	cp.data = append([]byte(nil), src.data...)
	cp.modified = time.Now().UTC()
	dst[dstKey] = &cp
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, bucket, key string) (bool, error) {
	if m.DeleteErr != nil {
		return false, m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[bucket]
	if !ok {
		return false, nil
	}
	if _, ok := b[key]; !ok {
		return false, nil
	}
	delete(b, key)
	return true, nil
}

func (m *MemoryStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, err := m.lookup(bucket, key)
	if err != nil {
		return nil, nil, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), m.info(key, obj), nil
}

func (m *MemoryStore) ObjectURL(bucket, key string) string {
	return m.baseURL + "/" + bucket + "/" + url.PathEscape(key)
}

// lookup requires at least a read lock held by the caller.
func (m *MemoryStore) lookup(bucket, key string) (*memObject, error) {
	b, ok := m.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("%w: bucket %s", common.ErrorNotFound, bucket)
	}
	obj, ok := b[key]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", common.ErrorNotFound, key)
	}
	return obj, nil
}

func (m *MemoryStore) info(key string, obj *memObject) *ObjectInfo {
	sum := md5.Sum(obj.data)
	return &ObjectInfo{
		Name:         key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
		Metadata:     obj.metadata,
		ContentHash:  hex.EncodeToString(sum[:]),
	}
}
