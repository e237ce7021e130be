package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/flowbit/flowbit/internal/config"
	"github.com/flowbit/flowbit/internal/storage"
)

// Content types written for dataset files when the caller does not set one.
const (
	ContentTypeParquet = "application/vnd.apache.parquet"
	ContentTypeJSON    = "application/json"
	contentTypeBinary  = "application/octet-stream"
)

// bucketAPI is the object API of a single bucket. Keys are already prefixed.
type bucketAPI interface {
	put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (storage.ObjectInfo, error)
	open(ctx context.Context, key string) (io.ReadCloser, error)
	stat(ctx context.Context, key string) (storage.ObjectInfo, error)
	ensure(ctx context.Context, region string) error
}

// Store reads and writes dataset files in one bucket, under an optional key
// prefix shared by every object it touches.
type Store struct {
	api    bucketAPI
	bucket string
	prefix string
}

// Open connects to the configured endpoint and binds the store to bucket.
// Dataset URIs name their own bucket, so it is not part of the config.
func Open(ctx context.Context, cfg config.ObjectStoreConfig, bucket string) (*Store, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	store := newStore(&minioBucket{client: client, name: bucket}, bucket, cfg.Prefix)
	if cfg.AutoCreateBucket {
		if err := store.api.ensure(ctx, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, fmt.Errorf("ensure bucket %q: %w", bucket, err)
		}
	}
	return store, nil
}

func newStore(api bucketAPI, bucket, prefix string) *Store {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix != "" {
		prefix = path.Clean(prefix)
	}
	return &Store{api: api, bucket: bucket, prefix: prefix}
}

func (s *Store) Bucket() string {
	return s.bucket
}

// Location returns the full address of key, prefix included.
func (s *Store) Location(key string) (storage.Location, error) {
	full, err := s.objectKey(key)
	if err != nil {
		return storage.Location{}, err
	}
	return storage.Location{Bucket: s.bucket, Key: full}, nil
}

// Put uploads body. An empty content type is derived from the key extension.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	full, err := s.objectKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = contentTypeFor(full)
	}
	info, err := s.api.put(ctx, full, body, size, contentType)
	if err != nil {
		return storage.ObjectInfo{}, s.fail("put", full, err)
	}
	return info, nil
}

// Get opens key for reading. Missing objects fail here rather than on the
// first Read.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	if _, err := s.api.stat(ctx, full); err != nil {
		return nil, s.fail("get", full, err)
	}
	reader, err := s.api.open(ctx, full)
	if err != nil {
		return nil, s.fail("get", full, err)
	}
	return reader, nil
}

func (s *Store) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	full, err := s.objectKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := s.api.stat(ctx, full)
	if err != nil {
		return storage.ObjectInfo{}, s.fail("stat", full, err)
	}
	return info, nil
}

func (s *Store) fail(op, key string, err error) error {
	return fmt.Errorf("%s %s: %w", op, storage.Location{Bucket: s.bucket, Key: key}, err)
}

// objectKey cleans key and joins it under the store prefix. Keys that climb
// out of the prefix are rejected.
func (s *Store) objectKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	if s.prefix == "" {
		return cleaned, nil
	}
	return s.prefix + "/" + cleaned, nil
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".parquet":
		return ContentTypeParquet
	case ".json":
		return ContentTypeJSON
	default:
		return contentTypeBinary
	}
}

// parseEndpoint accepts host:port or a full URL. An explicit scheme wins over
// useSSL.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("s3 endpoint is required")
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimSuffix(raw, "/"), useSSL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse s3 endpoint: %w", err)
	}
	switch {
	case parsed.Host == "":
		return "", false, fmt.Errorf("s3 endpoint %q has no host", raw)
	case parsed.Scheme != "http" && parsed.Scheme != "https":
		return "", false, fmt.Errorf("s3 endpoint %q must use http or https", raw)
	case strings.Trim(parsed.Path, "/") != "":
		return "", false, fmt.Errorf("s3 endpoint %q must not include a path", raw)
	}
	return parsed.Host, parsed.Scheme == "https", nil
}

type minioBucket struct {
	client *minio.Client
	name   string
}

func (b *minioBucket) put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (storage.ObjectInfo, error) {
	uploaded, err := b.client.PutObject(ctx, b.name, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return storage.ObjectInfo{}, notFound(err)
	}
	return storage.ObjectInfo{Key: uploaded.Key, Size: uploaded.Size, ETag: uploaded.ETag, LastModified: uploaded.LastModified}, nil
}

func (b *minioBucket) open(ctx context.Context, key string) (io.ReadCloser, error) {
	object, err := b.client.GetObject(ctx, b.name, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, notFound(err)
	}
	return object, nil
}

func (b *minioBucket) stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	object, err := b.client.StatObject(ctx, b.name, key, minio.StatObjectOptions{})
	if err != nil {
		return storage.ObjectInfo{}, notFound(err)
	}
	return storage.ObjectInfo{Key: object.Key, Size: object.Size, ETag: object.ETag, LastModified: object.LastModified}, nil
}

func (b *minioBucket) ensure(ctx context.Context, region string) error {
	exists, err := b.client.BucketExists(ctx, b.name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return b.client.MakeBucket(ctx, b.name, minio.MakeBucketOptions{Region: region})
}

// notFound folds missing-key and missing-bucket responses into
// storage.ErrObjectNotFound.
func notFound(err error) error {
	response := minio.ToErrorResponse(err)
	switch {
	case response.Code == "NoSuchKey", response.Code == "NoSuchBucket":
		return fmt.Errorf("%w: %s", storage.ErrObjectNotFound, response.Code)
	case response.StatusCode == http.StatusNotFound:
		return storage.ErrObjectNotFound
	}
	return err
}
