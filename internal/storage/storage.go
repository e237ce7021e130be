// Package storage addresses dataset files in object storage: seed sources
// read by s3:// URI and Parquet exports written under date partitions.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is wrapped by stores when a key or its bucket is missing.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored dataset file. Key includes any store prefix.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// PutOptions leaves ContentType empty to let the store pick one from the key.
type PutOptions struct {
	ContentType string
}

// ObjectStore is what seeding needs from a bucket: write an export, read a
// source, and confirm what landed.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}
