package seed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/flowbit/flowbit/internal/storage"
)

// StoreOpener returns an object store bound to bucket.
type StoreOpener func(ctx context.Context, bucket string) (storage.ObjectStore, error)

// ReadSource loads records from a local path or an s3://bucket/key URI.
// Keys ending in .parquet are decoded as Parquet and everything else as a
// JSON analytics export.
func ReadSource(ctx context.Context, source string, open StoreOpener) ([]Record, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("source is required")
	}

	var data []byte
	name := source
	if storage.IsObjectURI(source) {
		location, err := storage.ParseObjectURI(source)
		if err != nil {
			return nil, err
		}
		if open == nil {
			return nil, fmt.Errorf("object store is not configured for %s", source)
		}
		store, err := open(ctx, location.Bucket)
		if err != nil {
			return nil, fmt.Errorf("open bucket %q: %w", location.Bucket, err)
		}
		reader, err := store.Get(ctx, location.Key)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", source, err)
		}
		data, err = io.ReadAll(reader)
		_ = reader.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		name = location.Key
	} else {
		var err error
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
	}

	if strings.EqualFold(path.Ext(name), ".parquet") {
		return DecodeParquet(bytes.NewReader(data), int64(len(data)))
	}
	return DecodeJSON(bytes.NewReader(data))
}

// Export writes records as Parquet under a date-partitioned key, then stats
// the key and returns what the store holds. A size mismatch is an error.
func Export(ctx context.Context, store storage.ObjectStore, records []Record, at time.Time) (storage.ObjectInfo, error) {
	key, err := storage.BuildExportKey("invoices", at)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	data, err := EncodeParquet(records)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if _, err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{}); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("export invoices: %w", err)
	}
	info, err := store.Stat(ctx, key)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("verify export %s: %w", key, err)
	}
	if info.Size != int64(len(data)) {
		return storage.ObjectInfo{}, fmt.Errorf("verify export %s: stored %d bytes, wrote %d", key, info.Size, len(data))
	}
	return info, nil
}
