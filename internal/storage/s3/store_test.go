package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/flowbit/flowbit/internal/config"
	"github.com/flowbit/flowbit/internal/storage"
)

func TestPutJoinsPrefixAndDefaultsContentType(t *testing.T) {
	tests := []struct {
		key         string
		contentType string
		wantKey     string
		wantType    string
	}{
		{key: "/exports/invoices/file.parquet", wantKey: "flowbit/prod/exports/invoices/file.parquet", wantType: ContentTypeParquet},
		{key: "seed/Analytics_Test_Data.JSON", wantKey: "flowbit/prod/seed/Analytics_Test_Data.JSON", wantType: ContentTypeJSON},
		{key: "seed/raw.csv", wantKey: "flowbit/prod/seed/raw.csv", wantType: "application/octet-stream"},
		{key: "seed/data.parquet", contentType: "text/plain", wantKey: "flowbit/prod/seed/data.parquet", wantType: "text/plain"},
	}
	for _, tt := range tests {
		fake := &fakeBucket{}
		store := newStore(fake, "bucket-a", "/flowbit/prod/")
		if _, err := store.Put(context.Background(), tt.key, bytes.NewBufferString("abc"), 3, storage.PutOptions{ContentType: tt.contentType}); err != nil {
			t.Fatalf("Put(%q) error = %v", tt.key, err)
		}
		if fake.lastKey != tt.wantKey || fake.lastType != tt.wantType {
			t.Fatalf("Put(%q) wrote %q as %q, want %q as %q", tt.key, fake.lastKey, fake.lastType, tt.wantKey, tt.wantType)
		}
	}
}

func TestObjectKeyRejectsEscapes(t *testing.T) {
	store := newStore(&fakeBucket{}, "bucket-a", "flowbit")
	for _, key := range []string{"", "  ", "/", "..", "../secrets.txt", "exports/../../secrets.txt"} {
		if _, err := store.Put(context.Background(), key, bytes.NewBufferString("x"), 1, storage.PutOptions{}); err == nil {
			t.Fatalf("Put(%q) expected error", key)
		}
	}
	location, err := store.Location("exports/./invoices/../invoices/a.parquet")
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if got := location.String(); got != "s3://bucket-a/flowbit/exports/invoices/a.parquet" {
		t.Fatalf("Location() = %q", got)
	}
}

func TestGetReportsMissingObjectBeforeOpening(t *testing.T) {
	fake := &fakeBucket{objects: map[string][]byte{}}
	store := newStore(fake, "bucket-a", "")
	_, err := store.Get(context.Background(), "seed/missing.json")
	if !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() error = %v, want ErrObjectNotFound", err)
	}
	if !strings.Contains(err.Error(), "s3://bucket-a/seed/missing.json") {
		t.Fatalf("Get() error = %v, want object uri", err)
	}
	if fake.opened != 0 {
		t.Fatalf("opened = %d, want 0", fake.opened)
	}
}

func TestStatReturnsStoredObject(t *testing.T) {
	fake := &fakeBucket{}
	store := newStore(fake, "bucket-a", "flowbit")
	if _, err := store.Put(context.Background(), "exports/a.parquet", bytes.NewBufferString("12345"), 5, storage.PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	info, err := store.Stat(context.Background(), "exports/a.parquet")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Key != "flowbit/exports/a.parquet" || info.Size != 5 {
		t.Fatalf("Stat() = %+v", info)
	}
	reader, err := store.Get(context.Background(), "exports/a.parquet")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer func() { _ = reader.Close() }()
	data, _ := io.ReadAll(reader)
	if string(data) != "12345" {
		t.Fatalf("Get() = %q", data)
	}
}

func TestOpenRequiresBucketAndEndpoint(t *testing.T) {
	if _, err := Open(context.Background(), config.ObjectStoreConfig{Endpoint: "localhost:9000"}, " "); err == nil {
		t.Fatal("expected error for empty bucket")
	}
	if _, err := Open(context.Background(), config.ObjectStoreConfig{}, "flowbit-data"); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw        string
		useSSL     bool
		wantHost   string
		wantSecure bool
		wantErr    bool
	}{
		{raw: "https://minio.example.com", wantHost: "minio.example.com", wantSecure: true},
		{raw: "http://localhost:9000/", useSSL: true, wantHost: "localhost:9000"},
		{raw: "localhost:9000", useSSL: true, wantHost: "localhost:9000", wantSecure: true},
		{raw: "ftp://minio.example.com", wantErr: true},
		{raw: "https://minio.example.com/bucket", wantErr: true},
		{raw: "https://", wantErr: true},
	}
	for _, tt := range tests {
		host, secure, err := parseEndpoint(tt.raw, tt.useSSL)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseEndpoint(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseEndpoint(%q) error = %v", tt.raw, err)
		}
		if host != tt.wantHost || secure != tt.wantSecure {
			t.Fatalf("parseEndpoint(%q) = %q/%v", tt.raw, host, secure)
		}
	}
}

type fakeBucket struct {
	objects  map[string][]byte
	lastKey  string
	lastType string
	opened   int
}

func (f *fakeBucket) put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	f.lastKey = key
	f.lastType = contentType
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), ETag: "etag-1"}, nil
}

func (f *fakeBucket) open(_ context.Context, key string) (io.ReadCloser, error) {
	f.opened++
	return io.NopCloser(bytes.NewReader(f.objects[key])), nil
}

func (f *fakeBucket) stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), LastModified: time.Now().UTC()}, nil
}

func (f *fakeBucket) ensure(context.Context, string) error {
	return nil
}
