package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

const s3Scheme = "s3://"

var bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// Location addresses one object in a bucket.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return s3Scheme + l.Bucket + "/" + l.Key
}

// IsObjectURI reports whether raw uses the s3:// scheme.
func IsObjectURI(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), s3Scheme)
}

// ParseObjectURI parses s3://bucket/key.
func ParseObjectURI(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, s3Scheme) {
		return Location{}, fmt.Errorf("object uri %q must start with %s", raw, s3Scheme)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(raw, s3Scheme), "/")
	if !ok || strings.Trim(key, "/") == "" {
		return Location{}, fmt.Errorf("object uri %q has no key", raw)
	}
	if !bucketPattern.MatchString(bucket) {
		return Location{}, fmt.Errorf("invalid bucket name: %q", bucket)
	}
	return Location{Bucket: bucket, Key: strings.TrimPrefix(key, "/")}, nil
}

// BuildExportKey returns a date-partitioned key for a dataset export.
func BuildExportKey(dataset string, at time.Time) (string, error) {
	if dataset == "" || strings.ContainsAny(dataset, "/\\") || strings.Contains(dataset, "..") {
		return "", fmt.Errorf("invalid dataset name: %q", dataset)
	}
	ts := at.UTC()
	return path.Join(
		"exports",
		dataset,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("%s-%d.parquet", dataset, ts.UnixMilli()),
	), nil
}
