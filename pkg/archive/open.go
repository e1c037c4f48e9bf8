package archive

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Open returns the store named by rawURL:
//
//	file:///var/lib/mintgov/archive  (or a bare path)
//	s3://bucket/prefix?region=eu-west-1&endpoint=http://minio:9000
//	gs://bucket/prefix
func Open(ctx context.Context, rawURL string) (Store, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("archive url is empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse archive url: %w", err)
	}
	prefix := strings.TrimPrefix(u.Path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	switch u.Scheme {
	case "", "file":
		dir := u.Path
		if u.Scheme == "" {
			dir = rawURL
		}
		return NewFileStore(dir)
	case "s3":
		region := u.Query().Get("region")
		if region == "" {
			region = "us-east-1"
		}
		return NewS3Store(ctx, S3StoreConfig{
			Bucket:   u.Host,
			Region:   region,
			Endpoint: u.Query().Get("endpoint"),
			Prefix:   prefix,
		})
	case "gs":
		return NewGCSStore(ctx, GCSStoreConfig{Bucket: u.Host, Prefix: prefix})
	}
	return nil, fmt.Errorf("unsupported archive scheme %q", u.Scheme)
}
