package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hupe1980/graphcheck/blobstore"
	"github.com/hupe1980/graphcheck/blobstore/minio"
	"github.com/hupe1980/graphcheck/blobstore/s3"
	"github.com/hupe1980/graphcheck/internal/cache"
	"github.com/hupe1980/graphcheck/internal/config"
	"github.com/hupe1980/graphcheck/internal/resource"
	"github.com/hupe1980/graphcheck/store"
)

// location is a parsed store location:
//
//	/var/lib/graph.db
//	file:///var/lib/graph.db
//	s3://bucket/prefix
//	minio://endpoint/bucket/prefix
type location struct {
	scheme   string
	endpoint string
	bucket   string
	prefix   string
	path     string
}

func parseLocation(raw string) (location, error) {
	if raw == "" {
		return location{}, fmt.Errorf("empty location")
	}
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return location{path: raw}, nil
	}

	switch scheme {
	case "file":
		if rest == "" {
			return location{}, fmt.Errorf("location %q: missing path", raw)
		}
		return location{path: rest}, nil
	case "s3":
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return location{}, fmt.Errorf("location %q: missing bucket", raw)
		}
		return location{scheme: scheme, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
	case "minio":
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return location{}, fmt.Errorf("location %q: want minio://endpoint/bucket[/prefix]", raw)
		}
		l := location{scheme: scheme, endpoint: parts[0], bucket: parts[1]}
		if len(parts) == 3 {
			l.prefix = strings.Trim(parts[2], "/")
		}
		return l, nil
	default:
		return location{}, fmt.Errorf("location %q: unsupported scheme %q", raw, scheme)
	}
}

func (l location) remote() bool { return l.scheme != "" }

// split returns the parent location and the final element, for report
// files written next to or into a location.
func (l location) split() (location, string) {
	if !l.remote() {
		return location{path: filepath.Dir(l.path)}, filepath.Base(l.path)
	}
	dir, name := path.Split(l.prefix)
	l.prefix = strings.TrimSuffix(dir, "/")
	return l, name
}

// open returns the blob store of l. Local locations must exist.
func (l location) open(ctx context.Context, r config.Remote) (blobstore.BlobStore, error) {
	switch l.scheme {
	case "s3":
		opts := []s3.Option{s3.WithPrefix(l.prefix)}
		if r.Region != "" {
			opts = append(opts, s3.WithRegion(r.Region))
		}
		if r.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(r.Endpoint, r.PathStyle))
		}
		return s3.New(ctx, l.bucket, opts...)
	case "minio":
		return minio.New(minio.Config{
			Endpoint:  l.endpoint,
			AccessKey: r.AccessKey,
			SecretKey: r.SecretKey,
			Region:    r.Region,
			Secure:    !r.Insecure,
		}, l.bucket, l.prefix)
	default:
		fi, err := os.Stat(l.path)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", l.path)
		}
		return blobstore.NewLocalStore(l.path), nil
	}
}

// openStoreLocation opens the store files to check. Remote stores read
// through retries and a sharded page cache of the configured page cache
// size; an IO limit throttles every read.
func openStoreLocation(ctx context.Context, cfg config.Config, sizes config.Sizes, rc *resource.Controller) (blobstore.BlobStore, error) {
	l, err := parseLocation(cfg.Location)
	if err != nil {
		return nil, err
	}
	bs, err := l.open(ctx, cfg.Remote)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Location, err)
	}
	if l.remote() {
		bs = blobstore.NewRetryingStore(bs, blobstore.WithMaxTries(cfg.Remote.Retries))
	}
	if sizes.IOLimit > 0 {
		bs = blobstore.NewThrottledStore(bs, resource.NewController(resource.Config{
			IOLimitBytesPerSec: sizes.IOLimit,
		}))
	}
	if l.remote() && sizes.PageCache > 0 {
		bs = blobstore.NewCachingStore(bs, cache.NewShardedLRUPageCache(sizes.PageCache, rc), store.PageSize)
	}
	return bs, nil
}
