// Package source opens search index files named by a location string:
// s3://bucket/key objects on an S3-compatible store, or local files below the
// configured import directory.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gcbaptista/go-doc-search/config"
	"github.com/gcbaptista/go-doc-search/internal/errors"
	"github.com/gcbaptista/go-doc-search/internal/logger"
)

const (
	schemeS3   = "s3://"
	schemeFile = "file://"

	// IndexFileName is opened when a local location names a Sphinx build directory.
	IndexFileName = "searchindex.js"
)

// Fetcher opens the content behind a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (io.ReadCloser, error)
}

// Router dispatches a location to the matching backend.
type Router struct {
	importDir string
	s3        *minio.Client
	log       *slog.Logger
}

// NewRouter returns a router for the given storage and S3 settings. An empty
// import directory disables local sources; an empty S3 endpoint disables s3://.
func NewRouter(storage config.StorageConfig, s3cfg config.S3Config) (*Router, error) {
	r := &Router{log: logger.WithComponent("source")}

	if storage.ImportDir != "" {
		dir, err := filepath.Abs(storage.ImportDir)
		if err != nil {
			return nil, fmt.Errorf("resolving import directory %s: %w", storage.ImportDir, err)
		}
		r.importDir = dir
	}

	if s3cfg.Endpoint != "" {
		client, err := minio.New(s3cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(s3cfg.AccessKey, s3cfg.SecretKey, ""),
			Secure: s3cfg.Secure,
			Region: s3cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("creating S3 client for %s: %w", s3cfg.Endpoint, err)
		}
		r.s3 = client
	}
	return r, nil
}

// Fetch opens location. The caller closes the returned reader.
func (r *Router) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.NewValidationError("source", "source location cannot be empty")
	}

	if strings.HasPrefix(location, schemeS3) {
		return r.fetchS3(ctx, strings.TrimPrefix(location, schemeS3))
	}
	if i := strings.Index(location, "://"); i >= 0 && !strings.HasPrefix(location, schemeFile) {
		return nil, errors.NewValidationError("source", fmt.Sprintf("unsupported source scheme '%s'", location[:i]))
	}
	return r.fetchLocal(strings.TrimPrefix(location, schemeFile))
}

func (r *Router) fetchS3(ctx context.Context, rest string) (io.ReadCloser, error) {
	if r.s3 == nil {
		return nil, errors.NewValidationError("source", "s3 sources are not configured")
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return nil, errors.NewValidationError("source", fmt.Sprintf("s3 location must be s3://bucket/key, got 's3://%s'", rest))
	}

	// StatObject surfaces a missing key now; GetObject would only fail on first read.
	if _, err := r.s3.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" || errResp.Code == "NotFound" {
			return nil, fmt.Errorf("%w: s3://%s/%s", errors.ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("stat s3://%s/%s: %w", bucket, key, err)
	}

	obj, err := r.s3.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	r.log.Debug("fetching index from S3", "bucket", bucket, "key", key)
	return obj, nil
}

func (r *Router) fetchLocal(path string) (io.ReadCloser, error) {
	resolved, err := r.resolveLocal(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		resolved = filepath.Join(resolved, IndexFileName)
	}

	f, err := os.Open(resolved) // #nosec G304 -- resolved is confined to the import directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrNotFound, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	r.log.Debug("fetching index from file", "path", resolved)
	return f, nil
}

// resolveLocal maps path into the import directory and rejects anything
// that would escape it.
func (r *Router) resolveLocal(path string) (string, error) {
	if r.importDir == "" {
		return "", errors.NewValidationError("source", "local sources are disabled (no import directory configured)")
	}
	if path == "" {
		return "", errors.NewValidationError("source", "local source path cannot be empty")
	}

	var resolved string
	if filepath.IsAbs(path) {
		resolved = filepath.Clean(path)
	} else {
		resolved = filepath.Join(r.importDir, path)
	}

	rel, err := filepath.Rel(r.importDir, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.NewValidationError("source", fmt.Sprintf("path '%s' is outside the import directory", path))
	}
	return resolved, nil
}
