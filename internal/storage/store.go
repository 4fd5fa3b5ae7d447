// Package storage provides a URI-addressed artifact store with file:// and
// s3:// backends, grounded on Livepeer-FrameWorks-monorepo's S3 client for
// the object-store half and the teacher's disk-usage probing for the local
// filesystem half.
package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/retry"
)

// Object describes a stored artifact's metadata.
type Object struct {
	URI         string
	Size        int64
	ContentType string
	Checksum    string
	ETag        string
	ModTime     time.Time
}

// Store is the artifact backend interface, addressed by URI scheme
// (file:// or s3://).
type Store interface {
	// Put writes data to uri, computing an MD5 checksum as it streams.
	Put(ctx context.Context, uri string, data io.Reader, contentType string) (Object, error)
	// Get opens uri for reading. The caller must close the returned reader.
	Get(ctx context.Context, uri string) (io.ReadCloser, Object, error)
	// Stat returns metadata for uri without reading its contents.
	Stat(ctx context.Context, uri string) (Object, error)
	// Delete removes uri. Deleting a missing object is not an error.
	Delete(ctx context.Context, uri string) error
}

// putRetryPolicy caps total elapsed retry time at 60s per spec §4.7.
var putRetryPolicy = retry.Policy{
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   10 * time.Second,
	MaxRetries: 6,
}

// withRetry runs op with exponential backoff, never retrying a NotFound
// error (it will never succeed on retry).
func withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	return retry.Do(ctx, putRetryPolicy, func(err error) bool {
		return !apperrors.Is(err, apperrors.KindNotFound)
	}, op)
}

// Scheme reports the URI scheme (file or s3), or an error for anything else.
func Scheme(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", apperrors.Storage("storage.Scheme", "invalid artifact uri", err)
	}
	switch u.Scheme {
	case "file", "s3":
		return u.Scheme, nil
	default:
		return "", apperrors.Storage("storage.Scheme", fmt.Sprintf("unsupported uri scheme %q", u.Scheme), nil)
	}
}

// newHashingReader wraps r so an MD5 digest accumulates as bytes pass
// through — used so Put never has to buffer the whole artifact in memory.
func newHashingReader(r io.Reader) (io.Reader, func() string) {
	h := md5.New()
	tee := io.TeeReader(r, h)
	return tee, func() string { return hex.EncodeToString(h.Sum(nil)) }
}

// joinKey builds a backend key from a base prefix and a relative path,
// normalizing slashes the way the Livepeer S3 client's fullKey does.
func joinKey(prefix, key string) string {
	if prefix == "" {
		return strings.TrimPrefix(key, "/")
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(key, "/")
}
