package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// mimeOverrides covers the media formats this system names explicitly, for
// extensions mime.TypeByExtension may not resolve consistently across
// platforms (notably .mjpeg/.ts, which have no IANA-registered default on
// every OS's local mime.types).
var mimeOverrides = map[string]string{
	".mjpeg": "multipart/x-mixed-replace",
	".ts":    "video/mp2t",
	".mp4":   "video/mp4",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".png":   "image/png",
}

// InferContentType resolves a MIME type for filename, preferring the
// stdlib mime package and falling back to mimeOverrides, then to
// application/octet-stream.
func InferContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	if ct, ok := mimeOverrides[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Router dispatches Store operations by URI scheme, fronting a FileStore
// and an optional S3Store behind the single Store interface.
type Router struct {
	file *FileStore
	s3   *S3Store
}

// NewRouter constructs a Router. s3Store may be nil if the s3:// scheme is
// not configured (local-only deployments).
func NewRouter(file *FileStore, s3Store *S3Store) *Router {
	return &Router{file: file, s3: s3Store}
}

func (r *Router) backendFor(uri string) (Store, error) {
	scheme, err := Scheme(uri)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case "file":
		if r.file == nil {
			return nil, apperrors.Config("Router", "no file:// backend configured", nil)
		}
		return r.file, nil
	case "s3":
		if r.s3 == nil {
			return nil, apperrors.Config("Router", "no s3:// backend configured", nil)
		}
		return r.s3, nil
	default:
		return nil, apperrors.Storage("Router", fmt.Sprintf("unsupported scheme %q", scheme), nil)
	}
}

// Put dispatches to the backend matching uri's scheme.
func (r *Router) Put(ctx context.Context, uri string, data io.Reader, contentType string) (Object, error) {
	backend, err := r.backendFor(uri)
	if err != nil {
		return Object{}, err
	}
	return backend.Put(ctx, uri, data, contentType)
}

// Get dispatches to the backend matching uri's scheme.
func (r *Router) Get(ctx context.Context, uri string) (io.ReadCloser, Object, error) {
	backend, err := r.backendFor(uri)
	if err != nil {
		return nil, Object{}, err
	}
	return backend.Get(ctx, uri)
}

// Stat dispatches to the backend matching uri's scheme.
func (r *Router) Stat(ctx context.Context, uri string) (Object, error) {
	backend, err := r.backendFor(uri)
	if err != nil {
		return Object{}, err
	}
	return backend.Stat(ctx, uri)
}

// Delete dispatches to the backend matching uri's scheme.
func (r *Router) Delete(ctx context.Context, uri string) error {
	backend, err := r.backendFor(uri)
	if err != nil {
		return err
	}
	return backend.Delete(ctx, uri)
}

// ArtifactService layers filename templating and MIME inference above a
// Store, the shape SPEC_FULL.md §4.7 calls the "snapshot-plus-store helper".
type ArtifactService struct {
	store  Store
	scheme string
	prefix string
}

// NewArtifactService constructs an ArtifactService writing under
// "<scheme>://<prefix>/...".
func NewArtifactService(store Store, scheme, prefix string) *ArtifactService {
	return &ArtifactService{store: store, scheme: scheme, prefix: prefix}
}

// BuildURI renders the artifact URI for a stream's capture of the given
// kind (snapshot|capture) at timestamp t, using the filename template
// "<kind>/<streamID>/<unix-nano>.<ext>".
func (a *ArtifactService) BuildURI(kind, streamID string, t time.Time, ext string) string {
	name := fmt.Sprintf("%d%s", t.UnixNano(), ext)
	key := joinKey(a.prefix, filepath.Join(kind, streamID, name))
	return fmt.Sprintf("%s://%s", a.scheme, key)
}

// Save writes data under a templated URI and returns the resulting Object,
// with ContentType inferred from ext if contentType is empty.
func (a *ArtifactService) Save(ctx context.Context, kind, streamID string, t time.Time, ext string, data io.Reader, contentType string) (Object, error) {
	uri := a.BuildURI(kind, streamID, t, ext)
	if contentType == "" {
		contentType = InferContentType("artifact" + ext)
	}
	return a.store.Put(ctx, uri, data, contentType)
}

// Open opens a previously saved artifact by URI.
func (a *ArtifactService) Open(ctx context.Context, uri string) (io.ReadCloser, Object, error) {
	return a.store.Get(ctx, uri)
}

// Remove deletes a previously saved artifact by URI.
func (a *ArtifactService) Remove(ctx context.Context, uri string) error {
	return a.store.Delete(ctx, uri)
}
