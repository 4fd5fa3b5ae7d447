package storage

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/logging"
)

func newTestFileStore(t *testing.T, warn, block int) *FileStore {
	t.Helper()
	return NewFileStore(t.TempDir(), config.StorageConfig{WarnPercent: warn, BlockPercent: block}, logging.GetLogger("storage-test"))
}

func TestFileStore_PutGetStatDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t, 0, 0)

	uri := "file://snapshot/stream1/1.jpg"
	obj, err := store.Put(ctx, uri, strings.NewReader("hello world"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello world")), obj.Size)
	assert.NotEmpty(t, obj.Checksum)

	stat, err := store.Stat(ctx, uri)
	require.NoError(t, err)
	assert.Equal(t, obj.Size, stat.Size)

	rc, got, err := store.Get(ctx, uri)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, obj.Size, got.Size)

	require.NoError(t, store.Delete(ctx, uri))
	_, err = store.Stat(ctx, uri)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestFileStore_Get_MissingIsNotFound(t *testing.T) {
	store := newTestFileStore(t, 0, 0)
	_, _, err := store.Get(context.Background(), "file://missing/does/not/exist.jpg")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestFileStore_Delete_MissingIsNotAnError(t *testing.T) {
	store := newTestFileStore(t, 0, 0)
	assert.NoError(t, store.Delete(context.Background(), "file://missing/does/not/exist.jpg"))
}

func TestInferContentType(t *testing.T) {
	cases := map[string]string{
		"frame.jpg":   "image/jpeg",
		"frame.jpeg":  "image/jpeg",
		"frame.png":   "image/png",
		"clip.mp4":    "video/mp4",
		"segment.ts":  "video/mp2t",
		"stream.mjpeg": "multipart/x-mixed-replace",
		"unknown.xyz": "application/octet-stream",
	}
	for name, want := range cases {
		assert.Equal(t, want, InferContentType(name), fmt.Sprintf("filename %q", name))
	}
}
