package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactService_SaveOpenRemove(t *testing.T) {
	ctx := context.Background()
	fileStore := newTestFileStore(t, 0, 0)
	router := NewRouter(fileStore, nil)
	svc := NewArtifactService(router, "file", "")

	when := time.Unix(1700000000, 0).UTC()
	obj, err := svc.Save(ctx, "snapshot", "stream1", when, ".jpg", strings.NewReader("data"), "")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", obj.ContentType)

	rc, got, err := svc.Open(ctx, obj.URI)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, obj.Size, got.Size)

	require.NoError(t, svc.Remove(ctx, obj.URI))
}

func TestArtifactService_BuildURI_IsDeterministicPerInputs(t *testing.T) {
	fileStore := newTestFileStore(t, 0, 0)
	router := NewRouter(fileStore, nil)
	svc := NewArtifactService(router, "file", "artifacts")

	when := time.Unix(1700000000, 0).UTC()
	uri1 := svc.BuildURI("snapshot", "stream1", when, ".jpg")
	uri2 := svc.BuildURI("snapshot", "stream1", when, ".jpg")
	assert.Equal(t, uri1, uri2)
	assert.Contains(t, uri1, "artifacts/snapshot/stream1/")
}

func TestRouter_UnconfiguredSchemeErrors(t *testing.T) {
	router := NewRouter(nil, nil)
	_, err := router.Stat(context.Background(), "file://foo")
	assert.Error(t, err)
	_, err = router.Stat(context.Background(), "s3://bucket/key")
	assert.Error(t, err)
}
