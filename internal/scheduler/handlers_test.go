package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/capture"
	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/domain"
	"github.com/sentryhub/capturectl/internal/logging"
	"github.com/sentryhub/capturectl/internal/persistence"
	"github.com/sentryhub/capturectl/internal/storage"
)

func testArtifactService(t *testing.T) *storage.ArtifactService {
	t.Helper()
	store := storage.NewFileStore(t.TempDir(), config.StorageConfig{WarnPercent: 90, BlockPercent: 98}, logging.GetLogger("handlers-test"))
	return storage.NewArtifactService(store, "file", "")
}

func jpegFrame(t *testing.T, fill color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

type fakeResolver struct {
	handle capture.Handle
	err    error
}

func (f *fakeResolver) ResolveHandle(ctx context.Context, streamID string) (capture.Handle, error) {
	return f.handle, f.err
}

type fakeHandle struct {
	frame   []byte
	err     error
	stopped bool
}

func (f *fakeHandle) Snapshot(ctx context.Context, opts capture.SnapshotOptions) ([]byte, error) {
	return f.frame, f.err
}

func (f *fakeHandle) Stop(ctx context.Context) error {
	f.stopped = true
	return nil
}

func mustConfigJSON(t *testing.T, streamID string) string {
	t.Helper()
	b, err := json.Marshal(jobConfig{StreamID: streamID})
	require.NoError(t, err)
	return string(b)
}

func TestSnapshotHandler_SavesArtifactAndRow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snap.db")
	db, err := persistence.Open(config.DatabaseConfig{Path: dbPath, PoolSize: 4})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool := persistence.NewPoolManager(db, config.Config{
		Database: config.DatabaseConfig{PoolSize: 4},
		Breaker:  config.CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 1, RecoveryTimeoutSec: 1},
	}, logging.GetLogger("handlers-test"))

	handler := &SnapshotHandler{
		Resolver:  &fakeResolver{handle: &fakeHandle{frame: jpegFrame(t, color.White)}},
		Artifacts: testArtifactService(t),
		Snapshots: persistence.NewSnapshotRepository(pool),
		Logger:    logging.GetLogger("handlers-test"),
	}

	job := &domain.ScheduledJob{ConfigJSON: mustConfigJSON(t, "stream-1")}
	result, err := handler.Handle(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, result, "snapshot_id")
}

func TestHealthCheckHandler_ReportsUnhealthyOnResolveError(t *testing.T) {
	handler := &HealthCheckHandler{
		Resolver: &fakeResolver{err: assertErr("unreachable")},
		Logger:   logging.GetLogger("handlers-test"),
	}
	job := &domain.ScheduledJob{ConfigJSON: mustConfigJSON(t, "stream-1")}
	result, err := handler.Handle(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, result, `"healthy":false`)
}

func TestHealthCheckHandler_ReportsHealthy(t *testing.T) {
	handler := &HealthCheckHandler{
		Resolver: &fakeResolver{handle: &fakeHandle{frame: jpegFrame(t, color.Black)}},
		Logger:   logging.GetLogger("handlers-test"),
	}
	job := &domain.ScheduledJob{ConfigJSON: mustConfigJSON(t, "stream-1")}
	result, err := handler.Handle(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, result, `"healthy":true`)
}

func TestPerceptualHash_IdenticalFramesMatch(t *testing.T) {
	frame := jpegFrame(t, color.White)
	h1 := perceptualHash(frame)
	h2 := perceptualHash(frame)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 0, hammingDistance(h1, h2))
}

func TestPerceptualHash_DifferentFramesDiffer(t *testing.T) {
	white := perceptualHash(jpegFrame(t, color.White))
	black := perceptualHash(jpegFrame(t, color.Black))
	assert.NotEqual(t, white, black)
}

func TestHammingDistance_MalformedHashIsMaximallyDifferent(t *testing.T) {
	assert.Equal(t, 64, hammingDistance("", "0123456789abcdef"))
}
