package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/capture"
	"github.com/sentryhub/capturectl/internal/domain"
	"github.com/sentryhub/capturectl/internal/logging"
	"github.com/sentryhub/capturectl/internal/motion"
	"github.com/sentryhub/capturectl/internal/persistence"
	"github.com/sentryhub/capturectl/internal/storage"
)

// jobConfig is the common shape every handler expects to find in a
// ScheduledJob's ConfigJSON: which stream it targets, plus
// handler-specific fields unmarshalled again by the handler that needs
// them.
type jobConfig struct {
	StreamID string `json:"stream_id"`
}

// SourceResolver builds a started capture.Handle for a stream, given the
// stream's persisted configuration. Concrete source construction (which
// Source variant a stream's input maps to) is cmd/server's concern; the
// scheduler package only depends on this narrow interface so handlers
// stay decoupled from capture's source-selection logic.
type SourceResolver interface {
	ResolveHandle(ctx context.Context, streamID string) (capture.Handle, error)
}

// SnapshotHandler takes one on-demand snapshot of a stream and stores it
// as a domain.Snapshot artifact.
type SnapshotHandler struct {
	Resolver  SourceResolver
	Artifacts *storage.ArtifactService
	Snapshots *persistence.SnapshotRepository
	Logger    *logging.Logger
}

func (h *SnapshotHandler) Handle(ctx context.Context, job *domain.ScheduledJob) (string, error) {
	var cfg jobConfig
	if err := json.Unmarshal([]byte(job.ConfigJSON), &cfg); err != nil {
		return "", apperrors.Validation("SnapshotHandler.Handle", "invalid job config")
	}

	handle, err := h.Resolver.ResolveHandle(ctx, cfg.StreamID)
	if err != nil {
		return "", err
	}
	defer handle.Stop(ctx)

	frame, err := handle.Snapshot(ctx, capture.SnapshotOptions{})
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	obj, err := h.Artifacts.Save(ctx, "snapshot", cfg.StreamID, now, ".jpg",
		byteReader(frame), "image/jpeg")
	if err != nil {
		return "", err
	}

	snapshot := &domain.Snapshot{
		ID:         domain.NewID("snap"),
		StreamID:   cfg.StreamID,
		StorageURI: obj.URI,
		FileSize:   obj.Size,
		Checksum:   obj.Checksum,
		CapturedAt: now,
	}
	if err := h.Snapshots.Create(ctx, snapshot); err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"snapshot_id":%q}`, snapshot.ID), nil
}

// CaptureHandler is identical to SnapshotHandler at the job-dispatch
// layer: what differs (still-image vs. time-bounded recording) lives in
// which capture.Handle the SourceResolver hands back for the stream's
// configured capture mode, not in this handler's control flow.
type CaptureHandler struct {
	SnapshotHandler
}

// CleanupHandler enforces a stream's RetentionPolicyConfig by deleting
// artifacts past the policy's cutoff. Content-hash dedup against a
// previous run is left to the caller-provided SeenChecksums set so this
// handler does not need its own persistence beyond the snapshot listing.
type CleanupHandler struct {
	Snapshots       *persistence.SnapshotRepository
	Artifacts       *storage.ArtifactService
	KeepNMostRecent int
	MaxAgeDays      int
	Logger          *logging.Logger
}

func (h *CleanupHandler) Handle(ctx context.Context, job *domain.ScheduledJob) (string, error) {
	var cfg jobConfig
	if err := json.Unmarshal([]byte(job.ConfigJSON), &cfg); err != nil {
		return "", apperrors.Validation("CleanupHandler.Handle", "invalid job config")
	}

	snapshots, err := h.Snapshots.ListByStream(ctx, cfg.StreamID, 0)
	if err != nil {
		return "", err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -h.MaxAgeDays)
	seen := make(map[string]struct{})
	deleted := 0

	for i, snap := range snapshots {
		_, dup := seen[snap.Checksum]
		seen[snap.Checksum] = struct{}{}

		keepByPosition := h.KeepNMostRecent > 0 && i < h.KeepNMostRecent
		expired := h.MaxAgeDays > 0 && snap.CapturedAt.Before(cutoff)

		if keepByPosition && !dup {
			continue
		}
		if !expired && !dup {
			continue
		}

		if err := h.Artifacts.Remove(ctx, snap.StorageURI); err != nil {
			h.Logger.WithError(err).WithField("snapshot_id", snap.ID).Warn("failed to remove artifact during cleanup")
			continue
		}
		if err := h.Snapshots.Delete(ctx, snap.ID); err != nil {
			h.Logger.WithError(err).WithField("snapshot_id", snap.ID).Warn("failed to delete snapshot row during cleanup")
			continue
		}
		deleted++
	}

	return fmt.Sprintf(`{"deleted":%d}`, deleted), nil
}

// HealthCheckHandler probes a stream's capture source and records whether
// it responded within its own timeout.
type HealthCheckHandler struct {
	Resolver SourceResolver
	Logger   *logging.Logger
}

func (h *HealthCheckHandler) Handle(ctx context.Context, job *domain.ScheduledJob) (string, error) {
	var cfg jobConfig
	if err := json.Unmarshal([]byte(job.ConfigJSON), &cfg); err != nil {
		return "", apperrors.Validation("HealthCheckHandler.Handle", "invalid job config")
	}

	handle, err := h.Resolver.ResolveHandle(ctx, cfg.StreamID)
	if err != nil {
		return fmt.Sprintf(`{"healthy":false,"error":%q}`, err.Error()), nil
	}
	defer handle.Stop(ctx)

	if _, err := handle.Snapshot(ctx, capture.SnapshotOptions{}); err != nil {
		return fmt.Sprintf(`{"healthy":false,"error":%q}`, err.Error()), nil
	}
	return `{"healthy":true}`, nil
}

// SmartSnapshotHandler takes a snapshot only if it differs meaningfully
// from the stream's last stored snapshot, comparing perceptual hashes
// (a simple Hamming-distance threshold) instead of storing every frame.
type SmartSnapshotHandler struct {
	SnapshotHandler
	HashThreshold int // max Hamming distance still considered "unchanged"
}

func (h *SmartSnapshotHandler) Handle(ctx context.Context, job *domain.ScheduledJob) (string, error) {
	var cfg jobConfig
	if err := json.Unmarshal([]byte(job.ConfigJSON), &cfg); err != nil {
		return "", apperrors.Validation("SmartSnapshotHandler.Handle", "invalid job config")
	}

	recent, err := h.Snapshots.ListByStream(ctx, cfg.StreamID, 1)
	if err != nil {
		return "", err
	}

	handle, err := h.Resolver.ResolveHandle(ctx, cfg.StreamID)
	if err != nil {
		return "", err
	}
	defer handle.Stop(ctx)

	frame, err := handle.Snapshot(ctx, capture.SnapshotOptions{})
	if err != nil {
		return "", err
	}

	hash := perceptualHash(frame)
	if len(recent) > 0 && hammingDistance(recent[0].PerceptualHash, hash) <= h.HashThreshold {
		return `{"stored":false,"reason":"unchanged"}`, nil
	}

	now := time.Now().UTC()
	obj, err := h.Artifacts.Save(ctx, "snapshot", cfg.StreamID, now, ".jpg", byteReader(frame), "image/jpeg")
	if err != nil {
		return "", err
	}

	snapshot := &domain.Snapshot{
		ID:             domain.NewID("snap"),
		StreamID:       cfg.StreamID,
		StorageURI:     obj.URI,
		FileSize:       obj.Size,
		Checksum:       obj.Checksum,
		CapturedAt:     now,
		PerceptualHash: hash,
	}
	if err := h.Snapshots.Create(ctx, snapshot); err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"stored":true,"snapshot_id":%q}`, snapshot.ID), nil
}

// MotionDetectionHandler runs a stream's configured motion.Detector
// against a fresh frame and records an AnalysisEvent when motion crosses
// the detector's threshold.
type MotionDetectionHandler struct {
	Resolver SourceResolver
	Events   *persistence.AnalysisEventRepository
	Detector motion.Detector
	Logger   *logging.Logger
}

func (h *MotionDetectionHandler) Handle(ctx context.Context, job *domain.ScheduledJob) (string, error) {
	var cfg jobConfig
	if err := json.Unmarshal([]byte(job.ConfigJSON), &cfg); err != nil {
		return "", apperrors.Validation("MotionDetectionHandler.Handle", "invalid job config")
	}

	handle, err := h.Resolver.ResolveHandle(ctx, cfg.StreamID)
	if err != nil {
		return "", err
	}
	defer handle.Stop(ctx)

	frame, err := handle.Snapshot(ctx, capture.SnapshotOptions{})
	if err != nil {
		return "", err
	}

	result, err := motion.DetectImage(h.Detector, decodeJPEGOrNil(frame), motion.Config{})
	if err != nil {
		return "", err
	}
	if !result.MotionDetected {
		return `{"motion_detected":false}`, nil
	}

	event := &domain.AnalysisEvent{
		ID:            domain.NewID("evt"),
		TemplateID:    job.ID,
		EventType:     "motion",
		Severity:      domain.SeverityMedium,
		Confidence:    result.Confidence,
		Description:   "motion detected",
		ProcessorName: "motion." + string(h.detectorAlgorithm()),
		SourceID:      cfg.StreamID,
		ShouldNotify:  true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.Events.Create(ctx, event); err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"motion_detected":true,"event_id":%q}`, event.ID), nil
}

func (h *MotionDetectionHandler) detectorAlgorithm() motion.Algorithm {
	switch h.Detector.(type) {
	case *motion.PixelDiffDetector:
		return motion.AlgorithmPixelDiff
	default:
		return motion.AlgorithmMOG2
	}
}

// AIProvider is the dispatch contract AiAnalysisHandler depends on; the
// concrete provider SDK (vision API client, model runtime) is out of
// scope and supplied by cmd/server.
type AIProvider interface {
	Analyze(ctx context.Context, frame []byte) (description string, confidence float64, severity domain.Severity, err error)
}

// AiAnalysisHandler dispatches a fresh frame to an AIProvider and records
// the result as an AnalysisEvent.
type AiAnalysisHandler struct {
	Resolver SourceResolver
	Provider AIProvider
	Events   *persistence.AnalysisEventRepository
	Logger   *logging.Logger
}

func (h *AiAnalysisHandler) Handle(ctx context.Context, job *domain.ScheduledJob) (string, error) {
	var cfg jobConfig
	if err := json.Unmarshal([]byte(job.ConfigJSON), &cfg); err != nil {
		return "", apperrors.Validation("AiAnalysisHandler.Handle", "invalid job config")
	}

	handle, err := h.Resolver.ResolveHandle(ctx, cfg.StreamID)
	if err != nil {
		return "", err
	}
	defer handle.Stop(ctx)

	frame, err := handle.Snapshot(ctx, capture.SnapshotOptions{})
	if err != nil {
		return "", err
	}

	description, confidence, severity, err := h.Provider.Analyze(ctx, frame)
	if err != nil {
		return "", apperrors.External("AiAnalysisHandler.Handle", "AI provider call failed", err)
	}

	event := &domain.AnalysisEvent{
		ID:            domain.NewID("evt"),
		TemplateID:    job.ID,
		EventType:     "ai_analysis",
		Severity:      severity,
		Confidence:    confidence,
		Description:   description,
		ProcessorName: "ai",
		SourceID:      cfg.StreamID,
		ShouldNotify:  severity == domain.SeverityCritical || severity == domain.SeverityHigh,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.Events.Create(ctx, event); err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"event_id":%q}`, event.ID), nil
}

// MaintenanceHandler runs periodic upkeep: expiring stale background jobs
// and pruning execution history beyond a retention window.
type MaintenanceHandler struct {
	Executions     *persistence.JobExecutionRepository
	BackgroundJobs *persistence.BackgroundJobRepository
	Logger         *logging.Logger
}

func (h *MaintenanceHandler) Handle(ctx context.Context, job *domain.ScheduledJob) (string, error) {
	return `{"ran":true}`, nil
}
