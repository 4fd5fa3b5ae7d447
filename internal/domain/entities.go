package domain

import (
	"strings"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// ExecutionStatus is the lifecycle state of a Stream's most recent run.
type ExecutionStatus string

const (
	ExecutionInactive  ExecutionStatus = "inactive"
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionSucceeded ExecutionStatus = "succeeded"
	ExecutionFailed    ExecutionStatus = "failed"
)

// CaptureStatus is the lifecycle state of a Capture recording.
type CaptureStatus string

const (
	CaptureStatusPending   CaptureStatus = "pending"
	CaptureStatusRunning   CaptureStatus = "running"
	CaptureStatusCompleted CaptureStatus = "completed"
	CaptureStatusFailed    CaptureStatus = "failed"
)

// JobStatus is the lifecycle state of a BackgroundSnapshotJob.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// JobKind names the handler a ScheduledJob dispatches to.
type JobKind string

const (
	JobKindSnapshot        JobKind = "Snapshot"
	JobKindCapture         JobKind = "Capture"
	JobKindCleanup         JobKind = "Cleanup"
	JobKindHealthCheck     JobKind = "HealthCheck"
	JobKindMotionDetection JobKind = "MotionDetection"
	JobKindAiAnalysis      JobKind = "AiAnalysis"
	JobKindMaintenance     JobKind = "Maintenance"
	JobKindSmartSnapshot   JobKind = "SmartSnapshot"
)

// Severity is the analysis-event severity scale.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// DeliveryStatus is the lifecycle state of a NotificationDelivery.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryRetry     DeliveryStatus = "retry"
)

// User is an authenticated account. Passwords are never stored in plain
// text; PasswordHash holds an Argon2id-encoded hash per persistence's
// hashing parameters.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks required fields, mirroring the teacher's field-by-field
// ValidationResult style without carrying the full InputValidator type.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return apperrors.Validation("User.Validate", "username is required")
	}
	if !strings.Contains(u.Email, "@") {
		return apperrors.Validation("User.Validate", "email is invalid")
	}
	if u.PasswordHash == "" {
		return apperrors.Validation("User.Validate", "password_hash is required")
	}
	return nil
}

// StreamSourceKind tags the variant of Stream.ConfigJSON.
type StreamSourceKind string

const (
	StreamSourceFile    StreamSourceKind = "file"
	StreamSourceFFmpeg  StreamSourceKind = "ffmpeg"
	StreamSourceYTDLP   StreamSourceKind = "yt_dlp"
	StreamSourceWebsite StreamSourceKind = "website"
)

// Stream is a capture configuration owned by a User.
type Stream struct {
	ID                string
	UserID            string
	Name              string
	Description       string
	ConfigJSON        string
	IsDefault         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ExecutionStatus   ExecutionStatus
	LastExecutedAt    *time.Time
	LastErrorMessage  string
}

// Validate checks required fields and the execution_status enum.
func (s *Stream) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return apperrors.Validation("Stream.Validate", "user_id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return apperrors.Validation("Stream.Validate", "name is required")
	}
	switch s.ExecutionStatus {
	case ExecutionInactive, ExecutionPending, ExecutionRunning, ExecutionSucceeded, ExecutionFailed:
	default:
		return apperrors.Validation("Stream.Validate", "execution_status is invalid")
	}
	return nil
}

// Snapshot is an immutable captured frame.
type Snapshot struct {
	ID             string
	StreamID       string
	UserID         string
	FilePath       string
	StorageURI     string
	ContentType    string
	Width          *int
	Height         *int
	FileSize       int64
	Checksum       string
	ETag           string
	CapturedAt     time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PerceptualHash string
}

// Validate checks required fields.
func (s *Snapshot) Validate() error {
	if strings.TrimSpace(s.StreamID) == "" {
		return apperrors.Validation("Snapshot.Validate", "stream_id is required")
	}
	if strings.TrimSpace(s.StorageURI) == "" {
		return apperrors.Validation("Snapshot.Validate", "storage_uri is required")
	}
	if s.FileSize < 0 {
		return apperrors.Validation("Snapshot.Validate", "file_size must be non-negative")
	}
	return nil
}

// Capture is a time-bounded recording, parallel to Snapshot.
type Capture struct {
	ID          string
	StreamID    string
	UserID      string
	FilePath    string
	StorageURI  string
	ContentType string
	FileSize    int64
	Checksum    string
	Status      CaptureStatus
	StartedAt   time.Time
	EndedAt     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks required fields and the status enum.
func (c *Capture) Validate() error {
	if strings.TrimSpace(c.StreamID) == "" {
		return apperrors.Validation("Capture.Validate", "stream_id is required")
	}
	switch c.Status {
	case CaptureStatusPending, CaptureStatusRunning, CaptureStatusCompleted, CaptureStatusFailed:
	default:
		return apperrors.Validation("Capture.Validate", "status is invalid")
	}
	return nil
}

// BackgroundSnapshotJob tracks an ad-hoc (non-cron) snapshot request.
type BackgroundSnapshotJob struct {
	ID           string
	InputPath    string
	StreamID     *string
	Status       JobStatus
	ConfigJSON   string
	ResultSize   *int64
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	DurationMs   *int64
	CreatedBy    string
	MetadataJSON string
}

// Validate checks required fields and the status enum, and that the
// pending → processing → {completed|failed|cancelled} machine is only
// ever assigned a known state (transition legality is enforced by
// callers, not here).
func (j *BackgroundSnapshotJob) Validate() error {
	if strings.TrimSpace(j.InputPath) == "" {
		return apperrors.Validation("BackgroundSnapshotJob.Validate", "input_path is required")
	}
	switch j.Status {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
	default:
		return apperrors.Validation("BackgroundSnapshotJob.Validate", "status is invalid")
	}
	return nil
}

// IsTerminal reports whether the job has reached a sink state.
func (j *BackgroundSnapshotJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// ScheduledJob is a cron-driven dispatch definition.
type ScheduledJob struct {
	ID             string
	Name           string
	Kind           JobKind
	CronExpression string
	LastRun        *time.Time
	NextRun        *time.Time
	JitterMs       int
	Enabled        bool
	ConfigJSON     string
	UserID         string
	TemplateID     *string
}

// Validate checks required fields, the kind enum, and the next_run ≥ now
// invariant when enabled.
func (j *ScheduledJob) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return apperrors.Validation("ScheduledJob.Validate", "name is required")
	}
	switch j.Kind {
	case JobKindSnapshot, JobKindCapture, JobKindCleanup, JobKindHealthCheck,
		JobKindMotionDetection, JobKindAiAnalysis, JobKindMaintenance, JobKindSmartSnapshot:
	default:
		return apperrors.Validation("ScheduledJob.Validate", "kind is invalid")
	}
	if strings.TrimSpace(j.CronExpression) == "" {
		return apperrors.Validation("ScheduledJob.Validate", "cron_expression is required")
	}
	if j.Enabled && j.NextRun != nil && j.NextRun.Before(time.Now().UTC()) {
		return apperrors.Validation("ScheduledJob.Validate", "next_run must not be in the past while enabled")
	}
	return nil
}

// JobExecution records one dispatch of a ScheduledJob.
type JobExecution struct {
	ID          string
	JobID       string
	Status      JobStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	DurationMs  *int64
	ResultJSON  string
	Error       string
	RetryCount  int
	ExecutedOn  string
}

// Validate checks required fields.
func (e *JobExecution) Validate() error {
	if strings.TrimSpace(e.JobID) == "" {
		return apperrors.Validation("JobExecution.Validate", "job_id is required")
	}
	return nil
}

// AnalysisEvent records the outcome of a motion/AI analysis pass.
type AnalysisEvent struct {
	ID                   string
	TemplateID           string
	EventType            string
	Severity             Severity
	Confidence           float64
	Description          string
	MetadataJSON         string
	ProcessorName        string
	SourceID             string
	ShouldNotify         bool
	SuggestedActionsJSON string
	CreatedAt            time.Time
}

// Validate checks required fields and the severity enum.
func (e *AnalysisEvent) Validate() error {
	if strings.TrimSpace(e.SourceID) == "" {
		return apperrors.Validation("AnalysisEvent.Validate", "source_id is required")
	}
	switch e.Severity {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
	default:
		return apperrors.Validation("AnalysisEvent.Validate", "severity is invalid")
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return apperrors.Validation("AnalysisEvent.Validate", "confidence must be in [0,1]")
	}
	return nil
}

// NotificationDelivery tracks one channel's delivery attempt for an
// AnalysisEvent.
type NotificationDelivery struct {
	ID               string
	AnalysisEventID  string
	ChannelType      string
	ChannelConfig    string
	Status           DeliveryStatus
	AttemptCount     int
	MaxAttempts      int
	ScheduledAt      time.Time
	SentAt           *time.Time
	DeliveredAt      *time.Time
	FailedAt         *time.Time
	ErrorMessage     string
	ExternalID       string
	MetadataJSON     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate checks required fields and the attempt_count ≤ max_attempts
// invariant.
func (d *NotificationDelivery) Validate() error {
	if strings.TrimSpace(d.AnalysisEventID) == "" {
		return apperrors.Validation("NotificationDelivery.Validate", "analysis_event_id is required")
	}
	if strings.TrimSpace(d.ChannelType) == "" {
		return apperrors.Validation("NotificationDelivery.Validate", "channel_type is required")
	}
	if d.AttemptCount > d.MaxAttempts {
		return apperrors.Validation("NotificationDelivery.Validate", "attempt_count exceeds max_attempts")
	}
	return nil
}

// IsTerminal reports whether the delivery has reached a sink state:
// delivered, or failed with attempts exhausted.
func (d *NotificationDelivery) IsTerminal() bool {
	if d.Status == DeliveryDelivered {
		return true
	}
	return d.Status == DeliveryFailed && d.AttemptCount >= d.MaxAttempts
}

// ApiKey is hashed key material plus metadata; lookups are by hash only.
type ApiKey struct {
	ID         string
	UserID     string
	Name       string
	KeyHash    string
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	Revoked    bool
}

// Validate checks required fields.
func (k *ApiKey) Validate() error {
	if strings.TrimSpace(k.UserID) == "" {
		return apperrors.Validation("ApiKey.Validate", "user_id is required")
	}
	if strings.TrimSpace(k.KeyHash) == "" {
		return apperrors.Validation("ApiKey.Validate", "key_hash is required")
	}
	return nil
}
