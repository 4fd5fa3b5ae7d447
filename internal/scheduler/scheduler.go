// Package scheduler dispatches cron-scheduled jobs: snapshot/capture
// triggers, retention cleanup, health checks, motion/AI analysis, and
// maintenance sweeps. One Scheduler owns a registry of ScheduledJobs,
// computes each job's next fire time with jitter, and serializes dispatch
// per (templateID, kind) pair so a slow handler can't overlap itself.
package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
	"github.com/sentryhub/capturectl/internal/logging"
	"github.com/sentryhub/capturectl/internal/persistence"
)

// JobHandler executes one ScheduledJob's work. Handlers are registered by
// domain.JobKind and must be safe to call concurrently across distinct
// jobs (the Scheduler itself guarantees no two calls for the *same*
// (templateID, kind) pair overlap).
type JobHandler interface {
	Handle(ctx context.Context, job *domain.ScheduledJob) (resultJSON string, err error)
}

// runningKey identifies one (templateID, kind) dispatch slot.
type runningKey struct {
	templateID string
	kind       domain.JobKind
}

// entry is the Scheduler's in-memory view of one registered job: the
// domain row plus its parsed cron schedule.
type entry struct {
	job      *domain.ScheduledJob
	schedule cron.Schedule
}

// Scheduler owns the set of registered jobs, computes next-run times with
// jitter, and dispatches due jobs to their JobHandler, persisting a
// JobExecution row for every dispatch attempt.
type Scheduler struct {
	logger      *logging.Logger
	jobs        *persistence.ScheduledJobRepository
	executions  *persistence.JobExecutionRepository
	handlers    map[domain.JobKind]JobHandler
	maxJitterMs int

	mu      sync.Mutex
	entries map[string]*entry // jobID -> entry

	runningMu sync.Mutex
	running   map[runningKey]struct{}

	tickInterval time.Duration
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// New constructs a Scheduler. maxJitterMs bounds the random delay added
// to each computed next-run time (0 disables jitter).
func New(jobs *persistence.ScheduledJobRepository, executions *persistence.JobExecutionRepository, maxJitterMs int, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		logger:       logger,
		jobs:         jobs,
		executions:   executions,
		handlers:     make(map[domain.JobKind]JobHandler),
		maxJitterMs:  maxJitterMs,
		entries:      make(map[string]*entry),
		running:      make(map[runningKey]struct{}),
		tickInterval: time.Second,
	}
}

// RegisterHandler wires handler to be invoked for every job of kind.
func (s *Scheduler) RegisterHandler(kind domain.JobKind, handler JobHandler) {
	s.handlers[kind] = handler
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// parseCron validates expr the way Register/Enable require, returning
// apperrors.Validation on a malformed expression.
func parseCron(expr string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, apperrors.Validation("scheduler.parseCron", fmt.Sprintf("invalid cron expression: %v", err))
	}
	return schedule, nil
}

// Register validates job's cron expression and adds it to the in-memory
// schedule. The job must already be persisted (its ID populated).
func (s *Scheduler) Register(job *domain.ScheduledJob) error {
	schedule, err := parseCron(job.CronExpression)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[job.ID] = &entry{job: job, schedule: schedule}
	return nil
}

// Unregister removes jobID from the in-memory schedule.
func (s *Scheduler) Unregister(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, jobID)
}

// LoadEnabled registers every enabled job from the repository, for
// scheduler startup.
func (s *Scheduler) LoadEnabled(ctx context.Context) error {
	jobs, err := s.jobs.ListEnabled(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := s.Register(job); err != nil {
			s.logger.WithError(err).WithField("job_id", job.ID).Warn("skipping job with invalid cron expression")
		}
	}
	return nil
}

// nextRunWithJitter computes schedule's next fire time after now, plus a
// random jitter bounded by maxJitterMs. Jitter is computed with
// math/rand/v2, not crypto/rand: next-run timing is not security
// sensitive.
func (s *Scheduler) nextRunWithJitter(schedule cron.Schedule, now time.Time) time.Time {
	next := schedule.Next(now)
	if s.maxJitterMs <= 0 {
		return next
	}
	jitter := time.Duration(rand.Int64N(int64(s.maxJitterMs))) * time.Millisecond
	return next.Add(jitter)
}

// Start launches the Scheduler's dispatch loop, polling every
// tickInterval for jobs whose computed next-run has elapsed. Start
// returns immediately; call Stop to shut the loop down.
func (s *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case now := <-ticker.C:
				s.tick(runCtx, now)
			}
		}
	}()
}

// Stop cancels the dispatch loop and waits for it to exit. In-flight
// handler invocations are not interrupted.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// tick finds every job due at now and dispatches it asynchronously.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	var due []*domain.ScheduledJob

	s.mu.Lock()
	for _, e := range s.entries {
		if !e.job.Enabled {
			continue
		}
		if e.job.NextRun == nil {
			next := s.nextRunWithJitter(e.schedule, now)
			e.job.NextRun = &next
			continue
		}
		if !e.job.NextRun.After(now) {
			due = append(due, e.job)
			next := s.nextRunWithJitter(e.schedule, now)
			e.job.NextRun = &next
		}
	}
	s.mu.Unlock()

	for _, job := range due {
		go s.dispatch(ctx, job)
	}
}

// dispatch runs job's handler exactly once, guarded by the
// (templateID, kind) idempotency lock, persisting a JobExecution row
// before and after the attempt.
func (s *Scheduler) dispatch(ctx context.Context, job *domain.ScheduledJob) {
	templateID := job.ID
	if job.TemplateID != nil {
		templateID = *job.TemplateID
	}
	key := runningKey{templateID: templateID, kind: job.Kind}

	s.runningMu.Lock()
	if _, inFlight := s.running[key]; inFlight {
		s.runningMu.Unlock()
		s.logger.WithField("job_id", job.ID).Debug("skipping dispatch, previous run still in flight")
		return
	}
	s.running[key] = struct{}{}
	s.runningMu.Unlock()

	defer func() {
		s.runningMu.Lock()
		delete(s.running, key)
		s.runningMu.Unlock()
	}()

	handler, ok := s.handlers[job.Kind]
	if !ok {
		s.logger.WithField("kind", string(job.Kind)).Warn("no handler registered for job kind")
		return
	}

	execution := &domain.JobExecution{
		ID:        domain.NewID("exec"),
		JobID:     job.ID,
		Status:    domain.JobStatusProcessing,
		StartedAt: time.Now().UTC(),
	}
	if err := s.executions.Create(ctx, execution); err != nil {
		s.logger.WithError(err).WithField("job_id", job.ID).Error("failed to record job execution start")
	}

	start := time.Now()
	resultJSON, err := handler.Handle(ctx, job)
	duration := time.Since(start).Milliseconds()
	completedAt := time.Now().UTC()

	execution.CompletedAt = &completedAt
	execution.DurationMs = &duration
	execution.ResultJSON = resultJSON
	if err != nil {
		execution.Status = domain.JobStatusFailed
		execution.Error = err.Error()
		s.logger.WithError(err).WithField("job_id", job.ID).Error("job handler failed")
	} else {
		execution.Status = domain.JobStatusCompleted
	}

	if uerr := s.executions.Update(ctx, execution); uerr != nil {
		s.logger.WithError(uerr).WithField("job_id", job.ID).Error("failed to record job execution completion")
	}

	s.mu.Lock()
	job.LastRun = &completedAt
	s.mu.Unlock()
	if uerr := s.jobs.Update(ctx, job); uerr != nil {
		s.logger.WithError(uerr).WithField("job_id", job.ID).Error("failed to persist job's last_run/next_run")
	}
}
