package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"marketingops/internal/domain/compliance"
)

const (
	JobRetentionSweep = "retention_sweep"
	JobDeletionPurge  = "scheduled_deletion_purge"
)

// Retention is the part of the retention service the scheduler drives.
type Retention interface {
	ApplyRetentionPolicies(ctx context.Context, entityType string) (*compliance.RetentionReport, error)
	PurgeScheduledDeletions(ctx context.Context) (map[string]int64, error)
}

// RunStore persists job run history. A nil RunStore only logs.
type RunStore interface {
	StartRun(ctx context.Context, jobType string) (string, error)
	FinishRun(ctx context.Context, runID, status string, details []byte) error
}

type PurgeRecorder interface {
	RecordPurge(purged map[string]int64)
}

type Options struct {
	RetentionInterval time.Duration
	Runs              RunStore
	Purges            PurgeRecorder
}

type Service struct {
	retention Retention
	opts      Options
	queue     chan job
	wg        sync.WaitGroup
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(retention Retention, opts Options) *Service {
	return &Service{
		retention: retention,
		opts:      opts,
		queue:     make(chan job, 128),
	}
}

// Start runs the worker and, when an interval is set, the sweep scheduler.
// Both stop when ctx is cancelled; Wait blocks until they have.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
	if s.opts.RetentionInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.scheduleRetention(ctx, s.opts.RetentionInterval)
		}()
	}
}

func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// SweepNow runs one retention sweep synchronously and records the run.
func (s *Service) SweepNow(ctx context.Context, entityType string) (*compliance.RetentionReport, error) {
	out, err := s.RunNow(ctx, JobRetentionSweep, s.sweepJob(entityType))
	report, _ := out.(*compliance.RetentionReport)
	return report, err
}

func (s *Service) PurgeNow(ctx context.Context) (map[string]int64, error) {
	out, err := s.RunNow(ctx, JobDeletionPurge, s.purgeJob())
	purged, _ := out.(map[string]int64)
	return purged, err
}

func (s *Service) sweepJob(entityType string) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		return s.retention.ApplyRetentionPolicies(ctx, entityType)
	}
}

func (s *Service) purgeJob() func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		purged, err := s.retention.PurgeScheduledDeletions(ctx)
		if err == nil && s.opts.Purges != nil {
			s.opts.Purges.RecordPurge(purged)
		}
		return purged, err
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.opts.Runs != nil {
		id, err := s.opts.Runs.StartRun(ctx, j.Type)
		if err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
		runID = id
	}

	started := time.Now()
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	slog.Info("job finished", "jobType", j.Type, "status", status, "durationMs", time.Since(started).Milliseconds())

	if runID != "" {
		detailsJSON, marshalErr := json.Marshal(details)
		if marshalErr != nil {
			slog.Warn("job details marshal failed", "err", marshalErr)
			detailsJSON = []byte("{}")
		}
		if updErr := s.opts.Runs.FinishRun(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

// scheduleRetention enqueues a sweep followed by a purge on every tick.
func (s *Service) scheduleRetention(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobRetentionSweep, s.sweepJob(""))
			s.Enqueue(JobDeletionPurge, s.purgeJob())
		}
	}
}
