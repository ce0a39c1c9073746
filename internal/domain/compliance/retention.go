package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultDeletionGrace is how long an archived row that supports scheduled
// deletion stays in the live table before PurgeScheduledDeletions removes it.
const DefaultDeletionGrace = 30 * day

type RetentionStoreAPI interface {
	Transactor
	RetentionStore
}

// SweepRecorder observes finished retention sweeps.
type SweepRecorder interface {
	RecordSweep(report RetentionReport)
}

type RetentionOption func(*RetentionService)

func WithDeletionGrace(grace time.Duration) RetentionOption {
	return func(s *RetentionService) {
		if grace > 0 {
			s.grace = grace
		}
	}
}

func WithSweepRecorder(recorder SweepRecorder) RetentionOption {
	return func(s *RetentionService) {
		s.recorder = recorder
	}
}

type RetentionService struct {
	store    RetentionStoreAPI
	archive  ArchiveSink
	recorder SweepRecorder
	grace    time.Duration
}

func NewRetentionService(store RetentionStoreAPI, archive ArchiveSink, opts ...RetentionOption) *RetentionService {
	s := &RetentionService{store: store, archive: archive, grace: DefaultDeletionGrace}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validatePolicy(entityType string, days int, strategy ArchiveStrategy) error {
	if trimmed(entityType) == "" {
		return invalid("entityType", "is required", nil)
	}
	if days <= 0 {
		return invalid("retentionPeriodDays", "must be greater than zero", nil)
	}
	switch strategy {
	case ArchiveStrategyArchive, ArchiveStrategyDelete:
	default:
		return invalid("archiveStrategy", "must be archive or delete", nil)
	}
	return nil
}

func (s *RetentionService) CreatePolicy(ctx context.Context, input PolicyInput) (*RetentionPolicy, error) {
	input.EntityType = trimmed(input.EntityType)
	if err := validatePolicy(input.EntityType, input.RetentionPeriodDays, input.ArchiveStrategy); err != nil {
		return nil, err
	}
	existing, err := s.store.GetPolicy(ctx, input.EntityType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPolicyExists
	}
	appliesToDeleted := true
	if input.AppliesToDeleted != nil {
		appliesToDeleted = *input.AppliesToDeleted
	}
	now := timeNow().UTC()
	policy := &RetentionPolicy{
		EntityType:          input.EntityType,
		RetentionPeriodDays: input.RetentionPeriodDays,
		ArchiveStrategy:     input.ArchiveStrategy,
		LegalBasis:          input.LegalBasis,
		AppliesToDeleted:    appliesToDeleted,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.store.CreatePolicy(ctx, policy); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrPolicyExists
		}
		return nil, err
	}
	return policy, nil
}

func (s *RetentionService) GetPolicy(ctx context.Context, entityType string) (*RetentionPolicy, error) {
	return s.store.GetPolicy(ctx, entityType)
}

func (s *RetentionService) ListPolicies(ctx context.Context) ([]RetentionPolicy, error) {
	return s.store.ListPolicies(ctx)
}

// UpdatePolicy changes only the fields set in update. It returns nil when
// no policy exists for entityType.
func (s *RetentionService) UpdatePolicy(ctx context.Context, entityType string, update PolicyUpdate) (*RetentionPolicy, error) {
	policy, err := s.store.GetPolicy(ctx, entityType)
	if err != nil || policy == nil {
		return nil, err
	}
	if update.RetentionPeriodDays != nil {
		policy.RetentionPeriodDays = *update.RetentionPeriodDays
	}
	if update.ArchiveStrategy != nil {
		policy.ArchiveStrategy = *update.ArchiveStrategy
	}
	if update.LegalBasis != nil {
		policy.LegalBasis = update.LegalBasis
	}
	if update.AppliesToDeleted != nil {
		policy.AppliesToDeleted = *update.AppliesToDeleted
	}
	if err := validatePolicy(policy.EntityType, policy.RetentionPeriodDays, policy.ArchiveStrategy); err != nil {
		return nil, err
	}
	policy.UpdatedAt = timeNow().UTC()
	if err := s.store.UpdatePolicy(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *RetentionService) DeletePolicy(ctx context.Context, entityType string) (bool, error) {
	return s.store.DeletePolicy(ctx, entityType)
}

type ExemptionInput struct {
	EntityType string     `json:"entityType"`
	EntityID   string     `json:"entityId"`
	Reason     string     `json:"reason"`
	CreatedBy  string     `json:"createdBy"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// CreateExemption stores an exemption for one entity. A second exemption for
// the same entity replaces the first.
func (s *RetentionService) CreateExemption(ctx context.Context, input ExemptionInput) (*RetentionExemption, error) {
	if trimmed(input.EntityType) == "" {
		return nil, invalid("entityType", "is required", nil)
	}
	if trimmed(input.EntityID) == "" {
		return nil, invalid("entityId", "is required", nil)
	}
	if trimmed(input.Reason) == "" {
		return nil, invalid("reason", "is required", nil)
	}
	exemption := &RetentionExemption{
		EntityType: trimmed(input.EntityType),
		EntityID:   trimmed(input.EntityID),
		Reason:     input.Reason,
		ExpiresAt:  input.ExpiresAt,
		CreatedBy:  input.CreatedBy,
		CreatedAt:  timeNow().UTC(),
	}
	if err := s.store.UpsertExemption(ctx, exemption); err != nil {
		return nil, err
	}
	return exemption, nil
}

// CheckExemption returns the exemption shielding the entity, or nil when none
// exists or the stored one has expired.
func (s *RetentionService) CheckExemption(ctx context.Context, entityType, entityID string) (*RetentionExemption, error) {
	exemption, err := s.store.GetExemption(ctx, entityType, entityID)
	if err != nil || exemption == nil {
		return nil, err
	}
	if !exemption.ActiveAt(timeNow()) {
		return nil, nil
	}
	return exemption, nil
}

func (s *RetentionService) ListExemptions(ctx context.Context, entityType string) ([]RetentionExemption, error) {
	return s.store.ListExemptions(ctx, entityType)
}

func (s *RetentionService) DeleteExemption(ctx context.Context, entityType, entityID string) (bool, error) {
	return s.store.DeleteExemption(ctx, entityType, entityID)
}

func (s *RetentionService) ListExecutionLogs(ctx context.Context, entityType string, limit int) ([]RetentionExecutionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListExecutionLogs(ctx, entityType, limit)
}

// ApplyRetentionPolicies sweeps every policy, or only the policy for
// entityType when it is set. A failing policy is rolled back and logged with
// status error; the remaining policies still run.
func (s *RetentionService) ApplyRetentionPolicies(ctx context.Context, entityType string) (*RetentionReport, error) {
	start := timeNow()
	policies, err := s.targetPolicies(ctx, entityType)
	if err != nil {
		return nil, err
	}

	report := &RetentionReport{Results: make([]PolicyResult, 0, len(policies))}
	for _, policy := range policies {
		result := s.applyPolicy(ctx, policy)
		report.Results = append(report.Results, result)
		report.TotalProcessed += result.RecordsProcessed
		report.TotalArchived += result.RecordsArchived
		report.TotalDeleted += result.RecordsDeleted
	}
	report.ExecutionTimeSec = timeNow().Sub(start).Seconds()

	if s.recorder != nil {
		s.recorder.RecordSweep(*report)
	}
	slog.Info("retention sweep finished",
		"policies", len(report.Results),
		"processed", report.TotalProcessed,
		"archived", report.TotalArchived,
		"deleted", report.TotalDeleted)
	return report, nil
}

func (s *RetentionService) targetPolicies(ctx context.Context, entityType string) ([]RetentionPolicy, error) {
	if entityType == "" {
		return s.store.ListPolicies(ctx)
	}
	policy, err := s.store.GetPolicy(ctx, entityType)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return []RetentionPolicy{}, nil
	}
	return []RetentionPolicy{*policy}, nil
}

type sweepCounts struct {
	processed int
	archived  int
	deleted   int
}

func (s *RetentionService) applyPolicy(ctx context.Context, policy RetentionPolicy) PolicyResult {
	started := timeNow()
	var counts sweepCounts
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		counts, err = s.sweepPolicy(ctx, policy)
		return err
	})

	result := PolicyResult{EntityType: policy.EntityType, Status: ExecutionStatusSuccess}
	entry := &RetentionExecutionLog{EntityType: policy.EntityType, Status: ExecutionStatusSuccess}
	if err != nil {
		// the transaction rolled back, so nothing was removed from the live store
		counts = sweepCounts{}
		message := err.Error()
		result.Status = ExecutionStatusError
		result.Error = message
		entry.Status = ExecutionStatusError
		entry.ErrorMessage = &message
		slog.Warn("retention policy failed", "entityType", policy.EntityType, "err", err)
	}
	result.RecordsProcessed = counts.processed
	result.RecordsArchived = counts.archived
	result.RecordsDeleted = counts.deleted
	result.ExecutionTimeSec = timeNow().Sub(started).Seconds()

	entry.RecordsProcessed = counts.processed
	entry.RecordsArchived = counts.archived
	entry.RecordsDeleted = counts.deleted
	entry.ExecutionTimeSec = result.ExecutionTimeSec
	entry.ExecutedAt = timeNow().UTC()
	if err := s.store.AppendExecutionLog(ctx, entry); err != nil {
		slog.Warn("retention execution log failed", "entityType", policy.EntityType, "err", err)
	} else {
		result.LogID = entry.ID
	}
	return result
}

func (s *RetentionService) sweepPolicy(ctx context.Context, policy RetentionPolicy) (sweepCounts, error) {
	var counts sweepCounts
	table, ok := s.store.EntityTable(policy.EntityType)
	if !ok {
		return counts, fmt.Errorf("%w: %s", ErrUnmappedEntityType, policy.EntityType)
	}
	if !policy.AppliesToDeleted {
		return counts, nil
	}
	softDeletes, ok := table.(SoftDeleteTable)
	if !ok {
		return counts, nil
	}

	now := timeNow().UTC()
	records, err := softDeletes.ListDeletedBefore(ctx, RetentionCutoff(now, policy.RetentionPeriodDays))
	if err != nil {
		return counts, err
	}
	for _, record := range records {
		exemption, err := s.CheckExemption(ctx, policy.EntityType, record.ID)
		if err != nil {
			return counts, err
		}
		if exemption != nil {
			continue
		}
		counts.processed++
		if policy.ArchiveStrategy == ArchiveStrategyArchive {
			if err := s.archiveRecord(ctx, softDeletes, record, now); err != nil {
				return counts, err
			}
			counts.archived++
			continue
		}
		if err := softDeletes.DeleteRecord(ctx, record.ID); err != nil {
			return counts, err
		}
		counts.deleted++
	}
	return counts, nil
}

func (s *RetentionService) archiveRecord(ctx context.Context, table SoftDeleteTable, record EntityRecord, now time.Time) error {
	if s.archive == nil {
		return errors.New("archive sink not configured")
	}
	if err := s.archive.Archive(ctx, table.EntityType(), archiveColumns(record.Columns)); err != nil {
		return fmt.Errorf("archive %s %s: %w", table.EntityType(), record.ID, err)
	}
	if scheduler, ok := table.(DeletionScheduler); ok {
		return scheduler.ScheduleDeletion(ctx, record.ID, now.Add(s.grace))
	}
	return table.DeleteRecord(ctx, record.ID)
}

// credentialColumns are stripped from every archived row.
var credentialColumns = []string{"password_hash", "mfa_secret", "api_key", "access_token", "refresh_token"}

func archiveColumns(columns map[string]any) map[string]any {
	out := cloneColumns(columns)
	for _, name := range credentialColumns {
		delete(out, name)
	}
	return out
}

// PurgeScheduledDeletions hard-deletes archived rows whose scheduled deletion
// date has passed. It returns the number of rows removed per entity type.
func (s *RetentionService) PurgeScheduledDeletions(ctx context.Context) (map[string]int64, error) {
	now := timeNow().UTC()
	purged := map[string]int64{}
	for _, entityType := range KnownEntityTypes {
		table, ok := s.store.EntityTable(entityType)
		if !ok {
			continue
		}
		scheduler, ok := table.(DeletionScheduler)
		if !ok {
			continue
		}
		var count int64
		err := s.store.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			count, err = scheduler.PurgeScheduledBefore(ctx, now)
			return err
		})
		if err != nil {
			return purged, fmt.Errorf("purge %s: %w", entityType, err)
		}
		if count > 0 {
			purged[entityType] = count
		}
	}
	return purged, nil
}
