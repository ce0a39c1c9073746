package compliance

import (
	"context"
	"log/slog"
)

type ConsentManager struct {
	store ConsentStore
	audit AuditSink
}

func NewConsentManager(store ConsentStore, audit AuditSink) *ConsentManager {
	return &ConsentManager{store: store, audit: audit}
}

// RecordConsent appends a consent decision. Existing rows are never changed.
func (m *ConsentManager) RecordConsent(ctx context.Context, input ConsentInput) (*ConsentRecord, error) {
	if trimmed(input.UserID) == "" {
		return nil, invalid("userId", "is required", nil)
	}
	if trimmed(input.ConsentType) == "" {
		return nil, invalid("consentType", "is required", nil)
	}
	if trimmed(input.ConsentVersion) == "" {
		return nil, invalid("consentVersion", "is required", nil)
	}

	previous, err := m.store.LatestConsent(ctx, input.UserID, input.ConsentType)
	if err != nil {
		return nil, err
	}

	recordedAt := input.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = timeNow()
	}
	record := &ConsentRecord{
		UserID:         input.UserID,
		ConsentType:    input.ConsentType,
		Status:         input.Status,
		IPAddress:      input.IPAddress,
		UserAgent:      input.UserAgent,
		ConsentVersion: input.ConsentVersion,
		DataCategories: cloneStrings(input.DataCategories),
		RecordedAt:     recordedAt.UTC(),
		ExpiresAt:      input.ExpiresAt,
	}
	if err := m.store.InsertConsent(ctx, record); err != nil {
		return nil, err
	}

	if m.audit != nil {
		action := AuditActionConsentRevoked
		if record.Status {
			action = AuditActionConsentGranted
		}
		entry := AuditEntry{
			UserID:       record.UserID,
			Action:       action,
			ResourceType: AuditResourceConsent,
			ResourceID:   record.ID,
			NewState:     historyEntry(*record),
			IPAddress:    record.IPAddress,
			UserAgent:    record.UserAgent,
		}
		if previous != nil {
			entry.PreviousState = historyEntry(*previous)
		}
		if err := m.audit.Append(ctx, entry); err != nil {
			slog.Warn("audit log failed", "err", err)
		}
	}
	return record, nil
}

// CheckUserConsent reports the decision of the latest record for the pair.
// Missing and expired records both count as no consent.
func (m *ConsentManager) CheckUserConsent(ctx context.Context, userID, consentType string) (bool, error) {
	record, err := m.store.LatestConsent(ctx, userID, consentType)
	if err != nil || record == nil {
		return false, err
	}
	return record.EffectiveAt(timeNow()), nil
}

// CheckConsentForCategories evaluates each category against the latest record
// listing it, across all consent types.
func (m *ConsentManager) CheckConsentForCategories(ctx context.Context, userID string, categories []string) (map[string]bool, error) {
	now := timeNow()
	out := make(map[string]bool, len(categories))
	for _, category := range categories {
		record, err := m.store.LatestConsentForCategory(ctx, userID, category)
		if err != nil {
			return nil, err
		}
		out[category] = record != nil && record.EffectiveAt(now)
	}
	return out, nil
}

func (m *ConsentManager) GetUserConsentHistory(ctx context.Context, userID string) ([]ConsentHistoryEntry, error) {
	records, err := m.store.ListUserConsents(ctx, userID)
	if err != nil {
		return nil, err
	}
	SortConsentsNewestFirst(records)
	out := make([]ConsentHistoryEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, historyEntry(rec))
	}
	return out, nil
}

func (m *ConsentManager) GetConsentTypes(ctx context.Context) ([]string, error) {
	return m.store.DistinctConsentTypes(ctx)
}

// RevokeAllUserConsent records a system revocation for every consent type the
// user has ever granted and returns how many types were revoked.
func (m *ConsentManager) RevokeAllUserConsent(ctx context.Context, userID string) (int, error) {
	types, err := m.store.GrantedConsentTypes(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, consentType := range types {
		_, err := m.RecordConsent(ctx, ConsentInput{
			UserID:         userID,
			ConsentType:    consentType,
			Status:         false,
			IPAddress:      SystemActor,
			UserAgent:      SystemActor,
			ConsentVersion: RevocationVersion,
		})
		if err != nil {
			return 0, err
		}
	}
	return len(types), nil
}
