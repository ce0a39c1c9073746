package compliance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memTxKey struct{}

type exemptionKey struct {
	entityType string
	entityID   string
}

type fieldKey struct {
	table string
	field string
}

type memRecord struct {
	EntityRecord
	scheduledAt *time.Time
}

type memState struct {
	policies        map[string]RetentionPolicy
	exemptions      map[exemptionKey]RetentionExemption
	logs            []RetentionExecutionLog
	consents        []ConsentRecord
	requests        []DataSubjectRequest
	users           map[string]User
	records         map[string]map[string]memRecord
	documents       []ComplianceDocument
	classifications map[string]DataClassification
	fields          map[fieldKey]FieldClassification
	assessments     []PrivacyImpactAssessment
}

func newMemState() memState {
	records := make(map[string]map[string]memRecord, len(KnownEntityTypes))
	for _, entityType := range KnownEntityTypes {
		if entityType != EntityUser {
			records[entityType] = map[string]memRecord{}
		}
	}
	return memState{
		policies:        map[string]RetentionPolicy{},
		exemptions:      map[exemptionKey]RetentionExemption{},
		users:           map[string]User{},
		records:         records,
		classifications: map[string]DataClassification{},
		fields:          map[fieldKey]FieldClassification{},
	}
}

// clone copies every container. Stored values are replaced, never mutated,
// so copying the containers is enough to snapshot the state.
func (s memState) clone() memState {
	out := memState{
		policies:        make(map[string]RetentionPolicy, len(s.policies)),
		exemptions:      make(map[exemptionKey]RetentionExemption, len(s.exemptions)),
		logs:            append([]RetentionExecutionLog(nil), s.logs...),
		consents:        append([]ConsentRecord(nil), s.consents...),
		requests:        append([]DataSubjectRequest(nil), s.requests...),
		users:           make(map[string]User, len(s.users)),
		records:         make(map[string]map[string]memRecord, len(s.records)),
		documents:       append([]ComplianceDocument(nil), s.documents...),
		classifications: make(map[string]DataClassification, len(s.classifications)),
		fields:          make(map[fieldKey]FieldClassification, len(s.fields)),
		assessments:     append([]PrivacyImpactAssessment(nil), s.assessments...),
	}
	for k, v := range s.policies {
		out.policies[k] = v
	}
	for k, v := range s.exemptions {
		out.exemptions[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for entityType, rows := range s.records {
		copied := make(map[string]memRecord, len(rows))
		for id, row := range rows {
			copied[id] = row
		}
		out.records[entityType] = copied
	}
	for k, v := range s.classifications {
		out.classifications[k] = v
	}
	for k, v := range s.fields {
		out.fields[k] = v
	}
	return out
}

// MemoryStore is an in-process StoreAPI. Transactions snapshot the whole
// state and restore it on error. Writes outside a transaction wait for any
// open transaction so a rollback never discards them.
type MemoryStore struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	seq   int64
	state memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// writeLock locks the state for a write. Outside a transaction it also
// takes txMu.
func (m *MemoryStore) writeLock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		m.mu.Lock()
		return m.mu.Unlock
	}
	m.txMu.Lock()
	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		m.txMu.Unlock()
	}
}

// PutUser inserts or replaces a user row.
func (m *MemoryStore) PutUser(user User) {
	defer m.writeLock(context.Background())()
	m.state.users[user.ID] = user
}

// PutRecord inserts or replaces a row of a non-user entity table.
func (m *MemoryStore) PutRecord(entityType string, record EntityRecord) {
	defer m.writeLock(context.Background())()
	rows, ok := m.state.records[entityType]
	if !ok {
		rows = map[string]memRecord{}
		m.state.records[entityType] = rows
	}
	record.Columns = cloneColumns(record.Columns)
	rows[record.ID] = memRecord{EntityRecord: record}
}

func (m *MemoryStore) HasRecord(entityType, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entityType == EntityUser {
		_, ok := m.state.users[id]
		return ok
	}
	_, ok := m.state.records[entityType][id]
	return ok
}

// ScheduledDeletion returns the scheduled deletion date of a row, if any.
func (m *MemoryStore) ScheduledDeletion(entityType, id string) *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entityType == EntityUser {
		return m.state.users[id].ScheduledDeletionDate
	}
	return m.state.records[entityType][id].scheduledAt
}

// exemptAt reports whether a row has an exemption active at the given time.
// Callers hold mu.
func (m *MemoryStore) exemptAt(entityType, id string, at time.Time) bool {
	exemption, ok := m.state.exemptions[exemptionKey{entityType, id}]
	return ok && exemption.ActiveAt(at)
}

func (m *MemoryStore) nextSeq() int64 {
	m.seq++
	return m.seq
}

func cloneColumns(columns map[string]any) map[string]any {
	out := make(map[string]any, len(columns))
	for k, v := range columns {
		out[k] = v
	}
	return out
}

// retention

func (m *MemoryStore) CreatePolicy(ctx context.Context, policy *RetentionPolicy) error {
	defer m.writeLock(ctx)()
	if _, ok := m.state.policies[policy.EntityType]; ok {
		return ErrDuplicate
	}
	policy.ID = uuid.NewString()
	m.state.policies[policy.EntityType] = *policy
	return nil
}

func (m *MemoryStore) GetPolicy(ctx context.Context, entityType string) (*RetentionPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	policy, ok := m.state.policies[entityType]
	if !ok {
		return nil, nil
	}
	return &policy, nil
}

func (m *MemoryStore) ListPolicies(ctx context.Context) ([]RetentionPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RetentionPolicy, 0, len(m.state.policies))
	for _, policy := range m.state.policies {
		out = append(out, policy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityType < out[j].EntityType })
	return out, nil
}

func (m *MemoryStore) UpdatePolicy(ctx context.Context, policy *RetentionPolicy) error {
	defer m.writeLock(ctx)()
	if _, ok := m.state.policies[policy.EntityType]; !ok {
		return nil
	}
	m.state.policies[policy.EntityType] = *policy
	return nil
}

func (m *MemoryStore) DeletePolicy(ctx context.Context, entityType string) (bool, error) {
	defer m.writeLock(ctx)()
	if _, ok := m.state.policies[entityType]; !ok {
		return false, nil
	}
	delete(m.state.policies, entityType)
	return true, nil
}

func (m *MemoryStore) UpsertExemption(ctx context.Context, exemption *RetentionExemption) error {
	defer m.writeLock(ctx)()
	key := exemptionKey{exemption.EntityType, exemption.EntityID}
	if existing, ok := m.state.exemptions[key]; ok {
		exemption.ID = existing.ID
	} else {
		exemption.ID = uuid.NewString()
	}
	m.state.exemptions[key] = *exemption
	return nil
}

func (m *MemoryStore) GetExemption(ctx context.Context, entityType, entityID string) (*RetentionExemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exemption, ok := m.state.exemptions[exemptionKey{entityType, entityID}]
	if !ok {
		return nil, nil
	}
	return &exemption, nil
}

func (m *MemoryStore) ListExemptions(ctx context.Context, entityType string) ([]RetentionExemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []RetentionExemption{}
	for _, exemption := range m.state.exemptions {
		if entityType == "" || exemption.EntityType == entityType {
			out = append(out, exemption)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityType != out[j].EntityType {
			return out[i].EntityType < out[j].EntityType
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out, nil
}

func (m *MemoryStore) DeleteExemption(ctx context.Context, entityType, entityID string) (bool, error) {
	defer m.writeLock(ctx)()
	key := exemptionKey{entityType, entityID}
	if _, ok := m.state.exemptions[key]; !ok {
		return false, nil
	}
	delete(m.state.exemptions, key)
	return true, nil
}

func (m *MemoryStore) AppendExecutionLog(ctx context.Context, entry *RetentionExecutionLog) error {
	defer m.writeLock(ctx)()
	entry.ID = uuid.NewString()
	m.state.logs = append(m.state.logs, *entry)
	return nil
}

// ListExecutionLogs returns logs newest first.
func (m *MemoryStore) ListExecutionLogs(ctx context.Context, entityType string, limit int) ([]RetentionExecutionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []RetentionExecutionLog{}
	for i := len(m.state.logs) - 1; i >= 0; i-- {
		entry := m.state.logs[i]
		if entityType != "" && entry.EntityType != entityType {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) EntityTable(entityType string) (EntityTable, bool) {
	switch entityType {
	case EntityUser:
		return memUserTable{store: m}, true
	case EntityContent:
		return memSchedulingTable{memSoftTable{store: m, entityType: entityType}}, true
	case EntityAuditLog:
		return memPlainTable{entityType: entityType}, true
	case EntityBrand, EntityProject, EntityContentDraft, EntityAdCampaign, EntityCompetitor, EntitySocialAccount:
		return memSoftTable{store: m, entityType: entityType}, true
	}
	return nil, false
}

// consent

func (m *MemoryStore) InsertConsent(ctx context.Context, record *ConsentRecord) error {
	defer m.writeLock(ctx)()
	record.ID = uuid.NewString()
	record.Seq = m.nextSeq()
	stored := *record
	stored.DataCategories = cloneStrings(record.DataCategories)
	m.state.consents = append(m.state.consents, stored)
	return nil
}

func (m *MemoryStore) filterConsents(keep func(ConsentRecord) bool) []ConsentRecord {
	var out []ConsentRecord
	for _, rec := range m.state.consents {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (m *MemoryStore) LatestConsent(ctx context.Context, userID, consentType string) (*ConsentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return LatestConsent(m.filterConsents(func(rec ConsentRecord) bool {
		return rec.UserID == userID && rec.ConsentType == consentType
	})), nil
}

func (m *MemoryStore) LatestConsentForCategory(ctx context.Context, userID, category string) (*ConsentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return LatestConsent(m.filterConsents(func(rec ConsentRecord) bool {
		return rec.UserID == userID && hasCategory(rec.DataCategories, category)
	})), nil
}

func (m *MemoryStore) ListUserConsents(ctx context.Context, userID string) ([]ConsentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filterConsents(func(rec ConsentRecord) bool { return rec.UserID == userID })
	SortConsentsNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) DistinctConsentTypes(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return distinctTypes(m.state.consents, func(ConsentRecord) bool { return true }), nil
}

func (m *MemoryStore) GrantedConsentTypes(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return distinctTypes(m.state.consents, func(rec ConsentRecord) bool {
		return rec.UserID == userID && rec.Status
	}), nil
}

func distinctTypes(records []ConsentRecord, keep func(ConsentRecord) bool) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, rec := range records {
		if !keep(rec) {
			continue
		}
		if _, ok := seen[rec.ConsentType]; ok {
			continue
		}
		seen[rec.ConsentType] = struct{}{}
		out = append(out, rec.ConsentType)
	}
	sort.Strings(out)
	return out
}

// data subject requests

func (m *MemoryStore) CreateRequest(ctx context.Context, req *DataSubjectRequest) error {
	defer m.writeLock(ctx)()
	req.ID = uuid.NewString()
	m.state.requests = append(m.state.requests, *req)
	return nil
}

func (m *MemoryStore) GetRequest(ctx context.Context, id string) (*DataSubjectRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.state.requests {
		if req.ID == id {
			return &req, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) UpdateRequest(ctx context.Context, req *DataSubjectRequest) error {
	defer m.writeLock(ctx)()
	for i := range m.state.requests {
		if m.state.requests[i].ID == req.ID {
			m.state.requests[i] = *req
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) ListRequests(ctx context.Context, filter RequestFilter) ([]DataSubjectRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []DataSubjectRequest{}
	for i := len(m.state.requests) - 1; i >= 0; i-- {
		req := m.state.requests[i]
		if filter.UserID != "" && (req.UserID == nil || *req.UserID != filter.UserID) {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.RequestType != "" && req.RequestType != filter.RequestType {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

// users

func (m *MemoryStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.state.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *MemoryStore) AnonymizeUser(ctx context.Context, id string, anon UserAnonymization) (bool, error) {
	defer m.writeLock(ctx)()
	user, ok := m.state.users[id]
	if !ok {
		return false, nil
	}
	deletedAt := anon.DeletedAt
	user.Email = anon.Email
	user.Username = anon.Username
	user.FullName = anon.FullName
	user.IsActive = false
	user.DeletedAt = &deletedAt
	m.state.users[id] = user
	return true, nil
}

// documents

func (m *MemoryStore) CreateDocument(ctx context.Context, doc *ComplianceDocument) error {
	defer m.writeLock(ctx)()
	for _, existing := range m.state.documents {
		if existing.DocumentType == doc.DocumentType && existing.Version == doc.Version {
			return ErrDuplicate
		}
	}
	doc.ID = uuid.NewString()
	m.state.documents = append(m.state.documents, *doc)
	return nil
}

func (m *MemoryStore) findDocument(keep func(ComplianceDocument) bool) *ComplianceDocument {
	for _, doc := range m.state.documents {
		if keep(doc) {
			return &doc
		}
	}
	return nil
}

func (m *MemoryStore) GetDocument(ctx context.Context, id string) (*ComplianceDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findDocument(func(doc ComplianceDocument) bool { return doc.ID == id }), nil
}

func (m *MemoryStore) CurrentDocument(ctx context.Context, documentType string) (*ComplianceDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findDocument(func(doc ComplianceDocument) bool {
		return doc.DocumentType == documentType && doc.IsCurrent
	}), nil
}

func (m *MemoryStore) DocumentVersion(ctx context.Context, documentType, version string) (*ComplianceDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findDocument(func(doc ComplianceDocument) bool {
		return doc.DocumentType == documentType && doc.Version == version
	}), nil
}

func (m *MemoryStore) ListDocumentVersions(ctx context.Context, documentType string) ([]ComplianceDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []ComplianceDocument{}
	for _, doc := range m.state.documents {
		if doc.DocumentType == documentType {
			out = append(out, doc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EffectiveDate.After(out[j].EffectiveDate) })
	return out, nil
}

func (m *MemoryStore) ClearCurrentDocuments(ctx context.Context, documentType string) error {
	defer m.writeLock(ctx)()
	for i := range m.state.documents {
		if m.state.documents[i].DocumentType == documentType {
			m.state.documents[i].IsCurrent = false
		}
	}
	return nil
}

func (m *MemoryStore) MarkDocumentCurrent(ctx context.Context, id string) error {
	defer m.writeLock(ctx)()
	for i := range m.state.documents {
		if m.state.documents[i].ID == id {
			m.state.documents[i].IsCurrent = true
		}
	}
	return nil
}

// classifications

func (m *MemoryStore) CreateClassification(ctx context.Context, classification *DataClassification) error {
	defer m.writeLock(ctx)()
	for _, existing := range m.state.classifications {
		if existing.Name == classification.Name {
			return ErrDuplicate
		}
	}
	if classification.ID == "" {
		classification.ID = uuid.NewString()
	}
	m.state.classifications[classification.ID] = *classification
	return nil
}

func (m *MemoryStore) GetClassification(ctx context.Context, id string) (*DataClassification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	classification, ok := m.state.classifications[id]
	if !ok {
		return nil, nil
	}
	return &classification, nil
}

// DeleteClassification drops a classification without touching the fields
// that reference it.
func (m *MemoryStore) DeleteClassification(id string) {
	defer m.writeLock(context.Background())()
	delete(m.state.classifications, id)
}

func (m *MemoryStore) ListClassifications(ctx context.Context) ([]DataClassification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DataClassification, 0, len(m.state.classifications))
	for _, classification := range m.state.classifications {
		out = append(out, classification)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpsertFieldClassification(ctx context.Context, field *FieldClassification) error {
	defer m.writeLock(ctx)()
	key := fieldKey{field.TableName, field.FieldName}
	if existing, ok := m.state.fields[key]; ok {
		field.ID = existing.ID
	} else {
		field.ID = uuid.NewString()
	}
	m.state.fields[key] = *field
	return nil
}

func (m *MemoryStore) GetFieldClassification(ctx context.Context, tableName, fieldName string) (*FieldClassification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	field, ok := m.state.fields[fieldKey{tableName, fieldName}]
	if !ok {
		return nil, nil
	}
	return &field, nil
}

func (m *MemoryStore) ListFieldClassifications(ctx context.Context, filter FieldFilter) ([]FieldClassification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []FieldClassification{}
	for _, field := range m.state.fields {
		if filter.TableName != "" && field.TableName != filter.TableName {
			continue
		}
		if filter.PIIOnly && !field.IsPII {
			continue
		}
		out = append(out, field)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TableName != out[j].TableName {
			return out[i].TableName < out[j].TableName
		}
		return out[i].FieldName < out[j].FieldName
	})
	return out, nil
}

// assessments

func (m *MemoryStore) CreateAssessment(ctx context.Context, pia *PrivacyImpactAssessment) error {
	defer m.writeLock(ctx)()
	pia.ID = uuid.NewString()
	m.state.assessments = append(m.state.assessments, *pia)
	return nil
}

func (m *MemoryStore) GetAssessment(ctx context.Context, id string) (*PrivacyImpactAssessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pia := range m.state.assessments {
		if pia.ID == id {
			return &pia, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) UpdateAssessment(ctx context.Context, pia *PrivacyImpactAssessment) error {
	defer m.writeLock(ctx)()
	for i := range m.state.assessments {
		if m.state.assessments[i].ID == pia.ID {
			m.state.assessments[i] = *pia
		}
	}
	return nil
}

func (m *MemoryStore) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]PrivacyImpactAssessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []PrivacyImpactAssessment{}
	for i := len(m.state.assessments) - 1; i >= 0; i-- {
		pia := m.state.assessments[i]
		if filter.Status != "" && pia.Status != filter.Status {
			continue
		}
		if filter.CreatorID != "" && pia.CreatedBy != filter.CreatorID {
			continue
		}
		out = append(out, pia)
	}
	return out, nil
}

// entity tables

type memPlainTable struct {
	entityType string
}

func (t memPlainTable) EntityType() string { return t.entityType }

type memSoftTable struct {
	store      *MemoryStore
	entityType string
}

func (t memSoftTable) EntityType() string { return t.entityType }

func (t memSoftTable) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]EntityRecord, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	var out []EntityRecord
	for _, row := range t.store.state.records[t.entityType] {
		if row.scheduledAt != nil || row.DeletedAt == nil || !row.DeletedAt.Before(cutoff) {
			continue
		}
		rec := row.EntityRecord
		rec.Columns = cloneColumns(rec.Columns)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t memSoftTable) DeleteRecord(ctx context.Context, id string) error {
	defer t.store.writeLock(ctx)()
	delete(t.store.state.records[t.entityType], id)
	return nil
}

type memSchedulingTable struct {
	memSoftTable
}

func (t memSchedulingTable) ScheduleDeletion(ctx context.Context, id string, at time.Time) error {
	defer t.store.writeLock(ctx)()
	rows := t.store.state.records[t.entityType]
	row, ok := rows[id]
	if !ok {
		return nil
	}
	row.scheduledAt = &at
	rows[id] = row
	return nil
}

func (t memSchedulingTable) PurgeScheduledBefore(ctx context.Context, at time.Time) (int64, error) {
	defer t.store.writeLock(ctx)()
	var purged int64
	rows := t.store.state.records[t.entityType]
	for id, row := range rows {
		if row.scheduledAt != nil && row.scheduledAt.Before(at) && !t.store.exemptAt(t.entityType, id, at) {
			delete(rows, id)
			purged++
		}
	}
	return purged, nil
}

type memUserTable struct {
	store *MemoryStore
}

func (t memUserTable) EntityType() string { return EntityUser }

func (t memUserTable) ListDeletedBefore(ctx context.Context, cutoff time.Time) ([]EntityRecord, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	var out []EntityRecord
	for _, user := range t.store.state.users {
		if user.ScheduledDeletionDate != nil || user.DeletedAt == nil || !user.DeletedAt.Before(cutoff) {
			continue
		}
		out = append(out, EntityRecord{ID: user.ID, DeletedAt: user.DeletedAt, Columns: userColumns(user)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t memUserTable) DeleteRecord(ctx context.Context, id string) error {
	defer t.store.writeLock(ctx)()
	delete(t.store.state.users, id)
	return nil
}

func (t memUserTable) ScheduleDeletion(ctx context.Context, id string, at time.Time) error {
	defer t.store.writeLock(ctx)()
	user, ok := t.store.state.users[id]
	if !ok {
		return nil
	}
	user.ScheduledDeletionDate = &at
	t.store.state.users[id] = user
	return nil
}

func (t memUserTable) PurgeScheduledBefore(ctx context.Context, at time.Time) (int64, error) {
	defer t.store.writeLock(ctx)()
	var purged int64
	for id, user := range t.store.state.users {
		if user.ScheduledDeletionDate != nil && user.ScheduledDeletionDate.Before(at) && !t.store.exemptAt(EntityUser, id, at) {
			delete(t.store.state.users, id)
			purged++
		}
	}
	return purged, nil
}

func userColumns(user User) map[string]any {
	columns := map[string]any{
		"id":         user.ID,
		"email":      user.Email,
		"username":   user.Username,
		"full_name":  user.FullName,
		"is_active":  user.IsActive,
		"created_at": user.CreatedAt,
		"deleted_at": user.DeletedAt,
	}
	if user.PasswordHash != "" {
		columns["password_hash"] = user.PasswordHash
	}
	return columns
}
