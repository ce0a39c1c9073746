package compliance

import "context"

type AssessmentService struct {
	store AssessmentStore
}

func NewAssessmentService(store AssessmentStore) *AssessmentService {
	return &AssessmentService{store: store}
}

func (s *AssessmentService) CreateAssessment(ctx context.Context, input AssessmentInput) (*PrivacyImpactAssessment, error) {
	if trimmed(input.Title) == "" {
		return nil, invalid("title", "is required", nil)
	}
	now := timeNow().UTC()
	pia := &PrivacyImpactAssessment{
		Title:              trimmed(input.Title),
		FeatureDescription: input.FeatureDescription,
		DataCollected:      nonNilItems(input.DataCollected),
		DataUse:            input.DataUse,
		DataSharing:        input.DataSharing,
		RisksIdentified:    nonNilStrings(input.RisksIdentified),
		Mitigations:        nonNilStrings(input.Mitigations),
		Status:             AssessmentDraft,
		CreatedBy:          input.CreatedBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateAssessment(ctx, pia); err != nil {
		return nil, err
	}
	return pia, nil
}

func (s *AssessmentService) GetAssessment(ctx context.Context, id string) (*PrivacyImpactAssessment, error) {
	return s.store.GetAssessment(ctx, id)
}

// UpdateAssessment applies the allow-listed fields of patch. It returns nil
// when the assessment does not exist.
func (s *AssessmentService) UpdateAssessment(ctx context.Context, id string, patch AssessmentPatch) (*PrivacyImpactAssessment, error) {
	pia, err := s.store.GetAssessment(ctx, id)
	if err != nil || pia == nil {
		return nil, err
	}
	if patch.Title != nil {
		if trimmed(*patch.Title) == "" {
			return nil, invalid("title", "must not be empty", nil)
		}
		pia.Title = trimmed(*patch.Title)
	}
	if patch.FeatureDescription != nil {
		pia.FeatureDescription = *patch.FeatureDescription
	}
	if patch.DataCollected != nil {
		pia.DataCollected = nonNilItems(*patch.DataCollected)
	}
	if patch.DataUse != nil {
		pia.DataUse = *patch.DataUse
	}
	if patch.DataSharing != nil {
		pia.DataSharing = *patch.DataSharing
	}
	if patch.RisksIdentified != nil {
		pia.RisksIdentified = nonNilStrings(*patch.RisksIdentified)
	}
	if patch.Mitigations != nil {
		pia.Mitigations = nonNilStrings(*patch.Mitigations)
	}
	pia.UpdatedAt = timeNow().UTC()
	if err := s.store.UpdateAssessment(ctx, pia); err != nil {
		return nil, err
	}
	return pia, nil
}

// UpdateAssessmentStatus moves the assessment through review. completed_at
// is stamped on approval or rejection.
func (s *AssessmentService) UpdateAssessmentStatus(ctx context.Context, id string, status AssessmentStatus, reviewerID string) (*PrivacyImpactAssessment, error) {
	pia, err := s.store.GetAssessment(ctx, id)
	if err != nil || pia == nil {
		return nil, err
	}
	if !canTransition(assessmentTransitions, pia.Status, status) {
		return nil, invalid("status", string(pia.Status)+" -> "+string(status), ErrInvalidTransition)
	}
	now := timeNow().UTC()
	pia.Status = status
	if reviewerID != "" {
		pia.ReviewerID = &reviewerID
	}
	if status == AssessmentApproved || status == AssessmentRejected {
		pia.CompletedAt = &now
	}
	pia.UpdatedAt = now
	if err := s.store.UpdateAssessment(ctx, pia); err != nil {
		return nil, err
	}
	return pia, nil
}

// GetAssessments lists assessments newest first, optionally filtered.
func (s *AssessmentService) GetAssessments(ctx context.Context, filter AssessmentFilter) ([]PrivacyImpactAssessment, error) {
	return s.store.ListAssessments(ctx, filter)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return cloneStrings(values)
}

func nonNilItems(items []DataItem) []DataItem {
	out := make([]DataItem, len(items))
	copy(out, items)
	return out
}
