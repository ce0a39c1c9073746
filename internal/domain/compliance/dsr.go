package compliance

import (
	"context"
	"log/slog"
	"net/mail"
)

// RequestNotifier is told when a data subject request reaches a final status.
type RequestNotifier interface {
	RequestClosed(ctx context.Context, req DataSubjectRequest) error
}

type RequestStoreAPI interface {
	Transactor
	RequestStore
	UserStore
}

type RequestManager struct {
	store    RequestStoreAPI
	consent  *ConsentManager
	notifier RequestNotifier
	token    func() (string, error)
}

func NewRequestManager(store RequestStoreAPI, consent *ConsentManager, notifier RequestNotifier) *RequestManager {
	return &RequestManager{store: store, consent: consent, notifier: notifier, token: randomHex}
}

func (m *RequestManager) CreateRequest(ctx context.Context, input RequestInput) (*DataSubjectRequest, error) {
	switch input.RequestType {
	case RequestAccess, RequestDeletion, RequestCorrection, RequestPortability:
	default:
		return nil, invalid("requestType", "must be access, deletion, correction or portability", nil)
	}
	if _, err := mail.ParseAddress(input.RequesterEmail); err != nil {
		return nil, invalid("requesterEmail", "must be a valid email address", err)
	}
	if input.UserID != nil {
		user, err := m.store.GetUser(ctx, *input.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, invalid("userId", "unknown user", nil)
		}
	}
	now := timeNow().UTC()
	req := &DataSubjectRequest{
		UserID:             input.UserID,
		RequestType:        input.RequestType,
		Status:             RequestPending,
		RequestDetails:     input.RequestDetails,
		RequesterEmail:     input.RequesterEmail,
		VerificationMethod: input.VerificationMethod,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := m.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (m *RequestManager) GetRequest(ctx context.Context, id string) (*DataSubjectRequest, error) {
	return m.store.GetRequest(ctx, id)
}

func (m *RequestManager) ListRequests(ctx context.Context, filter RequestFilter) ([]DataSubjectRequest, error) {
	return m.store.ListRequests(ctx, filter)
}

// UpdateRequestStatus moves a request along pending, in_progress and the
// final states. It returns nil when the request does not exist.
func (m *RequestManager) UpdateRequestStatus(ctx context.Context, id string, status RequestStatus, adminUserID string, notes *string) (*DataSubjectRequest, error) {
	req, err := m.store.GetRequest(ctx, id)
	if err != nil || req == nil {
		return nil, err
	}
	if !canTransition(requestTransitions, req.Status, status) {
		return nil, invalid("status", string(req.Status)+" -> "+string(status), ErrInvalidTransition)
	}
	now := timeNow().UTC()
	req.Status = status
	if adminUserID != "" {
		req.AdminUserID = &adminUserID
	}
	if notes != nil {
		req.CompletionNotes = notes
	}
	if req.Terminal() && req.CompletedAt == nil {
		req.CompletedAt = &now
	}
	req.UpdatedAt = now
	if err := m.store.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}
	if req.Terminal() && m.notifier != nil {
		if err := m.notifier.RequestClosed(ctx, *req); err != nil {
			slog.Warn("request notification failed", "requestId", req.ID, "err", err)
		}
	}
	return req, nil
}

func (m *RequestManager) loadForExecution(ctx context.Context, id string, want RequestType) (*DataSubjectRequest, error) {
	req, err := m.store.GetRequest(ctx, id)
	if err != nil || req == nil {
		return nil, err
	}
	if req.RequestType != want {
		return nil, invalid("requestType", "expected "+string(want)+", got "+string(req.RequestType), ErrWrongRequestType)
	}
	if req.UserID == nil || *req.UserID == "" {
		return nil, invalid("userId", "is required", ErrMissingUserID)
	}
	return req, nil
}

// ExecuteAccessRequest collects the personal data held for the requesting
// user. It returns nil when the request or the user no longer exists and
// leaves the request status untouched.
func (m *RequestManager) ExecuteAccessRequest(ctx context.Context, id string) (*AccessBundle, error) {
	req, err := m.loadForExecution(ctx, id, RequestAccess)
	if err != nil || req == nil {
		return nil, err
	}
	user, err := m.store.GetUser(ctx, *req.UserID)
	if err != nil || user == nil {
		return nil, err
	}
	history, err := m.consent.GetUserConsentHistory(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AccessBundle{
		RequestID:   req.ID,
		UserID:      user.ID,
		GeneratedAt: timeNow().UTC(),
		PersonalInfo: PersonalInfo{
			ID:        user.ID,
			Email:     user.Email,
			Username:  user.Username,
			FullName:  user.FullName,
			CreatedAt: user.CreatedAt,
		},
		ConsentHistory: history,
	}, nil
}

// ExecuteDeletionRequest anonymizes the requesting user in place and revokes
// every consent they granted. There is no way back.
func (m *RequestManager) ExecuteDeletionRequest(ctx context.Context, id string) (bool, error) {
	req, err := m.loadForExecution(ctx, id, RequestDeletion)
	if err != nil || req == nil {
		return false, err
	}
	userID := *req.UserID

	email, username, err := AnonymizedIdentity(m.token)
	if err != nil {
		return false, err
	}
	anonymized := false
	err = m.store.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := m.store.AnonymizeUser(ctx, userID, UserAnonymization{
			Email:     email,
			Username:  username,
			FullName:  AnonymizedFullName,
			DeletedAt: timeNow().UTC(),
		})
		if err != nil || !ok {
			return err
		}
		if _, err := m.consent.RevokeAllUserConsent(ctx, userID); err != nil {
			return err
		}
		anonymized = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if anonymized {
		slog.Info("user anonymized", "requestId", req.ID, "userId", userID)
	}
	return anonymized, nil
}
