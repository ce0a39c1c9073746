package compliance

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	closed []DataSubjectRequest
	err    error
}

func (n *recordingNotifier) RequestClosed(ctx context.Context, req DataSubjectRequest) error {
	n.closed = append(n.closed, req)
	return n.err
}

type requestFixture struct {
	store    *MemoryStore
	consent  *ConsentManager
	manager  *RequestManager
	notifier *recordingNotifier
}

func newRequestFixture(t *testing.T) requestFixture {
	t.Helper()
	freezeClock(t, testNow)
	store := NewMemoryStore()
	consent := NewConsentManager(store, nil)
	notifier := &recordingNotifier{}
	store.PutUser(User{ID: "u1", Email: "jane@example.com", Username: "jane", FullName: "Jane Doe", IsActive: true, CreatedAt: testNow.AddDate(-1, 0, 0)})
	return requestFixture{store: store, consent: consent, manager: NewRequestManager(store, consent, notifier), notifier: notifier}
}

func (f requestFixture) create(t *testing.T, requestType RequestType, userID *string) *DataSubjectRequest {
	t.Helper()
	req, err := f.manager.CreateRequest(context.Background(), RequestInput{
		RequestType:    requestType,
		RequesterEmail: "jane@example.com",
		UserID:         userID,
	})
	require.NoError(t, err)
	return req
}

var anonymizedEmail = regexp.MustCompile(`^anonymized_[0-9a-f]{32}@deleted\.example\.com$`)
var anonymizedUsername = regexp.MustCompile(`^anonymized_[0-9a-f]{32}$`)

func TestCreateRequestStartsPending(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t, RequestAccess, nil)
	assert.Equal(t, RequestPending, req.Status)
	assert.Nil(t, req.CompletedAt)
	assert.NotEmpty(t, req.ID)
}

func TestCreateRequestValidation(t *testing.T) {
	f := newRequestFixture(t)
	_, err := f.manager.CreateRequest(context.Background(), RequestInput{RequestType: "erase", RequesterEmail: "a@example.com"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.manager.CreateRequest(context.Background(), RequestInput{RequestType: RequestAccess, RequesterEmail: "nope"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateRequestRejectsUnknownUser(t *testing.T) {
	f := newRequestFixture(t)
	for _, userID := range []string{"ghost", "not-a-uuid", ""} {
		_, err := f.manager.CreateRequest(context.Background(), RequestInput{
			RequestType:    RequestAccess,
			RequesterEmail: "jane@example.com",
			UserID:         strPtr(userID),
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, userID)
		assert.Equal(t, "userId", verr.Field)
	}
	assert.Empty(t, f.store.state.requests)
}

func TestUpdateRequestStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	req := f.create(t, RequestCorrection, strPtr("u1"))

	updated, err := f.manager.UpdateRequestStatus(ctx, req.ID, RequestInProgress, "admin", nil)
	require.NoError(t, err)
	assert.Equal(t, RequestInProgress, updated.Status)
	assert.Nil(t, updated.CompletedAt)
	assert.Empty(t, f.notifier.closed)

	updated, err = f.manager.UpdateRequestStatus(ctx, req.ID, RequestCompleted, "admin", strPtr("fixed"))
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	assert.True(t, updated.CompletedAt.Equal(testNow))
	require.NotNil(t, updated.CompletionNotes)
	assert.Equal(t, "fixed", *updated.CompletionNotes)
	require.Len(t, f.notifier.closed, 1)

	_, err = f.manager.UpdateRequestStatus(ctx, req.ID, RequestPending, "admin", nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := f.manager.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
}

func TestPendingCanBeRejectedDirectly(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t, RequestPortability, nil)
	updated, err := f.manager.UpdateRequestStatus(context.Background(), req.ID, RequestRejected, "admin", nil)
	require.NoError(t, err)
	assert.Equal(t, RequestRejected, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
}

func TestPendingCannotCompleteDirectly(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t, RequestAccess, nil)
	_, err := f.manager.UpdateRequestStatus(context.Background(), req.ID, RequestCompleted, "admin", nil)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateMissingRequestReturnsNil(t *testing.T) {
	f := newRequestFixture(t)
	updated, err := f.manager.UpdateRequestStatus(context.Background(), "missing", RequestRejected, "admin", nil)
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestNotifierFailureDoesNotFailUpdate(t *testing.T) {
	f := newRequestFixture(t)
	f.notifier.err = errors.New("smtp down")
	req := f.create(t, RequestAccess, nil)
	updated, err := f.manager.UpdateRequestStatus(context.Background(), req.ID, RequestRejected, "admin", nil)
	require.NoError(t, err)
	assert.Equal(t, RequestRejected, updated.Status)
}

func TestExecuteAccessRequest(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	_, err := f.consent.RecordConsent(ctx, grant("u1", "marketing", true))
	require.NoError(t, err)
	req := f.create(t, RequestAccess, strPtr("u1"))

	bundle, err := f.manager.ExecuteAccessRequest(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Equal(t, req.ID, bundle.RequestID)
	assert.Equal(t, "jane@example.com", bundle.PersonalInfo.Email)
	assert.Equal(t, "Jane Doe", bundle.PersonalInfo.FullName)
	require.Len(t, bundle.ConsentHistory, 1)
	assert.Equal(t, "marketing", bundle.ConsentHistory[0].ConsentType)

	stored, err := f.manager.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestPending, stored.Status, "execution does not move the request")
}

func TestExecuteAccessRequestValidation(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)

	deletion := f.create(t, RequestDeletion, strPtr("u1"))
	_, err := f.manager.ExecuteAccessRequest(ctx, deletion.ID)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrWrongRequestType)

	anonymous := f.create(t, RequestAccess, nil)
	_, err = f.manager.ExecuteAccessRequest(ctx, anonymous.ID)
	assert.ErrorIs(t, err, ErrMissingUserID)

	bundle, err := f.manager.ExecuteAccessRequest(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, bundle)
}

func TestExecuteDeletionRequestAnonymizes(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	for _, consentType := range []string{"marketing", "analytics"} {
		input := grant("u1", consentType, true)
		input.RecordedAt = testNow.Add(-day)
		_, err := f.consent.RecordConsent(ctx, input)
		require.NoError(t, err)
	}
	req := f.create(t, RequestDeletion, strPtr("u1"))

	ok, err := f.manager.ExecuteDeletionRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	user, err := f.store.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEqual(t, "jane@example.com", user.Email)
	assert.NotEqual(t, "jane", user.Username)
	assert.Regexp(t, anonymizedEmail, user.Email)
	assert.Regexp(t, anonymizedUsername, user.Username)
	assert.NotEqual(t, user.Email[len("anonymized_"):len("anonymized_")+32], user.Username[len("anonymized_"):])
	assert.Equal(t, AnonymizedFullName, user.FullName)
	assert.False(t, user.IsActive)
	require.NotNil(t, user.DeletedAt)
	assert.True(t, user.DeletedAt.Equal(testNow))

	for _, consentType := range []string{"marketing", "analytics"} {
		granted, err := f.consent.CheckUserConsent(ctx, "u1", consentType)
		require.NoError(t, err)
		assert.False(t, granted, consentType)
	}
}

func TestExecuteDeletionRequestWrongTypeMutatesNothing(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	_, err := f.consent.RecordConsent(ctx, grant("u1", "marketing", true))
	require.NoError(t, err)
	req := f.create(t, RequestAccess, strPtr("u1"))

	ok, err := f.manager.ExecuteDeletionRequest(ctx, req.ID)
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, ok)

	user, err := f.store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.True(t, user.IsActive)
	granted, err := f.consent.CheckUserConsent(ctx, "u1", "marketing")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestExecuteDeletionRequestMissingUser(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	f.store.PutUser(User{ID: "u2", Email: "sam@example.com", Username: "sam", IsActive: true})
	req := f.create(t, RequestDeletion, strPtr("u2"))
	users, ok := f.store.EntityTable(EntityUser)
	require.True(t, ok)
	require.NoError(t, users.(SoftDeleteTable).DeleteRecord(ctx, "u2"))

	done, err := f.manager.ExecuteDeletionRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestListRequestsFilters(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	f.create(t, RequestAccess, strPtr("u1"))
	second := f.create(t, RequestDeletion, strPtr("u1"))
	f.create(t, RequestAccess, nil)

	all, err := f.manager.ListRequests(ctx, RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := f.manager.ListRequests(ctx, RequestFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")

	deletions, err := f.manager.ListRequests(ctx, RequestFilter{RequestType: RequestDeletion})
	require.NoError(t, err)
	require.Len(t, deletions, 1)
}

func TestAnonymizedIdentityUsesIndependentTokens(t *testing.T) {
	tokens := []string{"aaaa", "bbbb"}
	next := func() (string, error) {
		token := tokens[0]
		tokens = tokens[1:]
		return token, nil
	}
	email, username, err := AnonymizedIdentity(next)
	require.NoError(t, err)
	assert.Equal(t, "anonymized_aaaa@deleted.example.com", email)
	assert.Equal(t, "anonymized_bbbb", username)
}
