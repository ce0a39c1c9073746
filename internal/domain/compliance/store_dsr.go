package compliance

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, user_id, request_type, status, request_details, requester_email, verification_method, verification_status, completion_notes, admin_user_id, created_at, updated_at, completed_at`

func scanRequest(row pgx.Row) (*DataSubjectRequest, error) {
	var r DataSubjectRequest
	var details []byte
	if err := row.Scan(&r.ID, &r.UserID, &r.RequestType, &r.Status, &details, &r.RequesterEmail, &r.VerificationMethod, &r.VerificationStatus, &r.CompletionNotes, &r.AdminUserID, &r.CreatedAt, &r.UpdatedAt, &r.CompletedAt); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(details, &r.RequestDetails); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateRequest(ctx context.Context, req *DataSubjectRequest) error {
	details, err := marshalJSON(req.RequestDetails)
	if err != nil {
		return err
	}
	return s.q(ctx).QueryRow(ctx, `
    INSERT INTO data_subject_requests (user_id, request_type, status, request_details, requester_email, verification_method, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, req.UserID, req.RequestType, req.Status, details, req.RequesterEmail, req.VerificationMethod, req.CreatedAt, req.UpdatedAt).Scan(&req.ID)
}

func (s *Store) GetRequest(ctx context.Context, id string) (*DataSubjectRequest, error) {
	req, err := scanRequest(s.q(ctx).QueryRow(ctx, `SELECT `+requestColumns+` FROM data_subject_requests WHERE id::text = $1`, id))
	if notFound(err) {
		return nil, nil
	}
	return req, err
}

// UpdateRequest never clears completed_at once it is set.
func (s *Store) UpdateRequest(ctx context.Context, req *DataSubjectRequest) error {
	_, err := s.q(ctx).Exec(ctx, `
    UPDATE data_subject_requests
    SET status = $1,
        admin_user_id = $2,
        completion_notes = $3,
        verification_status = $4,
        completed_at = COALESCE(completed_at, $5),
        updated_at = $6
    WHERE id = $7
  `, req.Status, req.AdminUserID, req.CompletionNotes, req.VerificationStatus, req.CompletedAt, req.UpdatedAt, req.ID)
	return err
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter) ([]DataSubjectRequest, error) {
	rows, err := s.q(ctx).Query(ctx, `
    SELECT `+requestColumns+`
    FROM data_subject_requests
    WHERE ($1 = '' OR user_id::text = $1)
      AND ($2 = '' OR status = $2)
      AND ($3 = '' OR request_type = $3)
    ORDER BY created_at DESC
  `, filter.UserID, string(filter.Status), string(filter.RequestType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DataSubjectRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.q(ctx).QueryRow(ctx, `
    SELECT id, email, username, full_name, is_active, created_at, deleted_at, scheduled_deletion_date
    FROM users
    WHERE id::text = $1
  `, id).Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.IsActive, &u.CreatedAt, &u.DeletedAt, &u.ScheduledDeletionDate)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) AnonymizeUser(ctx context.Context, id string, anon UserAnonymization) (bool, error) {
	tag, err := s.q(ctx).Exec(ctx, `
    UPDATE users
    SET email = $1,
        username = $2,
        full_name = $3,
        is_active = false,
        password_hash = NULL,
        deleted_at = $4
    WHERE id::text = $5
  `, anon.Email, anon.Username, anon.FullName, anon.DeletedAt, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
