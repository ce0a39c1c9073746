package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"marketingops/internal/domain/compliance"
	"marketingops/internal/platform/querier"
	"marketingops/internal/requestctx"
)

type Event struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Action        string          `json:"action"`
	ResourceType  string          `json:"resourceType"`
	ResourceID    string          `json:"resourceId"`
	RequestID     string          `json:"requestId"`
	IPAddress     string          `json:"ipAddress"`
	UserAgent     string          `json:"userAgent"`
	CreatedAt     time.Time       `json:"createdAt"`
	PreviousState json.RawMessage `json:"previousState,omitempty"`
	NewState      json.RawMessage `json:"newState,omitempty"`
}

type Filter struct {
	Action       string
	ResourceType string
	ResourceID   string
	UserID       string
}

// Log is an append-only audit trail.
type Log interface {
	Append(ctx context.Context, entry compliance.AuditEntry) error
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error)
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

func marshalState(state any) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}

// attributed fills the client address and agent from the request when the
// entry does not carry its own.
func attributed(ctx context.Context, entry compliance.AuditEntry) compliance.AuditEntry {
	meta := requestctx.MetaFrom(ctx)
	if entry.IPAddress == "" {
		entry.IPAddress = meta.ClientIP
	}
	if entry.UserAgent == "" {
		entry.UserAgent = meta.UserAgent
	}
	return entry
}

// Append writes one entry, joining the caller's transaction when ctx has one.
func (s *Service) Append(ctx context.Context, entry compliance.AuditEntry) error {
	entry = attributed(ctx, entry)
	before, err := marshalState(entry.PreviousState)
	if err != nil {
		return err
	}
	after, err := marshalState(entry.NewState)
	if err != nil {
		return err
	}
	_, err = querier.From(ctx, s.DB).Exec(ctx, `
    INSERT INTO audit_logs (user_id, action, resource_type, resource_id, previous_state, new_state, ip_address, user_agent, request_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID, before, after, entry.IPAddress, entry.UserAgent, requestctx.GetRequestID(ctx))
	return err
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	query, args := buildBaseQuery("SELECT id, user_id, action, resource_type, resource_id, request_id, ip_address, user_agent, created_at, previous_state, new_state", filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var evt Event
		var before, after []byte
		if err := rows.Scan(&evt.ID, &evt.UserID, &evt.Action, &evt.ResourceType, &evt.ResourceID, &evt.RequestID, &evt.IPAddress, &evt.UserAgent, &evt.CreatedAt, &before, &after); err != nil {
			return nil, err
		}
		evt.PreviousState = before
		evt.NewState = after
		out = append(out, evt)
	}
	return out, rows.Err()
}

func buildBaseQuery(selectClause string, filter Filter) (string, []any) {
	query := selectClause + " FROM audit_logs WHERE 1=1"
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}
	add("action", filter.Action)
	add("resource_type", filter.ResourceType)
	add("resource_id", filter.ResourceID)
	add("user_id", filter.UserID)
	return query, args
}
