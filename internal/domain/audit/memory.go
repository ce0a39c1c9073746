package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketingops/internal/domain/compliance"
	"marketingops/internal/requestctx"
)

// Memory keeps audit events in process.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, entry compliance.AuditEntry) error {
	entry = attributed(ctx, entry)
	before, err := marshalState(entry.PreviousState)
	if err != nil {
		return err
	}
	after, err := marshalState(entry.NewState)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Event{
		ID:            uuid.NewString(),
		UserID:        entry.UserID,
		Action:        entry.Action,
		ResourceType:  entry.ResourceType,
		ResourceID:    entry.ResourceID,
		RequestID:     requestctx.GetRequestID(ctx),
		IPAddress:     entry.IPAddress,
		UserAgent:     entry.UserAgent,
		CreatedAt:     time.Now().UTC(),
		PreviousState: before,
		NewState:      after,
	})
	return nil
}

func (m *Memory) matching(filter Filter) []Event {
	out := []Event{}
	for i := len(m.events) - 1; i >= 0; i-- {
		evt := m.events[i]
		if filter.Action != "" && evt.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && evt.ResourceType != filter.ResourceType {
			continue
		}
		if filter.ResourceID != "" && evt.ResourceID != filter.ResourceID {
			continue
		}
		if filter.UserID != "" && evt.UserID != filter.UserID {
			continue
		}
		out = append(out, evt)
	}
	return out
}

func (m *Memory) Count(ctx context.Context, filter Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(filter)), nil
}

func (m *Memory) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.matching(filter)
	if offset >= len(events) {
		return []Event{}, nil
	}
	events = events[offset:]
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events, nil
}
