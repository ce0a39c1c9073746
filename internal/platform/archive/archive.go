// Package archive stores records removed by retention sweeps. Payloads are
// snappy-compressed JSON; keys are spread over 256 buckets by murmur3 hash.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"
)

var timeNow = time.Now

var (
	ErrMissingID      = errors.New("archive: record has no id")
	ErrCorruptPayload = errors.New("archive: corrupt payload")
)

// Envelope is the stored form of one archived record.
type Envelope struct {
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	ArchivedAt time.Time      `json:"archived_at"`
	Record     map[string]any `json:"record"`
}

func recordID(record map[string]any) (string, error) {
	raw, ok := record["id"]
	if !ok || raw == nil {
		return "", ErrMissingID
	}
	id := strings.TrimSpace(fmt.Sprint(raw))
	if id == "" {
		return "", ErrMissingID
	}
	return id, nil
}

func newEnvelope(entityType string, record map[string]any) (Envelope, error) {
	id, err := recordID(record)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EntityType: entityType,
		EntityID:   id,
		ArchivedAt: timeNow().UTC(),
		Record:     record,
	}, nil
}

func Encode(env Envelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

func Decode(payload []byte) (Envelope, error) {
	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return env, nil
}

// Bucket maps an entity id onto one of 256 key prefixes.
func Bucket(entityID string) string {
	return fmt.Sprintf("%02x", murmur3.Sum32([]byte(entityID))%256)
}

// ObjectKey builds archive/<prefix>/<entity_type>/<bucket>/<id>-<nanos>.json.sz.
func ObjectKey(prefix string, env Envelope) string {
	name := fmt.Sprintf("%s-%d.json.sz", env.EntityID, env.ArchivedAt.UnixNano())
	parts := []string{"archive"}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, env.EntityType, Bucket(env.EntityID), name)
	return path.Join(parts...)
}
