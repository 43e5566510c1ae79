// Package action defines the unit of deferred work persisted by the offline
// queue, one typed payload per action kind.
package action

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates queued action payloads.
type Kind string

const (
	KindChecklistBulkUpdate Kind = "checklist_bulk_update"
	KindChecklistItemToggle Kind = "checklist_item_toggle"
	KindProfileUpdate       Kind = "profile_update"
	KindHazardReportSubmit  Kind = "hazard_report_submit"
	KindEmergencySosCreate  Kind = "emergency_sos_create"
	KindEmergencyAck        Kind = "emergency_ack"
)

var validKinds = []Kind{
	KindChecklistBulkUpdate,
	KindChecklistItemToggle,
	KindProfileUpdate,
	KindHazardReportSubmit,
	KindEmergencySosCreate,
	KindEmergencyAck,
}

// IsValid reports whether the value is a known action kind.
func (k Kind) IsValid() bool {
	for _, candidate := range validKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseKind converts raw input into a Kind.
func ParseKind(value string) (Kind, error) {
	for _, candidate := range validKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid action kind %q", value)
}

// QueuedAction is one pending offline write. The ID is assigned at enqueue
// time and used only for removal bookkeeping.
type QueuedAction struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	RetryCount int             `json:"retryCount"`
}

// New builds a QueuedAction with a fresh ID, the current timestamp, and a
// zero retry count.
func New(kind Kind, payload any) (QueuedAction, error) {
	if !kind.IsValid() {
		return QueuedAction{}, fmt.Errorf("invalid action kind %q", kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return QueuedAction{}, fmt.Errorf("encoding %s payload: %w", kind, err)
	}
	now := time.Now()
	return QueuedAction{
		ID:         newID(kind, now),
		Kind:       kind,
		Payload:    raw,
		EnqueuedAt: now,
		RetryCount: 0,
	}, nil
}

// IDs are kind + enqueue epoch + a random suffix, unique for the queue's
// lifetime and readable in logs.
func newID(kind Kind, at time.Time) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s_%d_%s", kind, at.UnixMilli(), suffix)
}
