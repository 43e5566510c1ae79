package action

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/fieldsafe/fieldsync/pkg/errors"
)

type decoderFunc func(payload json.RawMessage) (any, error)

// Registry maps each action kind to its typed payload decoder. The replay
// dispatch stays exhaustive: an unknown kind decodes to a non-retryable
// error rather than an untyped bag.
type Registry struct {
	mtx      sync.RWMutex
	registry map[Kind]decoderFunc
}

// NewRegistry builds a registry with every supported kind pre-registered.
func NewRegistry() *Registry {
	r := &Registry{registry: make(map[Kind]decoderFunc)}
	r.register(KindChecklistBulkUpdate, func(raw json.RawMessage) (any, error) {
		return decodeInto[ChecklistBulkUpdatePayload](raw)
	})
	r.register(KindChecklistItemToggle, func(raw json.RawMessage) (any, error) {
		return decodeInto[ChecklistItemTogglePayload](raw)
	})
	r.register(KindProfileUpdate, func(raw json.RawMessage) (any, error) {
		return decodeInto[ProfileUpdatePayload](raw)
	})
	r.register(KindHazardReportSubmit, func(raw json.RawMessage) (any, error) {
		return decodeInto[HazardReportSubmitPayload](raw)
	})
	r.register(KindEmergencySosCreate, func(raw json.RawMessage) (any, error) {
		return decodeInto[EmergencySosCreatePayload](raw)
	})
	r.register(KindEmergencyAck, func(raw json.RawMessage) (any, error) {
		return decodeInto[EmergencyAckPayload](raw)
	})
	return r
}

func (r *Registry) register(kind Kind, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[kind] = decoder
}

// Decode resolves the typed payload for a queued action. Decode failures are
// non-retryable: a payload that does not parse today will not parse tomorrow.
func (r *Registry) Decode(act QueuedAction) (any, error) {
	r.mtx.RLock()
	decoder, ok := r.registry[act.Kind]
	r.mtx.RUnlock()
	if !ok {
		return nil, pkgerrors.NewNonRetryable(fmt.Errorf("decoder not registered for %s", act.Kind))
	}
	decoded, err := decoder(act.Payload)
	if err != nil {
		return nil, pkgerrors.NewNonRetryable(fmt.Errorf("decode %s payload: %w", act.Kind, err))
	}
	return decoded, nil
}

func decodeInto[T any](raw json.RawMessage) (any, error) {
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a payload against its struct tags. Violations come back as
// a non-retryable validation error since the remote store would reject the
// same shape on every attempt.
func Validate(payload any) error {
	if err := validate.Struct(payload); err != nil {
		return pkgerrors.NewNonRetryable(
			pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payload failed validation"))
	}
	return nil
}
