// Package queue persists the ordered list of pending offline actions in the
// durable key-value store.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fieldsafe/fieldsync/internal/action"
	pkgerrors "github.com/fieldsafe/fieldsync/pkg/errors"
	"github.com/fieldsafe/fieldsync/pkg/kvstore"
	"github.com/fieldsafe/fieldsync/pkg/logger"
)

// Well-known durable store keys. queueKey holds the JSON-encoded action
// array; lastSyncKey holds the last drain attempt as epoch milliseconds.
const (
	queueKey    = "offline_queue"
	lastSyncKey = "last_sync_timestamp"
)

// Store owns all reads and writes of the persisted action sequence. All
// mutations are funneled through the drain loop or enqueue paths, so the
// read-modify-write cycles here never run concurrently.
type Store struct {
	kv   kvstore.Store
	logg *logger.Logger
}

// NewStore builds a queue store over the durable key-value store.
func NewStore(kv kvstore.Store, logg *logger.Logger) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("durable store is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Store{kv: kv, logg: logg}, nil
}

// Enqueue assigns identity to the payload and appends it to the persisted
// sequence. If the durable write fails the action is lost and the error is
// returned; there is no in-memory fallback queue.
func (s *Store) Enqueue(ctx context.Context, kind action.Kind, payload any) (action.QueuedAction, error) {
	act, err := action.New(kind, payload)
	if err != nil {
		return action.QueuedAction{}, err
	}

	current, err := s.ReadAll(ctx)
	if err != nil {
		return action.QueuedAction{}, err
	}
	if err := s.ReplaceAll(ctx, append(current, act)); err != nil {
		return action.QueuedAction{}, err
	}

	fields := map[string]any{
		"action_id":   act.ID,
		"action_kind": act.Kind,
		"queue_depth": len(current) + 1,
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "action queued for offline sync")
	return act, nil
}

// ReadAll returns the persisted sequence in enqueue order. A missing or
// undecodable value yields an empty queue; corruption is logged, not fatal.
// Read failures of the store itself are returned so callers never mistake a
// flaky disk for an empty queue.
func (s *Store) ReadAll(ctx context.Context) ([]action.QueuedAction, error) {
	raw, ok, err := s.kv.Get(ctx, queueKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reading offline queue")
	}
	if !ok {
		return nil, nil
	}
	var actions []action.QueuedAction
	if err := json.Unmarshal(raw, &actions); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "discarding undecodable offline queue")
		return nil, nil
	}
	return actions, nil
}

// ReplaceAll atomically overwrites the persisted sequence.
func (s *Store) ReplaceAll(ctx context.Context, actions []action.QueuedAction) error {
	if len(actions) == 0 {
		return s.kv.Remove(ctx, queueKey)
	}
	return kvstore.SetJSON(ctx, s.kv, queueKey, actions)
}

// RemoveByID drops every action whose ID is in the given set.
func (s *Store) RemoveByID(ctx context.Context, ids map[string]struct{}) error {
	if len(ids) == 0 {
		return nil
	}
	current, err := s.ReadAll(ctx)
	if err != nil {
		return err
	}
	remaining := current[:0]
	for _, act := range current {
		if _, drop := ids[act.ID]; !drop {
			remaining = append(remaining, act)
		}
	}
	return s.ReplaceAll(ctx, remaining)
}

// Clear removes every pending action.
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Remove(ctx, queueKey)
}

// Pending reports the number of queued actions.
func (s *Store) Pending(ctx context.Context) (int, error) {
	actions, err := s.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(actions), nil
}

// SetLastSyncTime records the most recent drain attempt.
func (s *Store) SetLastSyncTime(ctx context.Context, at time.Time) error {
	return s.kv.Set(ctx, lastSyncKey, []byte(strconv.FormatInt(at.UnixMilli(), 10)))
}

// LastSyncTime returns the recorded drain attempt time, or zero when no
// drain has ever run.
func (s *Store) LastSyncTime(ctx context.Context) (time.Time, error) {
	raw, ok, err := s.kv.Get(ctx, lastSyncKey)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, nil
	}
	millis, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		s.logg.Warn(ctx, "discarding unparsable last sync timestamp")
		return time.Time{}, nil
	}
	return time.UnixMilli(millis), nil
}
