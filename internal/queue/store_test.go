package queue

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsafe/fieldsync/internal/action"
	"github.com/fieldsafe/fieldsync/pkg/kvstore"
	"github.com/fieldsafe/fieldsync/pkg/logger"
)

func testLogger(out io.Writer) *logger.Logger {
	if out == nil {
		out = io.Discard
	}
	return logger.New(logger.Options{ServiceName: "queue-test", Output: out})
}

func newTestStore(t *testing.T) (*Store, *kvstore.Memory) {
	t.Helper()
	kv := kvstore.NewMemory()
	store, err := NewStore(kv, testLogger(nil))
	require.NoError(t, err)
	return store, kv
}

func TestEnqueuePreservesOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	for _, itemID := range []string{"helmet", "lamp", "gas-meter"} {
		_, err := store.Enqueue(ctx, action.KindChecklistItemToggle, action.ChecklistItemTogglePayload{
			UserID: "u1",
			ItemID: itemID,
			Marked: true,
		})
		require.NoError(t, err)
	}

	actions, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 3)
	for _, act := range actions {
		assert.Equal(t, action.KindChecklistItemToggle, act.Kind)
		assert.Zero(t, act.RetryCount)
	}
	assert.True(t, bytes.Contains(actions[0].Payload, []byte("helmet")))
	assert.True(t, bytes.Contains(actions[2].Payload, []byte("gas-meter")))
}

func TestQueueSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	store, err := NewStore(kv, testLogger(nil))
	require.NoError(t, err)

	_, err = store.Enqueue(ctx, action.KindProfileUpdate, action.ProfileUpdatePayload{
		UserID:  "u1",
		Updates: map[string]any{"phone": "999"},
	})
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, action.KindEmergencyAck, action.EmergencyAckPayload{AlertID: "a1"})
	require.NoError(t, err)

	before, err := store.ReadAll(ctx)
	require.NoError(t, err)

	// A process restart is a fresh Store over the same durable store.
	reloaded, err := NewStore(kv, testLogger(nil))
	require.NoError(t, err)
	after, err := reloaded.ReadAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestReadAllEmptyAndCorrupt(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)

	actions, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, actions)

	require.NoError(t, kv.Set(ctx, "offline_queue", []byte(`{broken`)))
	actions, err = store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

type failingGetStore struct {
	kvstore.Store
	getErr error
}

func (f *failingGetStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func TestReadAllSurfacesStoreErrors(t *testing.T) {
	ctx := context.Background()
	kv := &failingGetStore{Store: kvstore.NewMemory()}
	store, err := NewStore(kv, testLogger(nil))
	require.NoError(t, err)

	_, err = store.Enqueue(ctx, action.KindChecklistItemToggle, action.ChecklistItemTogglePayload{
		UserID: "u1",
		ItemID: "helmet",
		Marked: true,
	})
	require.NoError(t, err)

	kv.getErr = errors.New("database is locked")
	_, err = store.ReadAll(ctx)
	require.Error(t, err, "a read failure must not look like an empty queue")

	kv.getErr = nil
	actions, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, actions, 1, "the persisted action survives the outage")
}

func TestRemoveByID(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	first, err := store.Enqueue(ctx, action.KindEmergencyAck, action.EmergencyAckPayload{AlertID: "a1"})
	require.NoError(t, err)
	second, err := store.Enqueue(ctx, action.KindEmergencyAck, action.EmergencyAckPayload{AlertID: "a2"})
	require.NoError(t, err)
	third, err := store.Enqueue(ctx, action.KindEmergencyAck, action.EmergencyAckPayload{AlertID: "a3"})
	require.NoError(t, err)

	err = store.RemoveByID(ctx, map[string]struct{}{first.ID: {}, third.ID: {}})
	require.NoError(t, err)

	remaining, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, second.ID, remaining[0].ID)

	// Removing nothing is a no-op that performs no write.
	require.NoError(t, store.RemoveByID(ctx, nil))
}

func TestClearAndPending(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	count, err := store.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = store.Enqueue(ctx, action.KindEmergencyAck, action.EmergencyAckPayload{AlertID: "a1"})
	require.NoError(t, err)

	count, err = store.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.Clear(ctx))
	count, err = store.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLastSyncTimeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	at, err := store.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	stamp := time.Date(2026, 8, 28, 7, 45, 0, 0, time.UTC)
	require.NoError(t, store.SetLastSyncTime(ctx, stamp))

	at, err = store.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, stamp.UnixMilli(), at.UnixMilli())
}

func TestReplaceAllEmptyRemovesKey(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)

	_, err := store.Enqueue(ctx, action.KindEmergencyAck, action.EmergencyAckPayload{AlertID: "a1"})
	require.NoError(t, err)

	require.NoError(t, store.ReplaceAll(ctx, nil))
	_, ok, err := kv.Get(ctx, "offline_queue")
	require.NoError(t, err)
	assert.False(t, ok)
}
