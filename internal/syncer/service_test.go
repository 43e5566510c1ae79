package syncer

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsafe/fieldsync/internal/action"
	"github.com/fieldsafe/fieldsync/internal/connectivity"
	"github.com/fieldsafe/fieldsync/internal/queue"
	"github.com/fieldsafe/fieldsync/internal/remote"
	"github.com/fieldsafe/fieldsync/pkg/kvstore"
	"github.com/fieldsafe/fieldsync/pkg/logger"
)

type writeFakeAPI struct {
	failWrites bool

	markCalls   int
	unmarkCalls int
	saveCalls   int
	updateCalls int
	ackCalls    int
	alertDocs   []map[string]any
}

func (f *writeFakeAPI) writeErr() error {
	if f.failWrites {
		return errors.New("write rejected")
	}
	return nil
}

func (f *writeFakeAPI) SaveChecklistProgress(_ context.Context, _, _ string, _ []action.ChecklistItem) error {
	f.saveCalls++
	return f.writeErr()
}

func (f *writeFakeAPI) MarkChecklistItem(_ context.Context, _, _, _ string) error {
	f.markCalls++
	return f.writeErr()
}

func (f *writeFakeAPI) UnmarkChecklistItem(_ context.Context, _, _, _ string) error {
	f.unmarkCalls++
	return f.writeErr()
}

func (f *writeFakeAPI) UpdateUserProfile(_ context.Context, _ string, _ map[string]any) error {
	f.updateCalls++
	return f.writeErr()
}

func (f *writeFakeAPI) SubmitHazardReport(_ context.Context, _ map[string]any) (string, error) {
	return "", errors.New("direct hazard submission unsupported")
}

func (f *writeFakeAPI) CreateEmergencyAlert(_ context.Context, doc map[string]any) (string, error) {
	if err := f.writeErr(); err != nil {
		return "", err
	}
	f.alertDocs = append(f.alertDocs, doc)
	return "alert-1", nil
}

func (f *writeFakeAPI) AcknowledgeEmergencyAlert(_ context.Context, _ string, _ *action.Acknowledger) error {
	f.ackCalls++
	return f.writeErr()
}

func (f *writeFakeAPI) GetUserProfile(_ context.Context, _ string) (*remote.UserProfile, bool, error) {
	return nil, false, nil
}

func newServiceFixture(t *testing.T, online bool) (*Service, *queue.Store, *writeFakeAPI, *connectivity.Manual) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	store, err := queue.NewStore(kvstore.NewMemory(), logg)
	require.NoError(t, err)

	api := &writeFakeAPI{}
	oracle := connectivity.NewManual(connectivity.Status{Connected: online, InternetReachable: online})
	svc, err := NewService(store, api, oracle, logg)
	require.NoError(t, err)
	return svc, store, api, oracle
}

func pendingCount(t *testing.T, store *queue.Store) int {
	t.Helper()
	pending, err := store.Pending(context.Background())
	require.NoError(t, err)
	return pending
}

func TestToggleChecklistItemOnlineWritesDirectly(t *testing.T) {
	svc, store, api, _ := newServiceFixture(t, true)

	queued, err := svc.ToggleChecklistItem(context.Background(), "u1", "helmet", true)
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, 1, api.markCalls)
	assert.Equal(t, 0, pendingCount(t, store))
}

func TestToggleChecklistItemFailureFallsBackToQueue(t *testing.T) {
	svc, store, api, _ := newServiceFixture(t, true)
	api.failWrites = true

	queued, err := svc.ToggleChecklistItem(context.Background(), "u1", "helmet", false)
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, 1, api.unmarkCalls)
	assert.Equal(t, 1, pendingCount(t, store))
}

func TestToggleChecklistItemOfflineQueuesWithoutRemoteCall(t *testing.T) {
	svc, store, api, _ := newServiceFixture(t, false)

	queued, err := svc.ToggleChecklistItem(context.Background(), "u1", "helmet", true)
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, 0, api.markCalls)

	actions, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, action.KindChecklistItemToggle, actions[0].Kind)
}

func TestSaveChecklistOfflineQueues(t *testing.T) {
	svc, store, api, _ := newServiceFixture(t, false)

	queued, err := svc.SaveChecklist(context.Background(), "u1", "2026-08-28", []action.ChecklistItem{
		{ID: "helmet", Completed: true},
	})
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, 0, api.saveCalls)
	assert.Equal(t, 1, pendingCount(t, store))
}

func TestUpdateProfileOnlineThenFallback(t *testing.T) {
	svc, store, api, _ := newServiceFixture(t, true)

	queued, err := svc.UpdateProfile(context.Background(), "u1", map[string]any{"phone": "123"})
	require.NoError(t, err)
	assert.False(t, queued)

	api.failWrites = true
	queued, err = svc.UpdateProfile(context.Background(), "u1", map[string]any{"phone": "456"})
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, 2, api.updateCalls)
	assert.Equal(t, 1, pendingCount(t, store))
}

func TestSubmitHazardReportAlwaysQueues(t *testing.T) {
	svc, store, _, _ := newServiceFixture(t, true)

	queued, err := svc.SubmitHazardReport(context.Background(), action.HazardReport{
		UserID:      "u1",
		Description: "exposed wiring",
	}, []action.LocalMedia{{URI: "img.jpg", Type: action.MediaImage}})
	require.NoError(t, err)
	assert.True(t, queued)

	actions, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, action.KindHazardReportSubmit, actions[0].Kind)
}

func TestSendEmergencySOSOnlineCreatesDirectly(t *testing.T) {
	svc, store, api, _ := newServiceFixture(t, true)

	queued, err := svc.SendEmergencySOS(context.Background(), action.EmergencyAlert{
		UserID: "u1",
		Type:   "emergency_sos",
	})
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, 0, pendingCount(t, store))

	require.Len(t, api.alertDocs, 1)
	token, ok := api.alertDocs[0]["clientToken"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, token, "direct creation still stamps a client token")
}

func TestSendEmergencySOSOfflineQueuesWithToken(t *testing.T) {
	svc, store, _, _ := newServiceFixture(t, false)
	ctx := context.Background()

	queued, err := svc.SendEmergencySOS(ctx, action.EmergencyAlert{
		UserID: "u1",
		Type:   "emergency_sos",
	})
	require.NoError(t, err)
	assert.True(t, queued)

	actions, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	registry := action.NewRegistry()
	payload, err := registry.Decode(actions[0])
	require.NoError(t, err)
	sos, ok := payload.(*action.EmergencySosCreatePayload)
	require.True(t, ok)
	assert.NotEmpty(t, sos.Alert.ClientToken)
	assert.False(t, sos.Alert.Timestamp.IsZero())
}

func TestAcknowledgeAlertFallsBackToQueue(t *testing.T) {
	svc, store, api, _ := newServiceFixture(t, true)
	api.failWrites = true

	queued, err := svc.AcknowledgeAlert(context.Background(), "alert-7", &action.Acknowledger{ID: "sup1", Name: "Ravi"})
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, 1, api.ackCalls)
	assert.Equal(t, 1, pendingCount(t, store))
}
