package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsafe/fieldsync/internal/action"
	"github.com/fieldsafe/fieldsync/pkg/config"
	"github.com/fieldsafe/fieldsync/pkg/firestore"
)

var testNow = time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)

func newTestAPI(t *testing.T, handler http.Handler) *firestoreAPI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := firestore.NewClient(config.FirestoreConfig{ProjectID: "fieldsafe-dev"}, 5*time.Second, nil)
	require.NoError(t, err)
	client.WithBaseURL(server.URL)

	api, err := NewFirestoreAPI(client)
	require.NoError(t, err)
	typed := api.(*firestoreAPI)
	typed.now = func() time.Time { return testNow }
	return typed
}

func TestDateKeyAt3AM(t *testing.T) {
	// 2 AM still belongs to the previous day's shift.
	early := time.Date(2026, 8, 28, 2, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-27", DateKeyAt3AM(early))

	// 3 AM starts the new day.
	boundary := time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-28", DateKeyAt3AM(boundary))

	midday := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-28", DateKeyAt3AM(midday))
}

func TestMarkChecklistItemPatchesNestedField(t *testing.T) {
	var gotPath string
	var gotMask []string
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMask = r.URL.Query()["updateMask.fieldPaths"]
		require.Equal(t, http.MethodPatch, r.Method)
		_, _ = w.Write([]byte(`{"name":"x"}`))
	}))

	err := api.MarkChecklistItem(context.Background(), "u1", "ppe-helmet", "2026-08-28")
	require.NoError(t, err)
	assert.Contains(t, gotPath, "/documents/checklists/2026-08-28_u1")
	assert.Contains(t, gotMask, "items.`ppe-helmet`")
	assert.Contains(t, gotMask, "updatedAt")
}

func TestUnmarkChecklistItemOmitsFieldFromBody(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mask := r.URL.Query()["updateMask.fieldPaths"]
		assert.Contains(t, mask, "items.`ppe-helmet`")

		var body struct {
			Fields map[string]firestore.Value `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// The masked item path is absent from the fields, so the key
		// is deleted server-side.
		assert.NotContains(t, body.Fields, "items")
		_, _ = w.Write([]byte(`{"name":"x"}`))
	}))

	err := api.UnmarkChecklistItem(context.Background(), "u1", "ppe-helmet", "")
	require.NoError(t, err)
}

func TestSaveChecklistProgressComputesCompletionRate(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Fields map[string]firestore.Value `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Contains(t, body.Fields, "completionRate")
		assert.InDelta(t, 50.0, *body.Fields["completionRate"].DoubleValue, 0.001)

		checklist := body.Fields["checklist"].ArrayValue
		require.NotNil(t, checklist)
		assert.Len(t, checklist.Values, 2)
		_, _ = w.Write([]byte(`{"name":"x"}`))
	}))

	err := api.SaveChecklistProgress(context.Background(), "u1", "2026-08-28", []action.ChecklistItem{
		{ID: "a", Title: "Check lamp", Completed: true},
		{ID: "b", Title: "Check belt", Completed: false},
	})
	require.NoError(t, err)
}

func TestUpdateUserProfileAddsLastActive(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mask := r.URL.Query()["updateMask.fieldPaths"]
		assert.Contains(t, mask, "phone")
		assert.Contains(t, mask, "lastActive")
		_, _ = w.Write([]byte(`{"name":"x"}`))
	}))

	err := api.UpdateUserProfile(context.Background(), "u1", map[string]any{"phone": "12345"})
	require.NoError(t, err)
}

func TestSubmitHazardReportCreates(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/documents/hazard_reports")
		_, _ = w.Write([]byte(`{"name":"projects/p/databases/(default)/documents/hazard_reports/new1"}`))
	}))

	id, err := api.SubmitHazardReport(context.Background(), map[string]any{
		"userId":      "u1",
		"description": "oil spill near conveyor",
	})
	require.NoError(t, err)
	assert.Equal(t, "new1", id)
}

func TestAcknowledgeEmergencyAlert(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/documents/emergency_alerts/alert-7")
		var body struct {
			Fields map[string]firestore.Value `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "acknowledged", *body.Fields["status"].StringValue)
		require.Contains(t, body.Fields, "acknowledgedBy")
		_, _ = w.Write([]byte(`{"name":"x"}`))
	}))

	err := api.AcknowledgeEmergencyAlert(context.Background(), "alert-7", &action.Acknowledger{
		ID:   "sup-1",
		Name: "R. Verma",
	})
	require.NoError(t, err)
}

func TestGetUserProfileExtractsSiteTriple(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"name": "projects/p/databases/(default)/documents/users/u1",
			"fields": {
				"name": {"stringValue": "Asha"},
				"role": {"stringValue": "worker"},
				"stateId": {"stringValue": "jharkhand"},
				"stateName": {"stringValue": "Jharkhand"},
				"coalfieldId": {"stringValue": "jharia"},
				"mineId": {"stringValue": "mine-7"}
			}
		}`))
	}))

	profile, ok, err := api.GetUserProfile(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Asha", profile.Name)
	assert.Equal(t, "jharkhand", profile.Site.StateID)
	assert.Equal(t, "mine-7", profile.Site.MineID)
	assert.Empty(t, profile.Site.CoalfieldName)
}

func TestGetUserProfileMissing(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"status":"NOT_FOUND"}}`))
	}))

	profile, ok, err := api.GetUserProfile(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, profile)
}
