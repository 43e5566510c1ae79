package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldsafe/fieldsync/internal/action"
	"github.com/fieldsafe/fieldsync/pkg/firestore"
)

// Collection names in the hosted document store.
const (
	collectionUsers           = "users"
	collectionChecklists      = "checklists"
	collectionHazardReports   = "hazard_reports"
	collectionEmergencyAlerts = "emergency_alerts"
)

type firestoreAPI struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreAPI binds the mutation surface to the document-store client.
func NewFirestoreAPI(client *firestore.Client) (API, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}
	return &firestoreAPI{client: client, now: time.Now}, nil
}

// DateKeyAt3AM normalizes a timestamp to its shift day. Days roll over at
// 3 AM local time so a night shift's end-of-shift writes land on the same
// checklist document as its start.
func DateKeyAt3AM(t time.Time) string {
	return t.Add(-3 * time.Hour).Format("2006-01-02")
}

func checklistDocID(userID, date string, now time.Time) string {
	day := now
	if date != "" {
		if parsed, err := time.Parse("2006-01-02", date); err == nil {
			day = parsed.Add(12 * time.Hour)
		}
	}
	return fmt.Sprintf("%s_%s", DateKeyAt3AM(day), userID)
}

func (f *firestoreAPI) SaveChecklistProgress(ctx context.Context, userID, date string, items []action.ChecklistItem) error {
	completed := 0
	encoded := make([]any, 0, len(items))
	for _, item := range items {
		if item.Completed {
			completed++
		}
		encoded = append(encoded, map[string]any{
			"id":        item.ID,
			"title":     item.Title,
			"completed": item.Completed,
			"priority":  item.Priority,
			"category":  item.Category,
		})
	}
	total := len(items)
	if total == 0 {
		total = 1
	}

	docID := checklistDocID(userID, date, f.now())
	return f.client.SetDocument(ctx, collectionChecklists, docID, map[string]any{
		"userId":         userID,
		"date":           DateKeyAt3AM(f.now()),
		"checklist":      encoded,
		"completedAt":    f.now(),
		"completionRate": float64(completed) / float64(total) * 100,
	})
}

func (f *firestoreAPI) MarkChecklistItem(ctx context.Context, userID, itemID, date string) error {
	docID := checklistDocID(userID, date, f.now())
	return f.client.PatchDocument(ctx, collectionChecklists, docID,
		map[string]any{
			"userId":    userID,
			"date":      DateKeyAt3AM(f.now()),
			"items":     map[string]any{itemID: true},
			"updatedAt": f.now(),
			"updatedBy": userID,
		},
		[]string{
			"userId",
			"date",
			firestore.QuoteFieldPath("items", itemID),
			"updatedAt",
			"updatedBy",
		},
	)
}

func (f *firestoreAPI) UnmarkChecklistItem(ctx context.Context, userID, itemID, date string) error {
	docID := checklistDocID(userID, date, f.now())
	// The item path is in the mask but absent from the fields, which
	// deletes the key.
	return f.client.PatchDocument(ctx, collectionChecklists, docID,
		map[string]any{
			"updatedAt": f.now(),
			"updatedBy": userID,
		},
		[]string{
			firestore.QuoteFieldPath("items", itemID),
			"updatedAt",
			"updatedBy",
		},
	)
}

func (f *firestoreAPI) UpdateUserProfile(ctx context.Context, userID string, updates map[string]any) error {
	fields := make(map[string]any, len(updates)+1)
	paths := make([]string, 0, len(updates)+1)
	for key, value := range updates {
		fields[key] = value
		paths = append(paths, firestore.QuoteFieldPath(key))
	}
	fields["lastActive"] = f.now()
	paths = append(paths, "lastActive")
	return f.client.PatchDocument(ctx, collectionUsers, userID, fields, paths)
}

func (f *firestoreAPI) SubmitHazardReport(ctx context.Context, doc map[string]any) (string, error) {
	return f.client.CreateDocument(ctx, collectionHazardReports, doc)
}

func (f *firestoreAPI) CreateEmergencyAlert(ctx context.Context, doc map[string]any) (string, error) {
	return f.client.CreateDocument(ctx, collectionEmergencyAlerts, doc)
}

func (f *firestoreAPI) AcknowledgeEmergencyAlert(ctx context.Context, alertID string, ack *action.Acknowledger) error {
	fields := map[string]any{
		"status":         "acknowledged",
		"acknowledgedAt": f.now(),
	}
	paths := []string{"status", "acknowledgedAt"}
	if ack != nil {
		fields["acknowledgedBy"] = map[string]any{
			"id":   ack.ID,
			"name": ack.Name,
		}
		paths = append(paths, "acknowledgedBy")
	}
	return f.client.PatchDocument(ctx, collectionEmergencyAlerts, alertID, fields, paths)
}

func (f *firestoreAPI) GetUserProfile(ctx context.Context, userID string) (*UserProfile, bool, error) {
	fields, ok, err := f.client.GetDocument(ctx, collectionUsers, userID)
	if err != nil || !ok {
		return nil, false, err
	}
	profile := &UserProfile{
		Name: stringField(fields, "name"),
		Role: stringField(fields, "role"),
		Site: action.SiteRef{
			StateID:       stringField(fields, "stateId"),
			StateName:     stringField(fields, "stateName"),
			CoalfieldID:   stringField(fields, "coalfieldId"),
			CoalfieldName: stringField(fields, "coalfieldName"),
			MineID:        stringField(fields, "mineId"),
			MineName:      stringField(fields, "mineName"),
		},
	}
	return profile, true, nil
}

func stringField(fields map[string]any, key string) string {
	if value, ok := fields[key].(string); ok {
		return value
	}
	return ""
}
