// Package remote defines the mutation surface the queue processor replays
// against, and its hosted document-store implementation.
package remote

import (
	"context"

	"github.com/fieldsafe/fieldsync/internal/action"
)

// UserProfile is the subset of the profile document the sync engine reads
// back, mainly to backfill site scoping on queued reports.
type UserProfile struct {
	Name string
	Role string
	Site action.SiteRef
}

// API is the remote mutation surface. Checklist and profile operations are
// idempotent; alert creation is not, which the processor accepts (a
// client token travels with the alert so the backend can dedupe).
type API interface {
	SaveChecklistProgress(ctx context.Context, userID, date string, items []action.ChecklistItem) error
	MarkChecklistItem(ctx context.Context, userID, itemID, date string) error
	UnmarkChecklistItem(ctx context.Context, userID, itemID, date string) error
	UpdateUserProfile(ctx context.Context, userID string, updates map[string]any) error
	SubmitHazardReport(ctx context.Context, doc map[string]any) (string, error)
	CreateEmergencyAlert(ctx context.Context, doc map[string]any) (string, error)
	AcknowledgeEmergencyAlert(ctx context.Context, alertID string, ack *action.Acknowledger) error
	GetUserProfile(ctx context.Context, userID string) (*UserProfile, bool, error)
}

// Uploader obtains a stable remote reference for a local media file. Uploads
// must be safely retriable; the processor re-uploads everything when a
// hazard report is replayed.
type Uploader interface {
	Upload(ctx context.Context, localURI string, mediaType action.MediaType) (*action.MediaRef, error)
}
