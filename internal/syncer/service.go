package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsafe/fieldsync/internal/action"
	"github.com/fieldsafe/fieldsync/internal/connectivity"
	"github.com/fieldsafe/fieldsync/internal/queue"
	"github.com/fieldsafe/fieldsync/internal/remote"
	"github.com/fieldsafe/fieldsync/pkg/logger"
)

// Service is the write path the host application calls. Each operation
// attempts the remote call directly and falls back to the offline queue, so
// a user action never fails outright while the durable store is writable.
type Service struct {
	store  *queue.Store
	api    remote.API
	oracle connectivity.Oracle
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(store *queue.Store, api remote.API, oracle connectivity.Oracle, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("queue store is required")
	}
	if api == nil {
		return nil, fmt.Errorf("remote api is required")
	}
	if oracle == nil {
		return nil, fmt.Errorf("connectivity oracle is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{store: store, api: api, oracle: oracle, logg: logg, now: time.Now}, nil
}

// ToggleChecklistItem marks or unmarks one checklist item. Returns true when
// the write was queued instead of applied remotely.
func (s *Service) ToggleChecklistItem(ctx context.Context, userID, itemID string, marked bool) (bool, error) {
	if s.online(ctx) {
		var err error
		if marked {
			err = s.api.MarkChecklistItem(ctx, userID, itemID, "")
		} else {
			err = s.api.UnmarkChecklistItem(ctx, userID, itemID, "")
		}
		if err == nil {
			return false, nil
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checklist write failed, queueing")
	}
	return s.enqueue(ctx, action.KindChecklistItemToggle, action.ChecklistItemTogglePayload{
		UserID: userID,
		ItemID: itemID,
		Marked: marked,
	})
}

// SaveChecklist replaces the full checklist for the given day.
func (s *Service) SaveChecklist(ctx context.Context, userID, date string, items []action.ChecklistItem) (bool, error) {
	if s.online(ctx) {
		err := s.api.SaveChecklistProgress(ctx, userID, date, items)
		if err == nil {
			return false, nil
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checklist save failed, queueing")
	}
	return s.enqueue(ctx, action.KindChecklistBulkUpdate, action.ChecklistBulkUpdatePayload{
		UserID:    userID,
		Date:      date,
		Checklist: items,
	})
}

// UpdateProfile merge-patches fields into the user's profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, updates map[string]any) (bool, error) {
	if s.online(ctx) {
		err := s.api.UpdateUserProfile(ctx, userID, updates)
		if err == nil {
			return false, nil
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "profile update failed, queueing")
	}
	return s.enqueue(ctx, action.KindProfileUpdate, action.ProfileUpdatePayload{
		UserID:  userID,
		Updates: updates,
	})
}

// SubmitHazardReport always queues the report so the media upload pipeline
// runs in exactly one place, the drain pass. Callers trigger SyncNow after
// queueing when they want immediate delivery.
func (s *Service) SubmitHazardReport(ctx context.Context, report action.HazardReport, mediaFiles []action.LocalMedia) (bool, error) {
	if report.Timestamp.IsZero() {
		report.Timestamp = s.now()
	}
	return s.enqueue(ctx, action.KindHazardReportSubmit, action.HazardReportSubmitPayload{
		Report:     report,
		MediaFiles: mediaFiles,
	})
}

// SendEmergencySOS creates the alert remotely when online, queueing
// otherwise. A client token is stamped on first submission so replays of
// the same alert stay identifiable.
func (s *Service) SendEmergencySOS(ctx context.Context, alert action.EmergencyAlert) (bool, error) {
	if alert.ClientToken == "" {
		alert.ClientToken = uuid.NewString()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = s.now()
	}
	if s.online(ctx) {
		_, err := s.api.CreateEmergencyAlert(ctx, remote.EmergencyAlertDoc(alert))
		if err == nil {
			return false, nil
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "emergency alert create failed, queueing")
	}
	return s.enqueue(ctx, action.KindEmergencySosCreate, action.EmergencySosCreatePayload{Alert: alert})
}

// AcknowledgeAlert records that the user acknowledged an emergency alert.
func (s *Service) AcknowledgeAlert(ctx context.Context, alertID string, ack *action.Acknowledger) (bool, error) {
	if s.online(ctx) {
		err := s.api.AcknowledgeEmergencyAlert(ctx, alertID, ack)
		if err == nil {
			return false, nil
		}
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "alert ack failed, queueing")
	}
	return s.enqueue(ctx, action.KindEmergencyAck, action.EmergencyAckPayload{
		AlertID:      alertID,
		Acknowledger: ack,
	})
}

func (s *Service) online(ctx context.Context) bool {
	return s.oracle.Status(ctx).Online()
}

func (s *Service) enqueue(ctx context.Context, kind action.Kind, payload any) (bool, error) {
	if _, err := s.store.Enqueue(ctx, kind, payload); err != nil {
		return false, err
	}
	return true, nil
}
