// Package processor drains the offline action queue against the remote
// mutation API, applying the retry and eviction policy.
package processor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/fieldsafe/fieldsync/internal/action"
	"github.com/fieldsafe/fieldsync/internal/connectivity"
	"github.com/fieldsafe/fieldsync/internal/queue"
	"github.com/fieldsafe/fieldsync/internal/remote"
	pkgerrors "github.com/fieldsafe/fieldsync/pkg/errors"
	"github.com/fieldsafe/fieldsync/pkg/logger"
	"github.com/fieldsafe/fieldsync/pkg/metrics"
)

// User notice shown when a queued report is structurally unacceptable to the
// remote store and has to be dropped.
const (
	noticeTitle = "Upload Failed"
	noticeBody  = "A saved item could not be submitted because it contains unsupported or missing fields. " +
		"It has been removed from the upload queue. Please recreate it in the app if needed."
)

// Params collects the processor's collaborators.
type Params struct {
	Store       *queue.Store
	API         remote.API
	Uploader    remote.Uploader
	Oracle      connectivity.Oracle
	Notifier    Notifier
	Metrics     *metrics.SyncMetrics
	Logger      *logger.Logger
	MaxRetries  int
	CallTimeout time.Duration
}

// Processor replays queued actions in enqueue order. One failing action
// never blocks the ones behind it.
type Processor struct {
	store       *queue.Store
	api         remote.API
	uploader    remote.Uploader
	oracle      connectivity.Oracle
	registry    *action.Registry
	notifier    Notifier
	metrics     *metrics.SyncMetrics
	logg        *logger.Logger
	maxRetries  int
	callTimeout time.Duration

	now func() time.Time
}

// New builds a Processor. Store, API, Uploader, Oracle and Logger are
// required; Notifier defaults to the log-backed implementation.
func New(params Params) (*Processor, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("queue store is required")
	}
	if params.API == nil {
		return nil, fmt.Errorf("remote api is required")
	}
	if params.Uploader == nil {
		return nil, fmt.Errorf("media uploader is required")
	}
	if params.Oracle == nil {
		return nil, fmt.Errorf("connectivity oracle is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if params.Notifier == nil {
		params.Notifier = NewLogNotifier(params.Logger)
	}
	if params.MaxRetries <= 0 {
		params.MaxRetries = 3
	}
	if params.CallTimeout <= 0 {
		params.CallTimeout = 20 * time.Second
	}
	return &Processor{
		store:       params.Store,
		api:         params.API,
		uploader:    params.Uploader,
		oracle:      params.Oracle,
		registry:    action.NewRegistry(),
		notifier:    params.Notifier,
		metrics:     params.Metrics,
		logg:        params.Logger,
		maxRetries:  params.MaxRetries,
		callTimeout: params.CallTimeout,
		now:         time.Now,
	}, nil
}

// Result summarizes one drain pass.
type Result struct {
	Processed int
	Delivered int
	Requeued  int
	Evicted   int
	Pending   int
}

// Drain replays every currently queued action once, in enqueue order. When
// the device is offline it returns immediately without touching the queue.
// Per-action failures are collected into the returned error; the pass itself
// keeps going. The last-sync stamp is recorded on every completed pass.
func (p *Processor) Drain(ctx context.Context) (Result, error) {
	if !p.oracle.Status(ctx).Online() {
		p.logg.Info(ctx, "offline, skipping queue drain")
		return Result{}, nil
	}

	snapshot, err := p.store.ReadAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("queue snapshot: %w", err)
	}

	start := p.now()
	result := Result{Processed: len(snapshot)}
	var passErr error
	removed := make(map[string]struct{}, len(snapshot))
	retried := make(map[string]int)

	for _, act := range snapshot {
		actCtx := p.logg.WithActionKind(p.logg.WithActionID(ctx, act.ID), string(act.Kind))
		replayErr := p.replay(actCtx, act)

		switch Decide(replayErr, act.RetryCount, p.maxRetries) {
		case DecisionRequeue:
			retried[act.ID] = act.RetryCount + 1
			result.Requeued++
			p.metrics.IncAction(string(act.Kind), metrics.OutcomeRequeued)
			p.logg.Warn(p.logg.WithField(actCtx, "retry_count", act.RetryCount+1), "action failed, will retry")
		case DecisionRemoveWithNotice:
			removed[act.ID] = struct{}{}
			result.Evicted++
			p.metrics.IncAction(string(act.Kind), metrics.OutcomeEvicted)
			p.logg.Error(actCtx, "dropping action the remote store will never accept", replayErr)
			p.notifier.Notify(actCtx, noticeTitle, noticeBody)
		case DecisionRemove:
			removed[act.ID] = struct{}{}
			if replayErr == nil {
				result.Delivered++
				p.metrics.IncAction(string(act.Kind), metrics.OutcomeDelivered)
				p.logg.Info(actCtx, "action delivered")
			} else {
				result.Evicted++
				p.metrics.IncAction(string(act.Kind), metrics.OutcomeEvicted)
				p.logg.Error(actCtx, "retry ceiling reached, dropping action", replayErr)
			}
		}
		if replayErr != nil {
			passErr = multierr.Append(passErr, fmt.Errorf("action %s: %w", act.ID, replayErr))
		}
	}

	pending, err := p.writeBack(ctx, removed, retried)
	if err != nil {
		passErr = multierr.Append(passErr, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "write back offline queue"))
	}
	result.Pending = pending

	if err := p.store.SetLastSyncTime(ctx, p.now()); err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "failed to record last sync time")
	}

	p.metrics.ObserveDrainDuration(p.now().Sub(start))
	p.metrics.SetPending(pending)
	fields := map[string]any{
		"processed": result.Processed,
		"delivered": result.Delivered,
		"requeued":  result.Requeued,
		"evicted":   result.Evicted,
		"pending":   pending,
	}
	p.logg.Info(p.logg.WithFields(ctx, fields), "queue drain pass finished")
	return result, passErr
}

// writeBack re-reads the queue so actions enqueued during the pass survive,
// then drops terminated actions and bumps retry counts on the rest.
func (p *Processor) writeBack(ctx context.Context, removed map[string]struct{}, retried map[string]int) (int, error) {
	current, err := p.store.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	remaining := current[:0]
	for _, act := range current {
		if _, drop := removed[act.ID]; drop {
			continue
		}
		if count, ok := retried[act.ID]; ok {
			act.RetryCount = count
		}
		remaining = append(remaining, act)
	}
	if err := p.store.ReplaceAll(ctx, remaining); err != nil {
		return 0, err
	}
	return len(remaining), nil
}

// replay dispatches one action to its remote operation. Every failure is
// returned, never panicked; the decision layer classifies it.
func (p *Processor) replay(ctx context.Context, act action.QueuedAction) error {
	payload, err := p.registry.Decode(act)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	switch pl := payload.(type) {
	case *action.ChecklistBulkUpdatePayload:
		return p.api.SaveChecklistProgress(callCtx, pl.UserID, pl.Date, pl.Checklist)
	case *action.ChecklistItemTogglePayload:
		if pl.Marked {
			return p.api.MarkChecklistItem(callCtx, pl.UserID, pl.ItemID, pl.Date)
		}
		return p.api.UnmarkChecklistItem(callCtx, pl.UserID, pl.ItemID, pl.Date)
	case *action.ProfileUpdatePayload:
		return p.api.UpdateUserProfile(callCtx, pl.UserID, pl.Updates)
	case *action.HazardReportSubmitPayload:
		return p.replayHazardReport(callCtx, pl)
	case *action.EmergencySosCreatePayload:
		return p.replayEmergencyAlert(callCtx, pl)
	case *action.EmergencyAckPayload:
		return p.api.AcknowledgeEmergencyAlert(callCtx, pl.AlertID, pl.Acknowledger)
	default:
		return pkgerrors.NewNonRetryable(fmt.Errorf("no replay routine for kind %s", act.Kind))
	}
}
