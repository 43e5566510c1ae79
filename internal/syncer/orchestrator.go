// Package syncer owns the sync lifecycle: when drains run, how concurrent
// triggers coalesce, and the status surface the host application renders.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/fieldsafe/fieldsync/internal/connectivity"
	"github.com/fieldsafe/fieldsync/internal/processor"
	"github.com/fieldsafe/fieldsync/internal/queue"
	"github.com/fieldsafe/fieldsync/pkg/logger"
)

// Drainer is the queue-drain dependency, satisfied by processor.Processor.
type Drainer interface {
	Drain(ctx context.Context) (processor.Result, error)
}

// Status is the point-in-time picture the host application shows the user.
// SyncErrors holds the failures of the most recent pass only.
type Status struct {
	PendingActions int
	IsOnline       bool
	IsSyncing      bool
	LastSyncTime   time.Time
	SyncErrors     []string
}

// Orchestrator triggers drain passes on connectivity recovery, on a periodic
// schedule, and on demand. Overlapping triggers coalesce: whoever holds the
// sync lock runs the pass, everyone else returns immediately.
type Orchestrator struct {
	store     *queue.Store
	drainer   Drainer
	oracle    connectivity.Oracle
	scheduler Scheduler
	logg      *logger.Logger

	syncMu sync.Mutex

	mu          sync.RWMutex
	status      Status
	unsubscribe func()
	cancel      context.CancelFunc
}

// NewOrchestrator wires the sync lifecycle. All dependencies are required.
func NewOrchestrator(store *queue.Store, drainer Drainer, oracle connectivity.Oracle, scheduler Scheduler, logg *logger.Logger) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("queue store is required")
	}
	if drainer == nil {
		return nil, fmt.Errorf("drainer is required")
	}
	if oracle == nil {
		return nil, fmt.Errorf("connectivity oracle is required")
	}
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Orchestrator{
		store:     store,
		drainer:   drainer,
		oracle:    oracle,
		scheduler: scheduler,
		logg:      logg,
	}, nil
}

// Start subscribes to connectivity transitions and launches the periodic
// trigger. A transition back online drains immediately; going offline only
// updates the status surface.
func (o *Orchestrator) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	unsubscribe := o.oracle.Subscribe(func(status connectivity.Status) {
		if !status.Online() {
			o.refreshStatus(runCtx)
			return
		}
		o.logg.Info(runCtx, "connectivity restored, draining offline queue")
		go func() {
			if err := o.SyncNow(runCtx); err != nil {
				o.logg.Warn(o.logg.WithField(runCtx, "error", err.Error()), "drain after reconnect reported failures")
			}
		}()
	})

	if err := o.scheduler.Start(func() {
		if err := o.SyncNow(runCtx); err != nil {
			o.logg.Warn(o.logg.WithField(runCtx, "error", err.Error()), "scheduled drain reported failures")
		}
	}); err != nil {
		unsubscribe()
		cancel()
		return err
	}

	o.mu.Lock()
	o.unsubscribe = unsubscribe
	o.cancel = cancel
	o.mu.Unlock()

	o.refreshStatus(runCtx)
	return nil
}

// Stop halts the periodic trigger and connectivity subscription. A pass
// already in flight finishes on its own.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	unsubscribe := o.unsubscribe
	cancel := o.cancel
	o.unsubscribe = nil
	o.cancel = nil
	o.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	o.scheduler.Stop()
	if cancel != nil {
		cancel()
	}
}

// SyncNow runs one drain pass. If a pass is already running it returns nil
// without waiting; the running pass covers the same queue.
func (o *Orchestrator) SyncNow(ctx context.Context) error {
	if !o.syncMu.TryLock() {
		return nil
	}
	defer o.syncMu.Unlock()

	o.mu.Lock()
	o.status.IsSyncing = true
	o.status.SyncErrors = nil
	o.mu.Unlock()

	_, err := o.drainer.Drain(ctx)

	var syncErrors []string
	for _, passErr := range multierr.Errors(err) {
		syncErrors = append(syncErrors, passErr.Error())
	}

	o.mu.Lock()
	o.status.IsSyncing = false
	o.status.SyncErrors = syncErrors
	o.mu.Unlock()

	o.refreshStatus(ctx)
	return err
}

// Status returns a copy of the current sync status.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	status := o.status
	status.SyncErrors = append([]string(nil), o.status.SyncErrors...)
	return status
}

// refreshStatus recomputes the queue-derived and connectivity-derived fields.
func (o *Orchestrator) refreshStatus(ctx context.Context) {
	pending, err := o.store.Pending(ctx)
	if err != nil {
		o.logg.Warn(o.logg.WithField(ctx, "error", err.Error()), "failed to count pending actions")
	}
	lastSync, err := o.store.LastSyncTime(ctx)
	if err != nil {
		o.logg.Warn(o.logg.WithField(ctx, "error", err.Error()), "failed to read last sync time")
	}
	online := o.oracle.Status(ctx).Online()

	o.mu.Lock()
	o.status.PendingActions = pending
	o.status.LastSyncTime = lastSync
	o.status.IsOnline = online
	o.mu.Unlock()
}
