// syncdemo exercises the full offline sync pipeline from the command line:
// it opens the durable store, wires the remote clients, enqueues a sample
// action when asked, and runs the orchestrator until interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fieldsafe/fieldsync/internal/action"
	"github.com/fieldsafe/fieldsync/internal/connectivity"
	"github.com/fieldsafe/fieldsync/internal/processor"
	"github.com/fieldsafe/fieldsync/internal/queue"
	"github.com/fieldsafe/fieldsync/internal/remote"
	"github.com/fieldsafe/fieldsync/internal/syncer"
	"github.com/fieldsafe/fieldsync/pkg/cloudinary"
	"github.com/fieldsafe/fieldsync/pkg/config"
	"github.com/fieldsafe/fieldsync/pkg/firestore"
	"github.com/fieldsafe/fieldsync/pkg/kvstore"
	"github.com/fieldsafe/fieldsync/pkg/logger"
	"github.com/fieldsafe/fieldsync/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "syncdemo"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "syncdemo",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	enqueueSample := flag.Bool("enqueue-sample", false, "queue a sample checklist toggle before starting")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := kvstore.OpenSQLite(ctx, cfg.Storage, logg)
	if err != nil {
		logg.Error(ctx, "failed to open durable store", err)
		os.Exit(1)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logg.Error(ctx, "error closing durable store", err)
		}
	}()

	store, err := queue.NewStore(kv, logg)
	if err != nil {
		logg.Error(ctx, "failed to build queue store", err)
		os.Exit(1)
	}

	fsClient, err := firestore.NewClient(cfg.Firestore, cfg.Sync.CallTimeout, logg)
	if err != nil {
		logg.Error(ctx, "failed to build firestore client", err)
		os.Exit(1)
	}
	api, err := remote.NewFirestoreAPI(fsClient)
	if err != nil {
		logg.Error(ctx, "failed to build remote api", err)
		os.Exit(1)
	}

	cdnClient, err := cloudinary.NewClient(cfg.Cloudinary, cfg.Sync.CallTimeout, logg)
	if err != nil {
		logg.Error(ctx, "failed to build cloudinary client", err)
		os.Exit(1)
	}
	uploader, err := remote.NewCloudinaryUploader(cdnClient)
	if err != nil {
		logg.Error(ctx, "failed to build uploader", err)
		os.Exit(1)
	}

	oracle := connectivity.NewMonitor(cfg.Connectivity, logg)
	oracle.Start(ctx)
	defer oracle.Stop()

	proc, err := processor.New(processor.Params{
		Store:       store,
		API:         api,
		Uploader:    uploader,
		Oracle:      oracle,
		Metrics:     metrics.NewSyncMetrics(prometheus.DefaultRegisterer),
		Logger:      logg,
		MaxRetries:  cfg.Sync.MaxRetries,
		CallTimeout: cfg.Sync.CallTimeout,
	})
	if err != nil {
		logg.Error(ctx, "failed to build processor", err)
		os.Exit(1)
	}

	orch, err := syncer.NewOrchestrator(store, proc, oracle, syncer.NewCronScheduler(cfg.Sync.Interval), logg)
	if err != nil {
		logg.Error(ctx, "failed to build orchestrator", err)
		os.Exit(1)
	}

	if *enqueueSample {
		if _, err := store.Enqueue(ctx, action.KindChecklistItemToggle, action.ChecklistItemTogglePayload{
			UserID: "demo-user",
			ItemID: "helmet-check",
			Marked: true,
		}); err != nil {
			logg.Error(ctx, "failed to enqueue sample action", err)
			os.Exit(1)
		}
	}

	if err := orch.Start(ctx); err != nil {
		logg.Error(ctx, "failed to start orchestrator", err)
		os.Exit(1)
	}
	defer orch.Stop()

	if err := orch.SyncNow(ctx); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "initial drain reported failures")
	}

	logg.Info(ctx, "sync engine running, press ctrl-c to exit")
	<-ctx.Done()

	status := orch.Status()
	fields := map[string]any{
		"pending_actions": status.PendingActions,
		"last_sync_time":  status.LastSyncTime,
	}
	logg.Info(logg.WithFields(ctx, fields), "shutting down")
}
