package processor

import (
	"context"

	"github.com/fieldsafe/fieldsync/pkg/logger"
)

// Notifier surfaces one-time messages to the user when a saved item is
// dropped from the queue. The host application supplies the real
// implementation; everything else stays silent best-effort.
type Notifier interface {
	Notify(ctx context.Context, title, message string)
}

// LogNotifier writes notices to the structured log. It is the default when
// the host wires no UI-facing notifier.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Notify(ctx context.Context, title, message string) {
	fields := map[string]any{"title": title, "message": message}
	n.logg.Warn(n.logg.WithFields(ctx, fields), "user notice")
}
