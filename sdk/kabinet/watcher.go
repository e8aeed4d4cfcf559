package kabinet

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"kabinet.io/kabinet/models"
)

// PodWatcher polls ListPods and reports changes as pod events. It serves
// servers that do not offer WatchPods over a websocket.
type PodWatcher struct {
	// client is the Kabinet client used for ListPods
	client *Client

	// logger is the structured logger
	logger *zap.Logger

	// interval is the time between polls
	interval time.Duration

	// onEvent receives every detected change
	onEvent func(ctx context.Context, event models.PodEvent) error

	// known maps server pod IDs to the last seen pod
	known map[models.ID]models.ListPod

	// primed is set once the first snapshot was taken
	primed bool

	// skipInitial suppresses create events for the first snapshot
	skipInitial bool
}

// PodWatcherConfig holds configuration for creating a PodWatcher.
type PodWatcherConfig struct {
	// Client is the Kabinet client
	Client *Client

	// Logger is the structured logger (optional)
	Logger *zap.Logger

	// Interval is the polling interval (default: 5 seconds)
	Interval time.Duration

	// OnEvent is called for every change, in pod ID order within one poll
	// (optional; changes are only tracked when nil)
	OnEvent func(ctx context.Context, event models.PodEvent) error

	// SkipInitial suppresses create events for pods present at start
	SkipInitial bool
}

// NewPodWatcher creates a new pod watcher.
func NewPodWatcher(config PodWatcherConfig) *PodWatcher {
	interval := config.Interval
	if interval == 0 {
		interval = 5 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	onEvent := config.OnEvent
	if onEvent == nil {
		onEvent = func(context.Context, models.PodEvent) error { return nil }
	}

	return &PodWatcher{
		client:      config.Client,
		logger:      logger,
		interval:    interval,
		onEvent:     onEvent,
		known:       make(map[models.ID]models.ListPod),
		skipInitial: config.SkipInitial,
	}
}

// Run starts the polling loop and blocks until ctx is cancelled.
//
// The loop:
// 1. Lists the pods on the server
// 2. Diffs them against the previous snapshot
// 3. Reports create, update (podId changed) and delete events
// 4. Waits for next interval or context cancellation
func (w *PodWatcher) Run(ctx context.Context) {
	w.logger.Info("Pod watcher started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run initial poll immediately
	w.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Pod watcher stopped")
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll performs one list and diff. Failed lists are logged and retried on
// the next tick; the snapshot is kept unchanged.
func (w *PodWatcher) Poll(ctx context.Context) {
	pods, err := w.client.ListPods(ctx)
	if err != nil {
		w.logger.Error("Failed to list pods", zap.Error(err))
		return
	}

	events := w.diff(pods)
	emit := !(w.skipInitial && !w.primed)
	w.primed = true

	if !emit {
		w.logger.Debug("Initial pod snapshot taken", zap.Int("pods", len(pods)))
		return
	}

	for _, event := range events {
		if err := w.onEvent(ctx, event); err != nil {
			w.logger.Error("Failed to handle pod event",
				zap.String("kind", string(event.Kind())),
				zap.String("pod_id", event.PodID()),
				zap.Error(err),
			)
		}
	}
}

// diff updates the snapshot and returns the changes since the previous one.
func (w *PodWatcher) diff(pods []models.ListPod) []models.PodEvent {
	current := make(map[models.ID]models.ListPod, len(pods))
	for _, p := range pods {
		current[p.ID] = p
	}

	var events []models.PodEvent
	for _, id := range sortedIDs(current) {
		pod := current[id]
		prev, seen := w.known[id]
		switch {
		case !seen:
			events = append(events, models.PodEvent{Create: &pod})
		case prev.PodID != pod.PodID:
			events = append(events, models.PodEvent{Update: &pod})
		}
	}
	for _, id := range sortedIDs(w.known) {
		if _, ok := current[id]; !ok {
			deleted := id
			events = append(events, models.PodEvent{Delete: &deleted})
		}
	}

	w.known = current
	return events
}

func sortedIDs(m map[models.ID]models.ListPod) []models.ID {
	ids := make([]models.ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
