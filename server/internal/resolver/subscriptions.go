package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"kabinet.io/kabinet/internal/logging"
	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
	"kabinet.io/kabinet/server/internal/metrics"
	"kabinet.io/kabinet/server/internal/store"
)

// PodEvent is a pod change tagged with the backend that runs the pod.
type PodEvent struct {
	BackendID string
	Event     models.PodEvent
}

// publishPod announces a pod mutation to WatchPods subscribers.
func (r *Resolver) publishPod(pod *models.Pod, change *store.PodChange) {
	if pod == nil || change == nil {
		return
	}
	item := &models.ListPod{ID: pod.ID, PodID: pod.PodID}
	event := models.PodEvent{Update: item}
	if change.Created {
		event = models.PodEvent{Create: item}
	}

	delivered := r.pods.Publish(PodEvent{BackendID: change.BackendID, Event: event})
	metrics.PodEvents.WithLabelValues(string(event.Kind())).Inc()
	r.logger.Debug("pod event published",
		zap.String(logging.FieldPodID, pod.ID),
		zap.String(logging.FieldBackendID, change.BackendID),
		zap.String("kind", string(event.Kind())),
		zap.Int("subscribers", delivered),
	)
}

// Subscribe starts a subscription. Each result on the returned channel is a
// complete response payload; the channel closes when ctx is done, the
// returned cancel func is called or the resolver is closed.
func (r *Resolver) Subscribe(ctx context.Context, req *sdk.Request) (<-chan *sdk.Response, func(), error) {
	name := operationName(req)
	op, ok := r.ops[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", models.ErrUnknownOperation, name)
	}
	if op.kind != sdk.KindSubscription {
		return nil, nil, fmt.Errorf("%w: %s is not a subscription", models.ErrInvalidRequest, name)
	}

	raw, err := json.Marshal(req.Variables)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	var args struct {
		Backend *string `json:"backend"`
	}
	if err := decode(raw, &args); err != nil {
		return nil, nil, err
	}

	filter := func(PodEvent) bool { return true }
	if args.Backend != nil && *args.Backend != "" {
		backend := *args.Backend
		filter = func(e PodEvent) bool { return e.BackendID == backend }
	}

	ctx, stop := context.WithCancel(ctx)
	events, unsubscribe, err := r.pods.Subscribe(ctx, filter)
	if err != nil {
		stop()
		return nil, nil, err
	}

	metrics.GraphQLOperations.WithLabelValues(name, string(op.kind), "success").Inc()
	metrics.ActiveSubscriptions.WithLabelValues(name).Inc()

	out := make(chan *sdk.Response)
	go func() {
		defer close(out)
		defer metrics.ActiveSubscriptions.WithLabelValues(name).Dec()
		defer unsubscribe()

		for e := range events {
			select {
			case out <- dataResponse(op.field, e.Event):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, stop, nil
}
