package kabinet

import (
	"context"
	"fmt"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
)

// PodEvents is a stream of pod changes.
type PodEvents struct {
	sub *sdk.Subscription
	err error
}

// Next waits for the next event. It returns false once the stream ended;
// Err reports why.
func (e *PodEvents) Next(ctx context.Context) (models.PodEvent, bool) {
	if !e.sub.Next(ctx) {
		return models.PodEvent{}, false
	}

	var data struct {
		Pods models.PodEvent `json:"pods"`
	}
	if err := e.sub.Decode(&data); err != nil {
		e.err = err
		e.sub.Close()
		return models.PodEvent{}, false
	}
	return data.Pods, true
}

// Err returns the error that ended the stream, if any.
func (e *PodEvents) Err() error {
	if e.err != nil {
		return e.err
	}
	return e.sub.Err()
}

// Close stops the stream.
func (e *PodEvents) Close() error {
	return e.sub.Close()
}

// WatchPods streams pod creations, updates and deletions, optionally
// restricted to one backend. The stream runs until ctx is done or Close is called.
func (c *Client) WatchPods(ctx context.Context, backend *models.ID) (*PodEvents, error) {
	sub, err := c.gql.Subscribe(ctx, watchPodsOperation, sdk.Variables{"backend": backend})
	if err != nil {
		return nil, fmt.Errorf("failed to watch pods: %w", err)
	}
	return &PodEvents{sub: sub}, nil
}
