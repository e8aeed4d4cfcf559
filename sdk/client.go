// Package sdk is the GraphQL transport core shared by the Kabinet, Kuay and
// Konviktion clients. Queries and mutations travel over HTTP, subscriptions
// over a graphql-transport-ws websocket, both authenticated with a bearer token.
package sdk

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Client is the main SDK client for talking to a Kabinet-style GraphQL service.
// It is safe for concurrent use.
type Client struct {
	transport Transport
	logger    *zap.Logger
}

// NewClient creates a new SDK client with the given configuration.
// Queries and mutations are sent over HTTP and subscriptions over WebSocket.
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	transport := &SplitTransport{
		Left:  NewHTTPTransport(config),
		Right: NewWSTransport(config),
		Split: NotSubscription,
	}

	return &Client{transport: transport, logger: config.Logger}, nil
}

// NewClientWithTransport creates a client that sends every operation
// through transport.
func NewClientWithTransport(transport Transport, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{transport: transport, logger: logger}
}

// Transport returns the transport the client sends operations through.
func (c *Client) Transport() Transport {
	return c.transport
}

// Execute sends a query or mutation and decodes its data member into out.
// out may be nil when the caller only needs the error.
//
// Returns:
//   - GraphQLErrors when the server reported errors (matches ErrNotFound,
//     ErrUnauthorized and friends through errors.Is)
//   - ErrUnauthorized, ErrRateLimited, ErrServerError for transport failures
//   - ErrEmptyResponse when the server returned neither data nor errors
func (c *Client) Execute(ctx context.Context, op Operation, vars Variables, out interface{}) error {
	start := time.Now()

	resp, err := c.transport.Execute(ctx, NewRequest(op, vars))
	if err == nil {
		err = resp.Decode(out)
	}

	c.logger.Debug("graphql operation",
		zap.String("operation", op.Name),
		zap.String("kind", string(op.Kind)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)

	return err
}

// Subscribe starts a subscription. The caller must Close the returned
// subscription; cancelling ctx closes it as well.
func (c *Client) Subscribe(ctx context.Context, op Operation, vars Variables) (*Subscription, error) {
	sub, err := c.transport.Subscribe(ctx, NewRequest(op, vars))
	if err != nil {
		c.logger.Debug("graphql subscription failed",
			zap.String("operation", op.Name),
			zap.Error(err),
		)
		return nil, err
	}
	return sub, nil
}

// Close releases the connections held by the client.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Execute runs op and returns its data decoded as T.
func Execute[T any](ctx context.Context, c *Client, op Operation, vars Variables) (T, error) {
	var out T
	err := c.Execute(ctx, op, vars, &out)
	return out, err
}

// Subscribe runs op and delivers every result decoded as T on the returned
// channel. The error channel receives at most one value once the stream
// ends and is then closed. Both channels are closed when ctx is done.
func Subscribe[T any](ctx context.Context, c *Client, op Operation, vars Variables) (<-chan T, <-chan error, error) {
	sub, err := c.Subscribe(ctx, op, vars)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan T)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(out)
		defer sub.Close()

		for sub.Next(ctx) {
			var v T
			if err := sub.Decode(&v); err != nil {
				errc <- err
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
		if err := sub.Err(); err != nil && ctx.Err() == nil {
			errc <- err
		}
	}()

	return out, errc, nil
}

type clientKey struct{}

// WithClient returns a context carrying c as the current client.
func WithClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// FromContext returns the current client, or ErrNoClient.
func FromContext(ctx context.Context) (*Client, error) {
	if c, ok := ctx.Value(clientKey{}).(*Client); ok && c != nil {
		return c, nil
	}
	return nil, ErrNoClient
}
