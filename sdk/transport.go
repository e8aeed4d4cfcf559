package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// Transport carries GraphQL requests to a server.
type Transport interface {
	// Execute sends a query or mutation and returns its single response.
	Execute(ctx context.Context, req *Request) (*Response, error)

	// Subscribe starts a subscription and returns its result stream.
	Subscribe(ctx context.Context, req *Request) (*Subscription, error)

	// Close releases connections held by the transport.
	Close() error
}

// SplitTransport routes each request to Left when Split returns true and to
// Right otherwise.
type SplitTransport struct {
	Left  Transport
	Right Transport
	Split func(req *Request) bool
}

// NotSubscription is the default split predicate: queries and mutations go
// left, subscriptions go right.
func NotSubscription(req *Request) bool {
	return req.Kind != KindSubscription
}

func (s *SplitTransport) route(req *Request) Transport {
	split := s.Split
	if split == nil {
		split = NotSubscription
	}
	if split(req) {
		return s.Left
	}
	return s.Right
}

// Execute forwards to the selected transport.
func (s *SplitTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	return s.route(req).Execute(ctx, req)
}

// Subscribe forwards to the selected transport. A query routed to a side
// that cannot stream falls through to Right.
func (s *SplitTransport) Subscribe(ctx context.Context, req *Request) (*Subscription, error) {
	sub, err := s.route(req).Subscribe(ctx, req)
	if errors.Is(err, ErrSubscriptionsUnsupported) && s.route(req) != s.Right {
		return s.Right.Subscribe(ctx, req)
	}
	return sub, err
}

// Close closes both transports.
func (s *SplitTransport) Close() error {
	leftErr := s.Left.Close()
	if err := s.Right.Close(); err != nil {
		return err
	}
	return leftErr
}

// retryPolicy holds the backoff settings shared by transports.
type retryPolicy struct {
	attempts int
	waitMin  time.Duration
	waitMax  time.Duration

	// retryServerErrors retries 5xx responses as well as network errors.
	retryServerErrors bool
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry logic.
// It will retry on network errors, and on 5xx server errors when
// retryServerErrors is set.
func (p retryPolicy) doRequestWithRetry(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= p.attempts; attempt++ {
		// The body was consumed by the previous attempt
		if attempt > 0 && req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", bodyErr)
			}
			req.Body = body
		}

		resp, err = client.Do(req.WithContext(ctx))

		// If successful (2xx or 4xx), return immediately
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if err == nil && !p.retryServerErrors {
			break
		}

		if attempt == p.attempts {
			break
		}

		drainAndCloseBody(resp)

		backoff := p.calculateBackoff(attempt)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", p.attempts+1, err)
	}

	drainAndCloseBody(resp)
	return nil, fmt.Errorf("%w: status code %d", ErrServerError, resp.StatusCode)
}

// calculateBackoff calculates the backoff duration for a retry attempt.
// It uses exponential backoff with jitter to avoid thundering herd.
func (p retryPolicy) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: min * (2 ^ attempt)
	backoff := float64(p.waitMin) * math.Pow(2, float64(attempt))

	if backoff > float64(p.waitMax) {
		backoff = float64(p.waitMax)
	}

	jitter := rand.Float64() * backoff

	return time.Duration(jitter)
}

// drainAndCloseBody reads and closes the response body to ensure connection reuse.
func drainAndCloseBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}
