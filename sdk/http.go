package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// HTTPTransport sends queries and mutations as GraphQL-over-HTTP POST requests.
type HTTPTransport struct {
	endpoint  string
	client    *http.Client
	token     TokenProvider
	userAgent string
	retry     retryPolicy
	logger    *zap.Logger
}

// NewHTTPTransport creates an HTTP transport from a validated configuration.
func NewHTTPTransport(config ClientConfig) *HTTPTransport {
	return &HTTPTransport{
		endpoint:  config.Endpoint,
		client:    config.HTTPClient,
		token:     config.TokenProvider,
		userAgent: config.UserAgent,
		retry: retryPolicy{
			attempts:          max(config.RetryAttempts, 0),
			waitMin:           config.RetryWaitMin,
			waitMax:           config.RetryWaitMax,
			retryServerErrors: true,
		},
		logger: config.Logger,
	}
}

// Execute posts req and decodes the GraphQL response. A 401 triggers one
// token refresh and one retry when the token provider can refresh.
// Mutations are not retried after a 5xx response since the server may
// already have applied them.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	policy := t.retry
	if req.Kind == KindMutation {
		policy.retryServerErrors = false
	}

	refreshed := false
	for {
		resp, err := t.post(ctx, body, policy)
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			drainAndCloseBody(resp)
			if refreshed {
				return nil, ErrUnauthorized
			}
			ok, err := refreshToken(ctx, t.token)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrUnauthorized
			}
			t.logger.Debug("token refreshed after 401", zap.String("operation", req.OperationName))
			refreshed = true
			continue
		case http.StatusTooManyRequests:
			drainAndCloseBody(resp)
			return nil, ErrRateLimited
		}

		return t.parseResponse(resp)
	}
}

// Subscribe is not supported over plain HTTP.
func (t *HTTPTransport) Subscribe(context.Context, *Request) (*Subscription, error) {
	return nil, ErrSubscriptionsUnsupported
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

func (t *HTTPTransport) post(ctx context.Context, body []byte, policy retryPolicy) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	if err := setBearer(ctx, req.Header, t.token); err != nil {
		return nil, err
	}

	return policy.doRequestWithRetry(ctx, t.client, req)
}

// parseResponse decodes a GraphQL response body. Servers answer validation
// failures with 4xx and a GraphQL body, so the body is tried first and the
// status code only decides the error when the body is not GraphQL.
func (t *HTTPTransport) parseResponse(resp *http.Response) (*Response, error) {
	defer drainAndCloseBody(resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var out Response
	if jsonErr := json.Unmarshal(data, &out); jsonErr == nil && (out.HasData() || len(out.Errors) > 0) {
		return &out, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status code %d", ErrBadRequest, resp.StatusCode)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyResponse
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return &out, nil
}
