package sdk

import (
	"errors"
	"fmt"
	"strings"
)

// Common SDK errors that clients can check for specific error handling.
var (
	// ErrInvalidConfig indicates the client configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid client configuration")

	// ErrNoClient indicates no client is attached to the context.
	ErrNoClient = errors.New("no client in context")

	// ErrUnauthorized indicates the provided credentials are invalid.
	ErrUnauthorized = errors.New("unauthorized: invalid credentials")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimited indicates the request was rate limited by the server.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrServerError indicates an internal server error occurred.
	ErrServerError = errors.New("internal server error")

	// ErrBadRequest indicates the request was malformed or invalid.
	ErrBadRequest = errors.New("bad request")

	// ErrConflict indicates the request conflicts with existing state.
	ErrConflict = errors.New("conflict with existing resource")

	// ErrEmptyResponse indicates the server answered without data or errors.
	ErrEmptyResponse = errors.New("empty response")

	// ErrSubscriptionClosed indicates the subscription was closed by the client.
	ErrSubscriptionClosed = errors.New("subscription closed")

	// ErrSubscriptionOverflow indicates a subscription ended because its
	// consumer fell too far behind.
	ErrSubscriptionOverflow = errors.New("subscription backlog exceeded")

	// ErrSubscriptionsUnsupported indicates the transport cannot stream results.
	ErrSubscriptionsUnsupported = errors.New("transport does not support subscriptions")

	// ErrConnectionAckTimeout indicates the server did not acknowledge connection_init in time.
	ErrConnectionAckTimeout = errors.New("connection acknowledgement timeout")

	// ErrConnectionLost indicates the websocket connection dropped while a subscription was active.
	ErrConnectionLost = errors.New("websocket connection lost")
)

// Location is a position in the GraphQL document an error refers to.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError is a single entry of a GraphQL "errors" payload.
type GraphQLError struct {
	// Message is the human-readable error message.
	Message string `json:"message"`

	// Path is the response path the error is attached to.
	Path []interface{} `json:"path,omitempty"`

	// Locations are the document positions the error refers to.
	Locations []Location `json:"locations,omitempty"`

	// Extensions carries server specific data such as the "code".
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// Error implements the error interface.
func (e GraphQLError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Path))
	for _, p := range e.Path {
		parts = append(parts, fmt.Sprint(p))
	}
	return fmt.Sprintf("%s (at %s)", e.Message, strings.Join(parts, "."))
}

// Code returns the "code" extension, or "" when the server sent none.
func (e GraphQLError) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

// GraphQLErrors is the list of errors returned in a GraphQL response.
// It matches the SDK sentinels through errors.Is using the "code" extension.
type GraphQLErrors []GraphQLError

// Error implements the error interface.
func (e GraphQLErrors) Error() string {
	switch len(e) {
	case 0:
		return "graphql: no errors"
	case 1:
		return "graphql: " + e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("graphql: %d errors: %s", len(e), strings.Join(msgs, "; "))
}

// Is reports whether any error in the list carries a code mapping to target.
func (e GraphQLErrors) Is(target error) bool {
	for _, err := range e {
		if sentinel := codeSentinel(err.Code()); sentinel != nil && sentinel == target {
			return true
		}
	}
	return false
}

func codeSentinel(code string) error {
	switch code {
	case "NOT_FOUND":
		return ErrNotFound
	case "UNAUTHENTICATED", "FORBIDDEN":
		return ErrUnauthorized
	case "BAD_USER_INPUT", "GRAPHQL_VALIDATION_FAILED", "UNKNOWN_OPERATION":
		return ErrBadRequest
	case "CONFLICT":
		return ErrConflict
	case "INTERNAL_SERVER_ERROR":
		return ErrServerError
	}
	return nil
}
