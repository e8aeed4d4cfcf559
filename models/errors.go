package models

import "errors"

// Common error types used throughout the Kabinet project.
// These errors provide semantic meaning and enable consistent error handling
// across the development server layers (resolver, store) and input validation.

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrPodNotFound indicates the requested pod does not exist.
	ErrPodNotFound = errors.New("pod not found")

	// ErrDeploymentNotFound indicates the requested deployment does not exist.
	ErrDeploymentNotFound = errors.New("deployment not found")

	// ErrFlavourNotFound indicates no flavour exists or matches the request.
	ErrFlavourNotFound = errors.New("flavour not found")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidRequest indicates the operation variables are invalid.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrConflict indicates the resource already exists.
	ErrConflict = errors.New("resource already exists")

	// ErrUnknownOperation indicates the server does not implement the operation.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrRateLimited indicates the caller exceeded its request budget.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInternalError indicates an unexpected server-side error.
	ErrInternalError = errors.New("internal server error")
)

// ErrorCode returns the machine readable code for a domain error. It is placed
// in the "code" extension of GraphQL errors so clients can branch on it.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrPodNotFound), errors.Is(err, ErrDeploymentNotFound),
		errors.Is(err, ErrFlavourNotFound), errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrInvalidRequest):
		return "BAD_USER_INPUT"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrUnknownOperation):
		return "UNKNOWN_OPERATION"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}
