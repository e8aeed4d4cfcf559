// Package logging provides the structured logging setup shared by the Kabinet
// development server and CLI.
package logging

// Standard field names for consistent logging across the application.
const (
	// FieldRequestID is a unique identifier for each HTTP request.
	FieldRequestID = "request_id"

	// FieldSubject is the authenticated token subject.
	FieldSubject = "subject"

	// FieldOperation is the GraphQL operation name.
	FieldOperation = "operation"

	// FieldOperationKind is the GraphQL operation kind (query, mutation, subscription).
	FieldOperationKind = "operation_kind"

	// FieldSubscriptionID is the graphql-transport-ws subscription id.
	FieldSubscriptionID = "subscription_id"

	// FieldBackendID is the unique identifier for a backend.
	FieldBackendID = "backend_id"

	// FieldPodID is the unique identifier for a pod.
	FieldPodID = "pod_id"

	// FieldDuration is the duration of an operation.
	FieldDuration = "duration"

	// FieldStatusCode is the HTTP status code of a response.
	FieldStatusCode = "status_code"

	// FieldMethod is the HTTP method of a request.
	FieldMethod = "method"

	// FieldPath is the URL path of an HTTP request.
	FieldPath = "path"

	// FieldRemoteAddr is the client's remote address.
	FieldRemoteAddr = "remote_addr"

	// FieldUserAgent is the client's user agent string.
	FieldUserAgent = "user_agent"

	// FieldError is the error message or description.
	FieldError = "error"

	// FieldComponent identifies the component or service generating the log.
	FieldComponent = "component"
)
