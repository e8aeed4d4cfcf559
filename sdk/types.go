package sdk

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OperationKind is the GraphQL operation type of a document.
type OperationKind string

const (
	// KindQuery is a read operation.
	KindQuery OperationKind = "query"

	// KindMutation is a write operation.
	KindMutation OperationKind = "mutation"

	// KindSubscription is a streaming operation.
	KindSubscription OperationKind = "subscription"
)

// Operation is a named GraphQL document the SDK can send.
type Operation struct {
	// Name is the operation name, sent as operationName.
	Name string

	// Kind decides which transport carries the operation.
	Kind OperationKind

	// Document is the full GraphQL document including fragments.
	Document string
}

// ParseOperation builds an Operation from a raw document. The kind and name
// are taken from the first operation definition; anonymous shorthand
// queries ("{ ... }") are treated as unnamed queries.
func ParseOperation(document string) Operation {
	op := Operation{Kind: KindQuery, Document: document}

	for _, line := range strings.Split(document, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch kind := OperationKind(fields[0]); kind {
		case KindQuery, KindMutation, KindSubscription:
			op.Kind = kind
			if len(fields) > 1 {
				name := fields[1]
				if i := strings.IndexAny(name, "({"); i >= 0 {
					name = name[:i]
				}
				op.Name = name
			}
			return op
		}
	}
	return op
}

// Variables are the GraphQL variables of a request.
type Variables map[string]interface{}

// Request is a GraphQL-over-HTTP request body. It is also the payload of a
// graphql-transport-ws "subscribe" message.
type Request struct {
	// Query is the GraphQL document.
	Query string `json:"query"`

	// OperationName selects the operation in the document.
	OperationName string `json:"operationName,omitempty"`

	// Variables are the operation variables.
	Variables Variables `json:"variables,omitempty"`

	// Kind is used for routing and never sent.
	Kind OperationKind `json:"-"`
}

// NewRequest builds a request for op with the given variables.
func NewRequest(op Operation, vars Variables) *Request {
	return &Request{
		Query:         op.Document,
		OperationName: op.Name,
		Variables:     vars,
		Kind:          op.Kind,
	}
}

// Response is a GraphQL response (or one "next" payload of a subscription).
type Response struct {
	// Data is the raw "data" member.
	Data json.RawMessage `json:"data,omitempty"`

	// Errors is the "errors" member.
	Errors GraphQLErrors `json:"errors,omitempty"`

	// Extensions is the "extensions" member.
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// HasData reports whether the response carries a non-null data member.
func (r *Response) HasData() bool {
	if r == nil {
		return false
	}
	data := strings.TrimSpace(string(r.Data))
	return data != "" && data != "null"
}

// Err returns the response errors, or nil when there are none.
func (r *Response) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return r.Errors
}

// Decode unmarshals the data member into dest. GraphQL errors take
// precedence over partial data.
func (r *Response) Decode(dest interface{}) error {
	if err := r.Err(); err != nil {
		return err
	}
	if !r.HasData() {
		return ErrEmptyResponse
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(r.Data, dest); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
