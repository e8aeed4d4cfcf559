// Package resolver answers the GraphQL operations issued by the Kabinet,
// Kuay and Konviktion clients.
//
// The development server does not parse GraphQL documents. Every operation
// the SDK ships is a fixed, named document, so requests are dispatched on
// their operation name and the variables are decoded into typed arguments.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kabinet.io/kabinet/internal/logging"
	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
	"kabinet.io/kabinet/server/internal/metrics"
	"kabinet.io/kabinet/server/internal/pubsub"
	"kabinet.io/kabinet/server/internal/store"
)

// handler resolves one operation from its raw variables.
type handler func(ctx context.Context, vars json.RawMessage) (interface{}, error)

type operation struct {
	kind    sdk.OperationKind
	field   string
	resolve handler
}

// Resolver dispatches operations to the store and fans pod changes out to
// subscribers.
type Resolver struct {
	store  *store.Store
	pods   *pubsub.Broker[PodEvent]
	logger *zap.Logger
	ops    map[string]operation
}

// New creates a Resolver backed by st.
//
// Parameters:
//   - st: Store holding the server state
//   - logger: Zap logger for structured logging
func New(st *store.Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		store:  st,
		pods:   pubsub.NewBroker[PodEvent](),
		logger: logger.With(zap.String(logging.FieldComponent, "resolver")),
	}
	r.ops = r.operations()
	return r
}

// Close ends all running subscriptions.
func (r *Resolver) Close() {
	r.pods.Close()
}

// Operations returns the names of all operations the resolver answers.
func (r *Resolver) Operations() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	return names
}

// Kind reports the kind of the named operation, and false when unknown.
func (r *Resolver) Kind(req *sdk.Request) (sdk.OperationKind, bool) {
	op, ok := r.ops[operationName(req)]
	return op.kind, ok
}

// Resolve answers a query or mutation. Errors are reported inside the
// response, never as a transport failure.
func (r *Resolver) Resolve(ctx context.Context, req *sdk.Request) *sdk.Response {
	name := operationName(req)
	op, ok := r.ops[name]
	if !ok {
		metrics.GraphQLOperations.WithLabelValues("unknown", "unknown", "error").Inc()
		return errorResponse("", fmt.Errorf("%w: %q", models.ErrUnknownOperation, name))
	}
	if op.kind == sdk.KindSubscription {
		return errorResponse(op.field, fmt.Errorf("%w: %s is a subscription and needs the websocket transport", models.ErrInvalidRequest, name))
	}

	start := time.Now()
	result, err := r.call(ctx, op, req.Variables)
	metrics.GraphQLOperationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.GraphQLOperations.WithLabelValues(name, string(op.kind), status).Inc()

	if err != nil {
		code := models.ErrorCode(err)
		fields := []zap.Field{
			zap.String(logging.FieldOperation, name),
			zap.String("code", code),
			zap.Error(err),
		}
		if code == "INTERNAL_SERVER_ERROR" {
			r.loggerFor(ctx).Error("operation failed", fields...)
		} else {
			r.loggerFor(ctx).Debug("operation rejected", fields...)
		}
		return errorResponse(op.field, err)
	}
	return dataResponse(op.field, result)
}

// loggerFor prefers the request scoped logger set by the transport.
func (r *Resolver) loggerFor(ctx context.Context) *zap.Logger {
	return logging.FromContextOr(ctx, r.logger)
}

func (r *Resolver) call(ctx context.Context, op operation, vars sdk.Variables) (interface{}, error) {
	raw, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	return op.resolve(ctx, raw)
}

// decode unmarshals operation variables into args.
func decode(vars json.RawMessage, args interface{}) error {
	if len(vars) == 0 || string(vars) == "null" {
		return nil
	}
	if err := json.Unmarshal(vars, args); err != nil {
		return fmt.Errorf("%w: invalid variables: %v", models.ErrInvalidRequest, err)
	}
	return nil
}

func operationName(req *sdk.Request) string {
	if req == nil {
		return ""
	}
	if req.OperationName != "" {
		return req.OperationName
	}
	return sdk.ParseOperation(req.Query).Name
}

func dataResponse(field string, result interface{}) *sdk.Response {
	data, err := json.Marshal(map[string]interface{}{field: result})
	if err != nil {
		return errorResponse(field, fmt.Errorf("%w: failed to encode result: %v", models.ErrInternalError, err))
	}
	return &sdk.Response{Data: data}
}

func errorResponse(field string, err error) *sdk.Response {
	gqlErr := sdk.GraphQLError{
		Message:    errorMessage(err),
		Extensions: map[string]interface{}{"code": models.ErrorCode(err)},
	}
	if field != "" {
		gqlErr.Path = []interface{}{field}
	}
	return &sdk.Response{Data: json.RawMessage("null"), Errors: sdk.GraphQLErrors{gqlErr}}
}

// errorMessage hides internal failure details from clients.
func errorMessage(err error) string {
	if models.ErrorCode(err) == "INTERNAL_SERVER_ERROR" && !errors.Is(err, models.ErrInternalError) {
		return models.ErrInternalError.Error()
	}
	return err.Error()
}
