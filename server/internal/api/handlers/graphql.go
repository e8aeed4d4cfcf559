package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"kabinet.io/kabinet/internal/logging"
	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
)

// MaxRequestBytes bounds the size of a GraphQL request body.
const MaxRequestBytes = 1 << 20

// Resolver answers GraphQL operations.
type Resolver interface {
	Kind(req *sdk.Request) (sdk.OperationKind, bool)
	Resolve(ctx context.Context, req *sdk.Request) *sdk.Response
	Subscribe(ctx context.Context, req *sdk.Request) (<-chan *sdk.Response, func(), error)
}

// GraphQLHandler serves queries and mutations over HTTP POST.
type GraphQLHandler struct {
	resolver Resolver
}

// NewGraphQLHandler creates a GraphQL HTTP handler.
func NewGraphQLHandler(resolver Resolver) *GraphQLHandler {
	return &GraphQLHandler{resolver: resolver}
}

// Execute handles POST /graphql.
//
// Resolver failures are reported in the GraphQL errors array with status
// 200. Only bodies that are not GraphQL requests get a 400.
func (h *GraphQLHandler) Execute(c *gin.Context) {
	var req sdk.Request
	body := http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondGraphQLError(c, http.StatusBadRequest, fmt.Errorf("%w: malformed request body: %v", models.ErrInvalidRequest, err))
		return
	}
	if req.Query == "" && req.OperationName == "" {
		respondGraphQLError(c, http.StatusBadRequest, fmt.Errorf("%w: query is required", models.ErrInvalidRequest))
		return
	}

	resp := h.resolver.Resolve(c.Request.Context(), &req)
	if kind, ok := h.resolver.Kind(&req); ok {
		c.Set(logging.FieldOperationKind, string(kind))
	}
	c.Set(logging.FieldOperation, req.OperationName)

	c.JSON(http.StatusOK, resp)
}
