// Package konviktion provides typed access to the Konviktion identity service.
package konviktion

import (
	"context"
	"fmt"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
)

var usersOperation = sdk.Operation{
	Name:     "Users",
	Kind:     sdk.KindQuery,
	Document: "query Users {\n  users {\n    id\n  }\n}",
}

// Client exposes the Konviktion GraphQL operations.
type Client struct {
	gql *sdk.Client
}

// New wraps an SDK client.
func New(gql *sdk.Client) *Client {
	return &Client{gql: gql}
}

// FromContext returns a Konviktion client for the SDK client carried by ctx.
func FromContext(ctx context.Context) (*Client, error) {
	gql, err := sdk.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return New(gql), nil
}

// Users returns every user.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var data struct {
		Users []models.User `json:"users"`
	}
	if err := c.gql.Execute(ctx, usersOperation, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return data.Users, nil
}
