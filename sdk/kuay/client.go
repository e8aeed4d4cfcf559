// Package kuay provides typed access to the Kuay image build service.
package kuay

import (
	"context"
	"fmt"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
	"kabinet.io/kabinet/sdk/structures"
)

// GithubRepoStructure is the structure identifier of Kuay repositories.
const GithubRepoStructure = "@port/githubrepo"

// Client exposes one method per Kuay GraphQL operation.
type Client struct {
	gql *sdk.Client
}

// New wraps an SDK client.
func New(gql *sdk.Client) *Client {
	return &Client{gql: gql}
}

// FromContext returns a Kuay client for the SDK client carried by ctx.
func FromContext(ctx context.Context) (*Client, error) {
	gql, err := sdk.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return New(gql), nil
}

// CreateGithubRepo registers a repository. A nil result means the server
// declined to create it.
func (c *Client) CreateGithubRepo(ctx context.Context, branch, user, repo string) (*models.GithubRepoFragment, error) {
	vars := sdk.Variables{"branch": branch, "user": user, "repo": repo}

	var data struct {
		CreateGithubRepo *models.GithubRepoFragment `json:"createGithubRepo"`
	}
	if err := c.gql.Execute(ctx, createGithubRepoOperation, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to create github repo: %w", err)
	}
	return data.CreateGithubRepo, nil
}

// GetGithubRepo returns a repository, or nil when it does not exist.
func (c *Client) GetGithubRepo(ctx context.Context, id models.ID) (*models.GithubRepoFragment, error) {
	var data struct {
		GithubRepo *models.GithubRepoFragment `json:"githubRepo"`
	}
	if err := c.gql.Execute(ctx, getGithubRepoOperation, sdk.Variables{"id": id}, &data); err != nil {
		return nil, fmt.Errorf("failed to get github repo: %w", err)
	}
	return data.GithubRepo, nil
}

// SearchGithubRepos returns value/label options for repositories whose name
// matches search. Null entries in the result are skipped.
func (c *Client) SearchGithubRepos(ctx context.Context, search string) ([]models.SearchOption, error) {
	var data struct {
		GithubRepos []*models.SearchOption `json:"githubRepos"`
	}
	if err := c.gql.Execute(ctx, searchGithubReposOperation, sdk.Variables{"search": search}, &data); err != nil {
		return nil, fmt.Errorf("failed to search github repos: %w", err)
	}

	options := make([]models.SearchOption, 0, len(data.GithubRepos))
	for _, o := range data.GithubRepos {
		if o != nil {
			options = append(options, *o)
		}
	}
	return options, nil
}

// RegisterStructures registers Kuay repositories with a search widget.
func RegisterStructures(reg *structures.Registry, c *Client) error {
	return reg.Register(structures.Structure{
		Identifier: GithubRepoStructure,
		Scope:      structures.ScopeLocal,
		Expand: structures.ExpandWith(func(ctx context.Context, id string) (*models.GithubRepoFragment, error) {
			return c.GetGithubRepo(ctx, id)
		}),
		Shrink: structures.ShrinkByID(func(r models.GithubRepoFragment) string { return r.ID }),
		Widget: structures.SearchWidget(searchGithubReposOperation.Document),
	})
}
