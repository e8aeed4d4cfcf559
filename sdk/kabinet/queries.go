package kabinet

import (
	"context"
	"fmt"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
)

// ListReleases returns every release known to Kabinet.
func (c *Client) ListReleases(ctx context.Context) ([]models.ListRelease, error) {
	var data struct {
		Releases []models.ListRelease `json:"releases"`
	}
	if err := c.gql.Execute(ctx, listReleasesOperation, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	return data.Releases, nil
}

// GetRelease returns a release with its flavours.
func (c *Client) GetRelease(ctx context.Context, id models.ID) (*models.Release, error) {
	var data struct {
		Release models.Release `json:"release"`
	}
	if err := c.gql.Execute(ctx, getReleaseOperation, sdk.Variables{"id": id}, &data); err != nil {
		return nil, fmt.Errorf("failed to get release: %w", err)
	}
	return &data.Release, nil
}

// GetDeployment returns a deployment.
func (c *Client) GetDeployment(ctx context.Context, id models.ID) (*models.Deployment, error) {
	var data struct {
		Deployment models.Deployment `json:"deployment"`
	}
	if err := c.gql.Execute(ctx, getDeploymentOperation, sdk.Variables{"id": id}, &data); err != nil {
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}
	return &data.Deployment, nil
}

// ListDeployments returns every deployment.
func (c *Client) ListDeployments(ctx context.Context) ([]models.ListDeployment, error) {
	var data struct {
		Deployments []models.ListDeployment `json:"deployments"`
	}
	if err := c.gql.Execute(ctx, listDeploymentsOperation, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	return data.Deployments, nil
}

// ListPods returns every pod.
func (c *Client) ListPods(ctx context.Context) ([]models.ListPod, error) {
	var data struct {
		Pods []models.ListPod `json:"pods"`
	}
	if err := c.gql.Execute(ctx, listPodOperation, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}
	return data.Pods, nil
}

// GetPod returns a pod with its deployment, flavour and release.
func (c *Client) GetPod(ctx context.Context, id models.ID) (*models.Pod, error) {
	var data struct {
		Pod models.Pod `json:"pod"`
	}
	if err := c.gql.Execute(ctx, getPodOperation, sdk.Variables{"id": id}, &data); err != nil {
		return nil, fmt.Errorf("failed to get pod: %w", err)
	}
	return &data.Pod, nil
}

// ListDefinitions returns every definition.
func (c *Client) ListDefinitions(ctx context.Context) ([]models.ListDefinition, error) {
	var data struct {
		Definitions []models.ListDefinition `json:"definitions"`
	}
	if err := c.gql.Execute(ctx, listDefinitionsOperation, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	return data.Definitions, nil
}

// GetDefinition returns the definition with the given content hash.
// An empty hash is sent as null.
func (c *Client) GetDefinition(ctx context.Context, hash models.NodeHash) (*models.Definition, error) {
	vars := sdk.Variables{"hash": nil}
	if hash != "" {
		vars["hash"] = hash
	}

	var data struct {
		Definition models.Definition `json:"definition"`
	}
	if err := c.gql.Execute(ctx, getDefinitionOperation, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to get definition: %w", err)
	}
	return &data.Definition, nil
}

// SearchDefinitions returns at most ten value/label options matching search
// or restricted to values.
func (c *Client) SearchDefinitions(ctx context.Context, search *string, values []models.ID) ([]models.SearchOption, error) {
	vars := sdk.Variables{"search": search, "values": values}

	var data struct {
		Options []models.SearchOption `json:"options"`
	}
	if err := c.gql.Execute(ctx, searchDefinitionsOperation, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to search definitions: %w", err)
	}
	return data.Options, nil
}

// MatchFlavour picks the flavour implementing nodes that best fits environment.
func (c *Client) MatchFlavour(ctx context.Context, nodes []models.NodeHash, environment *models.EnvironmentInput) (*models.MatchedFlavour, error) {
	if environment != nil {
		if err := environment.Validate(); err != nil {
			return nil, fmt.Errorf("failed to match flavour: %w", err)
		}
	}

	vars := sdk.Variables{"nodes": nodes, "environment": environment}

	var data struct {
		MatchFlavour models.MatchedFlavour `json:"matchFlavour"`
	}
	if err := c.gql.Execute(ctx, matchFlavourOperation, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to match flavour: %w", err)
	}
	return &data.MatchFlavour, nil
}

// ListFlavours returns flavours narrowed by filters, sorted by order and
// paged by pagination. All three are optional.
func (c *Client) ListFlavours(ctx context.Context, filters *models.FlavourFilter, order *models.FlavourOrder, pagination *models.OffsetPaginationInput) ([]models.ListFlavour, error) {
	if order != nil {
		if err := order.Validate(); err != nil {
			return nil, fmt.Errorf("failed to list flavours: %w", err)
		}
	}
	if pagination != nil {
		if err := pagination.Validate(); err != nil {
			return nil, fmt.Errorf("failed to list flavours: %w", err)
		}
	}

	vars := sdk.Variables{"filters": filters, "order": order, "pagination": pagination}

	var data struct {
		Flavours []models.ListFlavour `json:"flavours"`
	}
	if err := c.gql.Execute(ctx, listFlavoursOperation, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to list flavours: %w", err)
	}
	return data.Flavours, nil
}

// ListBackends returns every declared backend.
func (c *Client) ListBackends(ctx context.Context) ([]models.Backend, error) {
	var data struct {
		Backends []models.Backend `json:"backends"`
	}
	if err := c.gql.Execute(ctx, listBackendsOperation, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to list backends: %w", err)
	}
	return data.Backends, nil
}

// GetBackend returns a backend.
func (c *Client) GetBackend(ctx context.Context, id models.ID) (*models.Backend, error) {
	var data struct {
		Backend models.Backend `json:"backend"`
	}
	if err := c.gql.Execute(ctx, getBackendOperation, sdk.Variables{"id": id}, &data); err != nil {
		return nil, fmt.Errorf("failed to get backend: %w", err)
	}
	return &data.Backend, nil
}

// ListResources returns the compute resources offered by all backends.
func (c *Client) ListResources(ctx context.Context) ([]models.Resource, error) {
	var data struct {
		Resources []models.Resource `json:"resources"`
	}
	if err := c.gql.Execute(ctx, listResourcesOperation, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return data.Resources, nil
}
