// Package kabinet provides typed access to the Kabinet orchestration service:
// backends, deployments, pods, releases, flavours and definitions.
package kabinet

import (
	"context"
	"fmt"
	"time"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
)

// Client exposes one method per Kabinet GraphQL operation.
type Client struct {
	gql *sdk.Client
}

// New wraps an SDK client.
func New(gql *sdk.Client) *Client {
	return &Client{gql: gql}
}

// NewClient creates a Kabinet client from a transport configuration.
func NewClient(config sdk.ClientConfig) (*Client, error) {
	gql, err := sdk.NewClient(config)
	if err != nil {
		return nil, err
	}
	return New(gql), nil
}

// FromContext returns a Kabinet client for the SDK client carried by ctx.
func FromContext(ctx context.Context) (*Client, error) {
	gql, err := sdk.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return New(gql), nil
}

// GraphQL returns the underlying SDK client.
func (c *Client) GraphQL() *sdk.Client {
	return c.gql
}

// Close releases the connections of the underlying SDK client.
func (c *Client) Close() error {
	return c.gql.Close()
}

// Operations returns every operation this package sends.
func Operations() []sdk.Operation {
	return []sdk.Operation{
		createDeploymentOperation,
		createPodOperation,
		updatePodOperation,
		dumpLogsOperation,
		createGithubRepoOperation,
		declareBackendOperation,
		listReleasesOperation,
		getReleaseOperation,
		getDeploymentOperation,
		listDeploymentsOperation,
		listPodOperation,
		getPodOperation,
		listDefinitionsOperation,
		getDefinitionOperation,
		searchDefinitionsOperation,
		matchFlavourOperation,
		listFlavoursOperation,
		listBackendsOperation,
		getBackendOperation,
		listResourcesOperation,
		watchPodsOperation,
	}
}

// ============================================================================
// Mutations
// ============================================================================

// CreateDeployment registers a deployment of flavour on the backend
// identified by instanceID.
//
// Parameters:
//   - flavour: ID of the flavour being deployed
//   - instanceID: the instance ID of the declaring backend
//   - localID: the backend-local identifier of the deployment
//   - lastPulled: when the image was last pulled (optional)
//   - secretParams: backend specific parameters (optional)
func (c *Client) CreateDeployment(ctx context.Context, flavour models.ID, instanceID string, localID models.ID, lastPulled *time.Time, secretParams interface{}) (*models.Deployment, error) {
	vars := sdk.Variables{
		"flavour":      flavour,
		"instanceId":   instanceID,
		"localId":      localID,
		"lastPulled":   lastPulled,
		"secretParams": secretParams,
	}

	var data struct {
		CreateDeployment models.Deployment `json:"createDeployment"`
	}
	if err := c.gql.Execute(ctx, createDeploymentOperation, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to create deployment: %w", err)
	}
	return &data.CreateDeployment, nil
}

// CreatePod registers a pod running deployment on the backend identified by instanceID.
func (c *Client) CreatePod(ctx context.Context, deployment models.ID, instanceID string, localID models.ID) (*models.Pod, error) {
	vars := sdk.Variables{
		"deployment": deployment,
		"instanceId": instanceID,
		"localId":    localID,
	}

	var data struct {
		CreatePod models.Pod `json:"createPod"`
	}
	if err := c.gql.Execute(ctx, createPodOperation, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to create pod: %w", err)
	}
	return &data.CreatePod, nil
}

// UpdatePod reports a new status for a pod. The pod is identified either by
// its server ID or by its backend-local ID; at least one must be given.
func (c *Client) UpdatePod(ctx context.Context, status models.PodStatus, instanceID string, pod *models.ID, localID *models.ID) (*models.Pod, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("failed to update pod: %w: unknown status %q", models.ErrInvalidRequest, status)
	}
	if pod == nil && localID == nil {
		return nil, fmt.Errorf("failed to update pod: %w: pod or localId is required", models.ErrInvalidRequest)
	}

	vars := sdk.Variables{
		"status":     status,
		"instanceId": instanceID,
		"pod":        pod,
		"localId":    localID,
	}

	var data struct {
		UpdatePod models.Pod `json:"updatePod"`
	}
	if err := c.gql.Execute(ctx, updatePodOperation, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to update pod: %w", err)
	}
	return &data.UpdatePod, nil
}

// DumpLogs uploads the log output of a pod.
func (c *Client) DumpLogs(ctx context.Context, pod models.ID, logs string) (*models.LogDump, error) {
	vars := sdk.Variables{"pod": pod, "logs": logs}

	var data struct {
		DumpLogs models.LogDump `json:"dumpLogs"`
	}
	if err := c.gql.Execute(ctx, dumpLogsOperation, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to dump logs: %w", err)
	}
	return &data.DumpLogs, nil
}

// CreateGithubRepo registers a source repository whose releases Kabinet tracks.
func (c *Client) CreateGithubRepo(ctx context.Context, user, repo, branch, name string) (*models.GithubRepo, error) {
	vars := sdk.Variables{
		"user":   user,
		"repo":   repo,
		"branch": branch,
		"name":   name,
	}

	var data struct {
		CreateGithubRepo models.GithubRepo `json:"createGithubRepo"`
	}
	if err := c.gql.Execute(ctx, createGithubRepoOperation, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to create github repo: %w", err)
	}
	return &data.CreateGithubRepo, nil
}

// DeclareBackend announces a backend to Kabinet. Declaring the same
// instanceID again returns the existing backend.
func (c *Client) DeclareBackend(ctx context.Context, instanceID, kind, name string) (*models.Backend, error) {
	vars := sdk.Variables{
		"instanceId": instanceID,
		"kind":       kind,
		"name":       name,
	}

	var data struct {
		DeclareBackend models.Backend `json:"declareBackend"`
	}
	if err := c.gql.Execute(ctx, declareBackendOperation, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to declare backend: %w", err)
	}
	return &data.DeclareBackend, nil
}
