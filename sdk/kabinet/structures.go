package kabinet

import (
	"context"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk/structures"
)

// Structure identifiers registered by RegisterStructures.
const (
	PodStructure        = "@kabinet/pod"
	DeploymentStructure = "@kabinet/deployment"
)

// RegisterStructures registers pods and deployments as global structures
// expanded through c.
func RegisterStructures(reg *structures.Registry, c *Client) error {
	err := reg.Register(structures.Structure{
		Identifier: PodStructure,
		Scope:      structures.ScopeGlobal,
		Expand: structures.ExpandWith(func(ctx context.Context, id string) (*models.Pod, error) {
			return c.GetPod(ctx, id)
		}),
		Shrink: structures.ShrinkByID(func(p models.Pod) string { return p.ID }),
	})
	if err != nil {
		return err
	}

	return reg.Register(structures.Structure{
		Identifier: DeploymentStructure,
		Scope:      structures.ScopeGlobal,
		Expand: structures.ExpandWith(func(ctx context.Context, id string) (*models.Deployment, error) {
			return c.GetDeployment(ctx, id)
		}),
		Shrink: structures.ShrinkByID(func(d models.Deployment) string { return d.ID }),
	})
}
