package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kabinet.io/kabinet/sdk/kabinet"
)

var deploymentsCmd = &cobra.Command{
	Use:     "deployments",
	Aliases: []string{"deployment", "deploy"},
	Short:   "Inspect and create deployments",
}

var deploymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			list, err := c.ListDeployments(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), list, func() *table {
				t := &table{header: []string{"ID", "LOCAL ID"}}
				for _, d := range list {
					t.add(d.ID, d.LocalID)
				}
				return t
			})
		})
	},
}

var deploymentsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a deployment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			d, err := c.GetDeployment(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), d, func() *table {
				t := &table{header: []string{"ID", "LOCAL ID"}}
				t.add(d.ID, d.LocalID)
				return t
			})
		})
	},
}

var deploymentCreateFlags struct {
	instanceID   string
	localID      string
	pulledNow    bool
	secretParams string
}

var deploymentsCreateCmd = &cobra.Command{
	Use:   "create <flavour>",
	Short: "Record a deployment of a flavour on a backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var lastPulled *time.Time
		if deploymentCreateFlags.pulledNow {
			now := time.Now().UTC()
			lastPulled = &now
		}

		var secretParams interface{}
		if deploymentCreateFlags.secretParams != "" {
			if err := json.Unmarshal([]byte(deploymentCreateFlags.secretParams), &secretParams); err != nil {
				return fmt.Errorf("--secret-params must be JSON: %w", err)
			}
		}

		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			d, err := c.CreateDeployment(ctx, args[0], deploymentCreateFlags.instanceID,
				deploymentCreateFlags.localID, lastPulled, secretParams)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), d, func() *table {
				t := &table{header: []string{"ID", "LOCAL ID"}}
				t.add(d.ID, d.LocalID)
				return t
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(deploymentsCmd)
	deploymentsCmd.AddCommand(deploymentsListCmd, deploymentsGetCmd, deploymentsCreateCmd)

	f := deploymentsCreateCmd.Flags()
	f.StringVar(&deploymentCreateFlags.instanceID, "instance", "default", "Instance ID of the deploying backend")
	f.StringVar(&deploymentCreateFlags.localID, "local-id", "", "Backend-local deployment ID")
	f.BoolVar(&deploymentCreateFlags.pulledNow, "pulled", false, "Record the image as pulled now")
	f.StringVar(&deploymentCreateFlags.secretParams, "secret-params", "", "Backend specific parameters as JSON")
	deploymentsCreateCmd.MarkFlagRequired("local-id")
}
