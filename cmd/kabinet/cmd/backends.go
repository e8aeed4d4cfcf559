package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"kabinet.io/kabinet/sdk/kabinet"
)

var backendsCmd = &cobra.Command{
	Use:     "backends",
	Aliases: []string{"backend"},
	Short:   "Inspect and declare backends",
}

var backendsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			list, err := c.ListBackends(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), list, func() *table {
				t := &table{header: []string{"ID", "NAME", "KIND", "INSTANCE"}}
				for _, b := range list {
					t.add(b.ID, b.Name, b.Kind, b.InstanceID)
				}
				return t
			})
		})
	},
}

var backendsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			b, err := c.GetBackend(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), b, func() *table {
				t := &table{header: []string{"ID", "NAME", "KIND", "INSTANCE"}}
				t.add(b.ID, b.Name, b.Kind, b.InstanceID)
				return t
			})
		})
	},
}

var backendDeclareFlags struct {
	instanceID string
	kind       string
}

var backendsDeclareCmd = &cobra.Command{
	Use:   "declare <name>",
	Short: "Declare this host as a backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			b, err := c.DeclareBackend(ctx, backendDeclareFlags.instanceID, backendDeclareFlags.kind, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), b, func() *table {
				t := &table{header: []string{"ID", "NAME", "KIND", "INSTANCE"}}
				t.add(b.ID, b.Name, b.Kind, b.InstanceID)
				return t
			})
		})
	},
}

var resourcesCmd = &cobra.Command{
	Use:     "resources",
	Aliases: []string{"resource"},
	Short:   "List compute resources offered by backends",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			list, err := c.ListResources(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), list, func() *table {
				t := &table{header: []string{"ID", "NAME", "RESOURCE ID", "BACKEND"}}
				for _, r := range list {
					t.add(r.ID, r.Name, r.ResourceID, r.Backend.Name)
				}
				return t
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd, resourcesCmd)
	backendsCmd.AddCommand(backendsListCmd, backendsGetCmd, backendsDeclareCmd)

	f := backendsDeclareCmd.Flags()
	f.StringVar(&backendDeclareFlags.instanceID, "instance", "default", "Instance ID of the backend")
	f.StringVar(&backendDeclareFlags.kind, "kind", "docker", "Backend kind")
}
