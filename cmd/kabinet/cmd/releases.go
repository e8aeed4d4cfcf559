package cmd

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kabinet.io/kabinet/sdk/kabinet"
)

var releasesCmd = &cobra.Command{
	Use:     "releases",
	Aliases: []string{"release"},
	Short:   "Inspect releases",
}

var releasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List releases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			list, err := c.ListReleases(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), list, func() *table {
				t := &table{header: []string{"ID", "APP", "VERSION", "INSTALLED", "FLAVOURS"}}
				for _, r := range list {
					t.add(r.ID, r.App.Identifier, r.Version, strconv.FormatBool(r.Installed), strings.Join(r.FlavourNames(), ","))
				}
				return t
			})
		})
	},
}

var releasesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a release and its flavours",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			r, err := c.GetRelease(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), r, func() *table {
				t := &table{header: []string{"FLAVOUR", "NAME", "IMAGE"}}
				for _, f := range r.Flavours {
					t.add(f.ID, f.Name, f.Image)
				}
				return t
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(releasesCmd)
	releasesCmd.AddCommand(releasesListCmd, releasesGetCmd)
}
