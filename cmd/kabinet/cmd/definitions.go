package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"kabinet.io/kabinet/sdk/kabinet"
)

var definitionsCmd = &cobra.Command{
	Use:     "definitions",
	Aliases: []string{"definition", "defs"},
	Short:   "Inspect task definitions",
}

var definitionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List definitions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			list, err := c.ListDefinitions(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), list, func() *table {
				t := &table{header: []string{"ID", "NAME", "HASH", "DESCRIPTION"}}
				for _, d := range list {
					t.add(d.ID, d.Name, d.Hash, deref(d.Description))
				}
				return t
			})
		})
	},
}

var definitionsGetCmd = &cobra.Command{
	Use:   "get <hash>",
	Short: "Show the definition with a content hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			d, err := c.GetDefinition(ctx, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), d, func() *table {
				t := &table{header: []string{"ID", "NAME"}}
				t.add(d.ID, d.Name)
				return t
			})
		})
	},
}

var definitionsSearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search definitions by name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var search *string
		if len(args) == 1 {
			search = &args[0]
		}
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			options, err := c.SearchDefinitions(ctx, search, nil)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), options, func() *table {
				t := &table{header: []string{"VALUE", "LABEL"}}
				for _, o := range options {
					t.add(o.Value, o.Label)
				}
				return t
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(definitionsCmd)
	definitionsCmd.AddCommand(definitionsListCmd, definitionsGetCmd, definitionsSearchCmd)
}
