package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk/kabinet"
)

var flavoursCmd = &cobra.Command{
	Use:     "flavours",
	Aliases: []string{"flavour", "flavors"},
	Short:   "List and match release flavours",
}

var flavourListFlags struct {
	search        string
	ids           []string
	hasDefinition []string
	order         string
	limit         int
	offset        int
}

var flavoursListCmd = &cobra.Command{
	Use:   "list",
	Short: "List flavours",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter *models.FlavourFilter
		if flavourListFlags.search != "" || len(flavourListFlags.ids) > 0 || len(flavourListFlags.hasDefinition) > 0 {
			filter = &models.FlavourFilter{
				Search:         optional(flavourListFlags.search),
				IDs:            flavourListFlags.ids,
				HasDefinitions: flavourListFlags.hasDefinition,
			}
		}

		var order *models.FlavourOrder
		if flavourListFlags.order != "" {
			order = &models.FlavourOrder{ReleasedAt: models.Ordering(strings.ToUpper(flavourListFlags.order))}
		}

		var page *models.OffsetPaginationInput
		if flavourListFlags.limit > 0 || flavourListFlags.offset > 0 {
			page = &models.OffsetPaginationInput{Limit: flavourListFlags.limit, Offset: flavourListFlags.offset}
		}

		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			list, err := c.ListFlavours(ctx, filter, order, page)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), list, func() *table {
				t := &table{header: []string{"ID", "NAME"}}
				for _, f := range list {
					t.add(f.ID, f.Name)
				}
				return t
			})
		})
	},
}

var flavourMatchFlags struct {
	containerType string
	features      []string
	cpuFrequency  int
	cpuMemory     int
}

var flavoursMatchCmd = &cobra.Command{
	Use:   "match <node-hash>...",
	Short: "Pick the flavour that implements the nodes and fits this environment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := environmentFromFlags()
		if err != nil {
			return err
		}

		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			match, err := c.MatchFlavour(ctx, args, env)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), match, func() *table {
				t := &table{header: []string{"ID", "IMAGE"}}
				t.add(match.ID, match.Image)
				return t
			})
		})
	},
}

// environmentFromFlags builds the match environment. Features are given as
// kind or kind:cpus.
func environmentFromFlags() (*models.EnvironmentInput, error) {
	env := &models.EnvironmentInput{
		ContainerType: models.ContainerType(strings.ToUpper(flavourMatchFlags.containerType)),
	}
	for _, f := range flavourMatchFlags.features {
		kind, cpus, _ := strings.Cut(f, ":")
		env.Features = append(env.Features, models.DeviceFeature{Kind: kind, CPUCount: cpus})
	}
	if flavourMatchFlags.cpuFrequency != 0 || flavourMatchFlags.cpuMemory != 0 {
		env.CPU = &models.CPUSelectorInput{
			Frequency: flavourMatchFlags.cpuFrequency,
			Memory:    flavourMatchFlags.cpuMemory,
		}
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	return env, nil
}

func init() {
	rootCmd.AddCommand(flavoursCmd)
	flavoursCmd.AddCommand(flavoursListCmd, flavoursMatchCmd)

	lf := flavoursListCmd.Flags()
	lf.StringVar(&flavourListFlags.search, "search", "", "Match flavour names")
	lf.StringSliceVar(&flavourListFlags.ids, "id", nil, "Restrict to flavour IDs")
	lf.StringSliceVar(&flavourListFlags.hasDefinition, "has-definition", nil, "Keep flavours implementing these definitions")
	lf.StringVar(&flavourListFlags.order, "order", "", "Order by release date (asc, desc, ...)")
	lf.IntVar(&flavourListFlags.limit, "limit", 0, "Maximum number of flavours")
	lf.IntVar(&flavourListFlags.offset, "offset", 0, "Number of flavours to skip")

	mf := flavoursMatchCmd.Flags()
	mf.StringVar(&flavourMatchFlags.containerType, "container-type", string(models.ContainerTypeDocker), "Container runtime (docker, apptainer)")
	mf.StringSliceVar(&flavourMatchFlags.features, "feature", nil, "Device feature as kind[:cpus], repeatable")
	mf.IntVar(&flavourMatchFlags.cpuFrequency, "cpu-frequency", 0, "Minimum CPU frequency")
	mf.IntVar(&flavourMatchFlags.cpuMemory, "cpu-memory", 0, "Minimum memory")
}
