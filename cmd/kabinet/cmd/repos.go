package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk/kabinet"
	"kabinet.io/kabinet/sdk/konviktion"
	"kabinet.io/kabinet/sdk/kuay"
)

var reposCmd = &cobra.Command{
	Use:     "repos",
	Aliases: []string{"repo"},
	Short:   "Manage GitHub repositories flavours are built from",
}

var repoCreateFlags struct {
	branch string
	name   string
	kuay   bool
}

// parseSlug splits "user/repo".
func parseSlug(slug string) (user, repo string, err error) {
	user, repo, ok := strings.Cut(slug, "/")
	if !ok || user == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("repository must be given as user/repo, got %q", slug)
	}
	return user, repo, nil
}

var reposCreateCmd = &cobra.Command{
	Use:   "create <user/repo>",
	Short: "Register a repository",
	Long: `Register a repository with Kabinet, or with the Kuay build service
when --kuay is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, repo, err := parseSlug(args[0])
		if err != nil {
			return err
		}

		if repoCreateFlags.kuay {
			gql, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer gql.Close()

			r, err := kuay.New(gql).CreateGithubRepo(cmd.Context(), repoCreateFlags.branch, user, repo)
			if err != nil {
				return err
			}
			if r == nil {
				return fmt.Errorf("kuay declined to create %s", args[0])
			}
			return renderFragment(cmd, r)
		}

		name := repoCreateFlags.name
		if name == "" {
			name = repo
		}
		return withKabinet(cmd, func(ctx context.Context, c *kabinet.Client) error {
			r, err := c.CreateGithubRepo(ctx, user, repo, repoCreateFlags.branch, name)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), r, func() *table {
				t := &table{header: []string{"ID", "REPOSITORY"}}
				t.add(r.ID, r.Slug())
				return t
			})
		})
	},
}

var reposGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a repository known to Kuay",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gql, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer gql.Close()

		r, err := kuay.New(gql).GetGithubRepo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("repository %s not found", args[0])
		}
		return renderFragment(cmd, r)
	},
}

var reposSearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search repositories known to Kuay",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var search string
		if len(args) == 1 {
			search = args[0]
		}

		gql, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer gql.Close()

		options, err := kuay.New(gql).SearchGithubRepos(cmd.Context(), search)
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
	},
}

func renderFragment(cmd *cobra.Command, r *models.GithubRepoFragment) error {
	return render(cmd.OutOrStdout(), r, func() *table {
		t := &table{header: []string{"ID", "USER", "REPO", "BRANCH"}}
		t.add(r.ID, r.User, r.Repo, r.Branch)
		return t
	})
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users known to Konviktion",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gql, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer gql.Close()

		users, err := konviktion.New(gql).Users(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), users, func() *table {
			t := &table{header: []string{"ID"}}
			for _, u := range users {
				t.add(u.ID)
			}
			return t
		})
	},
}

func init() {
	rootCmd.AddCommand(reposCmd, usersCmd)
	reposCmd.AddCommand(reposCreateCmd, reposGetCmd, reposSearchCmd)

	f := reposCreateCmd.Flags()
	f.StringVar(&repoCreateFlags.branch, "branch", "main", "Branch to track")
	f.StringVar(&repoCreateFlags.name, "name", "", "Display name, defaults to the repository name")
	f.BoolVar(&repoCreateFlags.kuay, "kuay", false, "Register with the Kuay build service")
}
