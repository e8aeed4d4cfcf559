package models

import "fmt"

// GithubRepo is a source repository that flavours are built from.
type GithubRepo struct {
	// ID is the server-assigned identifier.
	ID ID `json:"id"`

	// Branch is the tracked branch.
	Branch string `json:"branch"`

	// User is the repository owner.
	User string `json:"user"`

	// Repo is the repository name.
	Repo string `json:"repo"`

	// Flavours are the flavours built from this repository.
	Flavours []GithubRepoFlavour `json:"flavours"`
}

// Slug returns "user/repo@branch".
func (g GithubRepo) Slug() string {
	return fmt.Sprintf("%s/%s@%s", g.User, g.Repo, g.Branch)
}

// GithubRepoFlavour lists the definitions a repository flavour implements.
type GithubRepoFlavour struct {
	Definitions []GithubRepoDefinition `json:"definitions"`
}

// GithubRepoDefinition is a definition reference inside a repository flavour.
type GithubRepoDefinition struct {
	ID   ID       `json:"id"`
	Hash NodeHash `json:"hash"`
}

// GithubRepoFragment is the repository shape the Kuay service returns.
type GithubRepoFragment struct {
	User   string `json:"user"`
	Branch string `json:"branch"`
	Repo   string `json:"repo"`
	ID     ID     `json:"id"`
}
