// Package seed loads the YAML fixtures the Kabinet development server starts with.
//
// A fixture declares the state a fresh server exposes before any backend talks
// to it:
// - backends and the resources they offer
// - releases with their flavours (container images)
// - definitions implemented by flavours
// - github repositories and users
package seed

import (
	"errors"
	"time"
)

const (
	// MaxFixtureSize is the maximum accepted fixture size (1 MiB).
	MaxFixtureSize = 1024 * 1024
)

// Common fixture errors.
var (
	// ErrFixtureTooLarge indicates the fixture exceeds the size limit.
	ErrFixtureTooLarge = errors.New("fixture exceeds 1 MiB size limit")

	// ErrInvalidYAML indicates the fixture is not valid YAML.
	ErrInvalidYAML = errors.New("fixture contains invalid YAML")

	// ErrInvalidFixture indicates the fixture is well formed but inconsistent.
	ErrInvalidFixture = errors.New("invalid fixture")
)

// Fixture is the decoded content of a seed file.
type Fixture struct {
	Backends    []Backend    `yaml:"backends"`
	Resources   []Resource   `yaml:"resources"`
	Releases    []Release    `yaml:"releases"`
	Definitions []Definition `yaml:"definitions"`
	GithubRepos []GithubRepo `yaml:"githubRepos"`
	Users       []User       `yaml:"users"`
}

// Backend is a pre-declared compute backend.
type Backend struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	InstanceID string `yaml:"instanceId"`
}

// Resource is a resource offered by a seeded backend.
type Resource struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	ResourceID string `yaml:"resourceId"`
	Backend    string `yaml:"backend"`
}

// Release is an installable app version.
type Release struct {
	ID          string    `yaml:"id"`
	App         string    `yaml:"app"`
	Version     string    `yaml:"version"`
	Installed   bool      `yaml:"installed"`
	Scopes      []string  `yaml:"scopes"`
	Colour      string    `yaml:"colour"`
	Description string    `yaml:"description"`
	ReleasedAt  time.Time `yaml:"releasedAt"`
	Flavours    []Flavour `yaml:"flavours"`
}

// Flavour is a container image variant of a release.
type Flavour struct {
	ID            string                 `yaml:"id"`
	Name          string                 `yaml:"name"`
	Image         string                 `yaml:"image"`
	ContainerType string                 `yaml:"containerType"`
	Manifest      map[string]interface{} `yaml:"manifest"`
	Requirements  map[string]interface{} `yaml:"requirements"`

	// Definitions are the hashes of the definitions this flavour implements.
	Definitions []string `yaml:"definitions"`
}

// Definition is a task definition implemented by flavours.
type Definition struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Hash        string `yaml:"hash"`
	Description string `yaml:"description"`
}

// GithubRepo is a source repository flavours are built from.
type GithubRepo struct {
	ID     string `yaml:"id"`
	User   string `yaml:"user"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`
}

// User is a Konviktion user.
type User struct {
	ID string `yaml:"id"`
}

// Counts summarizes a fixture for logging.
func (f *Fixture) Counts() map[string]int {
	flavours := 0
	for _, r := range f.Releases {
		flavours += len(r.Flavours)
	}
	return map[string]int{
		"backends":     len(f.Backends),
		"resources":    len(f.Resources),
		"releases":     len(f.Releases),
		"flavours":     flavours,
		"definitions":  len(f.Definitions),
		"github_repos": len(f.GithubRepos),
		"users":        len(f.Users),
	}
}
