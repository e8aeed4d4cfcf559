// Package fixtures builds seed fixtures for end-to-end tests.
package fixtures

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"kabinet.io/kabinet/pkg/seed"
)

// Definition hashes used by Minimal.
const (
	HashProjection = "aa00000000000000000000000000000a"
	HashBlur       = "bb00000000000000000000000000000b"
)

// Minimal returns a fixture with one backend, two definitions and a release
// whose flavours differ in container type.
func Minimal() *seed.Fixture {
	return &seed.Fixture{
		Backends: []seed.Backend{
			{ID: "backend-a", Name: "Backend A", Kind: "docker", InstanceID: "instance-a"},
		},
		Resources: []seed.Resource{
			{ID: "resource-a", Name: "CPU pool", ResourceID: "cpu-0", Backend: "backend-a"},
		},
		Definitions: []seed.Definition{
			{ID: "def-projection", Name: "Projection", Hash: HashProjection},
			{ID: "def-blur", Name: "Blur", Hash: HashBlur, Description: "Blurs an image"},
		},
		Releases: []seed.Release{
			{
				ID:          "release-a",
				App:         "kabinet.io/e2e",
				Version:     "1.0.0",
				Installed:   true,
				Scopes:      []string{"read"},
				Colour:      "#000000",
				Description: "End-to-end release",
				ReleasedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				Flavours: []seed.Flavour{
					{
						ID:            "flavour-docker",
						Name:          "docker",
						Image:         "example/e2e:1.0.0",
						ContainerType: "DOCKER",
						Manifest:      map[string]interface{}{"identifier": "kabinet.io/e2e"},
						Definitions:   []string{HashProjection, HashBlur},
					},
					{
						ID:            "flavour-apptainer",
						Name:          "apptainer",
						Image:         "example/e2e:1.0.0-sif",
						ContainerType: "APPTAINER",
						Manifest:      map[string]interface{}{"identifier": "kabinet.io/e2e"},
						Definitions:   []string{HashProjection},
					},
				},
			},
		},
		GithubRepos: []seed.GithubRepo{
			{ID: "repo-a", User: "example", Repo: "e2e", Branch: "main"},
		},
		Users: []seed.User{{ID: "seeded-user"}},
	}
}

// Write stores f as YAML in a temporary directory and returns its path.
func Write(t *testing.T, f *seed.Fixture) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	Rewrite(t, path, f)
	return path
}

// Rewrite replaces the fixture at path atomically, so watchers never see a
// partial file.
func Rewrite(t *testing.T, path string, f *seed.Fixture) {
	t.Helper()

	raw, err := yaml.Marshal(f)
	if err != nil {
		t.Fatalf("failed to marshal fixture: %v", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("failed to replace fixture: %v", err)
	}
}
