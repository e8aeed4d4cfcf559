package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"kabinet.io/kabinet/models"
)

//go:embed testdata/dev.yaml
var defaultFixture []byte

// Default returns the fixture the development server uses when none is given.
func Default() (*Fixture, error) {
	return Load(bytes.NewReader(defaultFixture))
}

// LoadFile reads and validates the fixture at path.
func LoadFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()

	fixture, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fixture, nil
}

// Load decodes and validates a fixture.
//
// Unknown keys are rejected so typos in a fixture surface at startup.
func Load(r io.Reader) (*Fixture, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFixtureSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	if len(data) > MaxFixtureSize {
		return nil, ErrFixtureTooLarge
	}

	var fixture Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fixture); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if err := fixture.Validate(); err != nil {
		return nil, err
	}
	return &fixture, nil
}

// Validate checks the fixture for consistency.
//
// This function validates:
// - Every entity carries an id and ids are unique per kind
// - Flavour images are valid container references
// - Flavours only reference declared definition hashes
// - Resources only reference declared backends
//
// All problems are reported at once, joined, and wrapped in ErrInvalidFixture.
func (f *Fixture) Validate() error {
	var problems []error
	report := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	ids := newIDSet(report)

	backends := make(map[string]bool, len(f.Backends))
	for i, b := range f.Backends {
		ids.check("backends", i, b.ID)
		if strings.TrimSpace(b.Name) == "" {
			report("backends[%d]: name is required", i)
		}
		backends[b.ID] = true
	}

	for i, r := range f.Resources {
		ids.check("resources", i, r.ID)
		if r.Backend == "" || !backends[r.Backend] {
			report("resources[%d]: unknown backend %q", i, r.Backend)
		}
	}

	hashes := make(map[string]bool, len(f.Definitions))
	for i, d := range f.Definitions {
		ids.check("definitions", i, d.ID)
		if d.Hash == "" {
			report("definitions[%d]: hash is required", i)
		} else if hashes[d.Hash] {
			report("definitions[%d]: duplicate hash %q", i, d.Hash)
		}
		hashes[d.Hash] = true
	}

	for i, r := range f.Releases {
		ids.check("releases", i, r.ID)
		if r.App == "" || r.Version == "" {
			report("releases[%d]: app and version are required", i)
		}
		for j, fl := range r.Flavours {
			ids.check("flavours", j, fl.ID)
			if _, err := models.ParseImage(fl.Image); err != nil {
				report("releases[%d].flavours[%d]: %v", i, j, err)
			}
			if fl.ContainerType != "" && !models.ContainerType(fl.ContainerType).Valid() {
				report("releases[%d].flavours[%d]: unknown container type %q", i, j, fl.ContainerType)
			}
			for _, h := range fl.Definitions {
				if !hashes[h] {
					report("releases[%d].flavours[%d]: unknown definition hash %q", i, j, h)
				}
			}
		}
	}

	for i, g := range f.GithubRepos {
		ids.check("githubRepos", i, g.ID)
		if g.User == "" || g.Repo == "" {
			report("githubRepos[%d]: user and repo are required", i)
		}
	}

	for i, u := range f.Users {
		ids.check("users", i, u.ID)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidFixture, errors.Join(problems...))
}

type idSet struct {
	seen   map[string]map[string]bool
	report func(string, ...interface{})
}

func newIDSet(report func(string, ...interface{})) *idSet {
	return &idSet{seen: make(map[string]map[string]bool), report: report}
}

func (s *idSet) check(kind string, index int, id string) {
	if strings.TrimSpace(id) == "" {
		s.report("%s[%d]: id is required", kind, index)
		return
	}
	if s.seen[kind] == nil {
		s.seen[kind] = make(map[string]bool)
	}
	if s.seen[kind][id] {
		s.report("%s[%d]: duplicate id %q", kind, index, id)
	}
	s.seen[kind][id] = true
}
