package seed

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validFixture = `
backends:
  - id: b1
    name: Local
    kind: docker
definitions:
  - id: d1
    name: Blur
    hash: h1
releases:
  - id: r1
    app: test.app
    version: 1.0.0
    flavours:
      - id: f1
        name: vanilla
        image: jhnnsrs/test:latest
        containerType: DOCKER
        definitions: [h1]
resources:
  - id: res1
    name: GPU
    resourceId: gpu-0
    backend: b1
users:
  - id: "1"
`

func TestLoad_Valid(t *testing.T) {
	fixture, err := Load(strings.NewReader(validFixture))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	counts := fixture.Counts()
	want := map[string]int{"backends": 1, "releases": 1, "flavours": 1, "definitions": 1, "resources": 1, "users": 1}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("Counts()[%s] = %d, want %d", k, counts[k], v)
		}
	}
	if got := fixture.Releases[0].Flavours[0].Definitions; len(got) != 1 || got[0] != "h1" {
		t.Errorf("flavour definitions = %v", got)
	}
}

func TestLoad_Empty(t *testing.T) {
	fixture, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Load(empty) error = %v", err)
	}
	if len(fixture.Backends) != 0 {
		t.Errorf("expected no backends, got %d", len(fixture.Backends))
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		contains string
	}{
		{
			name:    "invalid yaml",
			input:   "backends: [",
			wantErr: ErrInvalidYAML,
		},
		{
			name:    "unknown key",
			input:   "backend:\n  - id: b1\n",
			wantErr: ErrInvalidYAML,
		},
		{
			name:     "missing id",
			input:    "users:\n  - id: ''\n",
			wantErr:  ErrInvalidFixture,
			contains: "users[0]: id is required",
		},
		{
			name:     "duplicate id",
			input:    "users:\n  - id: u\n  - id: u\n",
			wantErr:  ErrInvalidFixture,
			contains: `users[1]: duplicate id "u"`,
		},
		{
			name: "bad image",
			input: `releases:
  - id: r1
    app: a
    version: "1"
    flavours:
      - id: f1
        image: "NOT A/valid::image"
`,
			wantErr:  ErrInvalidFixture,
			contains: "releases[0].flavours[0]",
		},
		{
			name: "unknown definition hash",
			input: `releases:
  - id: r1
    app: a
    version: "1"
    flavours:
      - id: f1
        image: busybox
        definitions: [missing]
`,
			wantErr:  ErrInvalidFixture,
			contains: `unknown definition hash "missing"`,
		},
		{
			name:     "resource without backend",
			input:    "resources:\n  - id: r1\n    backend: nope\n",
			wantErr:  ErrInvalidFixture,
			contains: `unknown backend "nope"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	fixture := &Fixture{
		Backends: []Backend{{ID: ""}},
		Users:    []User{{ID: "a"}, {ID: "a"}},
	}
	err := fixture.Validate()
	if !errors.Is(err, ErrInvalidFixture) {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, want := range []string{"backends[0]: id is required", "backends[0]: name is required", `users[1]: duplicate id "a"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestLoad_TooLarge(t *testing.T) {
	big := strings.Repeat("#", MaxFixtureSize+1)
	if _, err := Load(strings.NewReader(big)); !errors.Is(err, ErrFixtureTooLarge) {
		t.Errorf("Load() error = %v, want ErrFixtureTooLarge", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(validFixture), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) expected error")
	}
}

func TestDefault(t *testing.T) {
	fixture, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if len(fixture.Releases) == 0 || len(fixture.Backends) == 0 {
		t.Errorf("Default() fixture is empty: %v", fixture.Counts())
	}
}
