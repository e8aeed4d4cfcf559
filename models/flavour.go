package models

import (
	"fmt"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
)

// Flavour is a container image variant of a release, as embedded in a pod.
type Flavour struct {
	// Release is the release this flavour belongs to.
	Release Release `json:"release"`

	// Manifest is the app manifest shipped with the flavour.
	Manifest Any `json:"manifest"`
}

// ListFlavour is the flavour shape returned by list queries.
type ListFlavour struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Manifest Any    `json:"manifest"`
}

// MatchedFlavour is the flavour chosen by MatchFlavour.
type MatchedFlavour struct {
	// ID is the flavour identifier.
	ID ID `json:"id"`

	// Image is the container image to pull.
	Image string `json:"image"`
}

// ImageReference parses the matched flavour's container image.
func (f MatchedFlavour) ImageReference() (ImageRef, error) {
	return ParseImage(f.Image)
}

// ImageRef is a parsed container image reference.
type ImageRef struct {
	// Registry is the registry host (e.g. "index.docker.io").
	Registry string

	// Repository is the repository path without registry.
	Repository string

	// Identifier is the tag or digest.
	Identifier string

	// Digest is true when Identifier is a content digest.
	Digest bool
}

// String renders the fully qualified reference.
func (r ImageRef) String() string {
	sep := ":"
	if r.Digest {
		sep = "@"
	}
	return r.Registry + "/" + r.Repository + sep + r.Identifier
}

// ParseImage parses a container image string such as "jhnnsrs/kabinet:latest".
// References without a registry resolve to Docker Hub, without a tag to "latest".
func ParseImage(image string) (ImageRef, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return ImageRef{}, fmt.Errorf("%w: empty image reference", ErrInvalidRequest)
	}

	ref, err := name.ParseReference(image)
	if err != nil {
		return ImageRef{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	_, isDigest := ref.(name.Digest)
	return ImageRef{
		Registry:   ref.Context().RegistryStr(),
		Repository: ref.Context().RepositoryStr(),
		Identifier: ref.Identifier(),
		Digest:     isDigest,
	}, nil
}
