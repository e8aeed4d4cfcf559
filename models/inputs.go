package models

import (
	"fmt"
	"strings"
)

// EnvironmentInput describes the environment a flavour must be able to run in.
// It is sent with MatchFlavour to pick the best flavour for a set of definitions.
type EnvironmentInput struct {
	// Features lists device features the environment provides (optional).
	Features []DeviceFeature `json:"features,omitempty"`

	// ContainerType is the container runtime family available (required).
	ContainerType ContainerType `json:"containerType"`

	// CPU narrows matching to flavours whose requirements fit the CPU (optional).
	CPU *CPUSelectorInput `json:"cpu,omitempty"`
}

// Validate checks that the environment input is well formed.
func (e EnvironmentInput) Validate() error {
	if !e.ContainerType.Valid() {
		return fmt.Errorf("%w: unknown container type %q", ErrInvalidRequest, e.ContainerType)
	}
	for i, f := range e.Features {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("features[%d]: %w", i, err)
		}
	}
	if e.CPU != nil {
		if err := e.CPU.Validate(); err != nil {
			return fmt.Errorf("cpu: %w", err)
		}
	}
	return nil
}

// DeviceFeature is a single device capability to match against.
type DeviceFeature struct {
	// Kind is the feature kind (e.g. "cuda", "opencl").
	Kind string `json:"kind"`

	// CPUCount is the number of CPUs the feature provides, as the service sends it.
	CPUCount string `json:"cpuCount"`
}

// Validate checks that the feature carries a kind.
func (f DeviceFeature) Validate() error {
	if strings.TrimSpace(f.Kind) == "" {
		return fmt.Errorf("%w: feature kind is required", ErrInvalidRequest)
	}
	return nil
}

// CPUSelectorInput selects flavours by CPU frequency (MHz) and memory (MiB).
type CPUSelectorInput struct {
	Frequency int `json:"frequency,omitempty"`
	Memory    int `json:"memory,omitempty"`
}

// Validate rejects negative selectors.
func (c CPUSelectorInput) Validate() error {
	if c.Frequency < 0 || c.Memory < 0 {
		return fmt.Errorf("%w: cpu selector values must not be negative", ErrInvalidRequest)
	}
	return nil
}

// FlavourFilter restricts ListFlavours results.
type FlavourFilter struct {
	// Search matches flavour names case-insensitively.
	Search *string `json:"search,omitempty"`

	// IDs restricts the result to the given flavour IDs.
	IDs []ID `json:"ids,omitempty"`

	// HasDefinitions keeps flavours implementing every listed definition.
	HasDefinitions []ID `json:"hasDefinitions,omitempty"`
}

// FlavourOrder sorts ListFlavours results.
type FlavourOrder struct {
	ReleasedAt Ordering `json:"releasedAt,omitempty"`
}

// Validate checks the ordering value when set.
func (o FlavourOrder) Validate() error {
	if o.ReleasedAt != "" && !o.ReleasedAt.Valid() {
		return fmt.Errorf("%w: unknown ordering %q", ErrInvalidRequest, o.ReleasedAt)
	}
	return nil
}

// OffsetPaginationInput pages list results.
type OffsetPaginationInput struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Validate rejects negative pagination.
func (p OffsetPaginationInput) Validate() error {
	if p.Limit < 0 || p.Offset < 0 {
		return fmt.Errorf("%w: pagination values must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Window applies the pagination to a result of length n and returns the
// half-open index range to keep. A zero limit keeps everything after offset.
func (p OffsetPaginationInput) Window(n int) (start, end int) {
	start = p.Offset
	if start > n {
		start = n
	}
	end = n
	if p.Limit > 0 && start+p.Limit < n {
		end = start + p.Limit
	}
	return start, end
}
