package models

// Backend is a compute provider that declared itself to Kabinet.
type Backend struct {
	// ID is the server-assigned identifier.
	ID ID `json:"id"`

	// Name is the human-readable backend name.
	Name string `json:"name"`

	// Kind is the backend kind (e.g. "docker", "slurm"). Only returned by
	// the backend list and get queries.
	Kind string `json:"kind,omitempty"`

	// InstanceID identifies the agent instance that declared the backend.
	InstanceID string `json:"instanceId,omitempty"`
}

// Resource is a compute resource offered by a backend.
type Resource struct {
	// ID is the server-assigned identifier.
	ID ID `json:"id"`

	// Name is the human-readable resource name.
	Name string `json:"name"`

	// ResourceID is the backend-local identifier of the resource.
	ResourceID string `json:"resourceId"`

	// Backend is the backend offering the resource.
	Backend ResourceBackend `json:"backend"`
}

// ResourceBackend is the backend as embedded in a resource.
type ResourceBackend struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// User is a Konviktion user.
type User struct {
	ID string `json:"id"`
}
