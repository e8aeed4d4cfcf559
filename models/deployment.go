package models

// Deployment represents a flavour deployed on a backend.
// The server assigns ID; LocalID is the identifier the backend chose for it.
type Deployment struct {
	// ID is the server-assigned identifier.
	ID ID `json:"id"`

	// LocalID is the backend-local identifier supplied at creation time.
	LocalID ID `json:"localId"`
}

// ListDeployment is the deployment shape returned by list queries.
type ListDeployment struct {
	ID      ID `json:"id"`
	LocalID ID `json:"localId"`
}

// LogDump is the result of uploading a pod's log output.
type LogDump struct {
	// Pod references the pod the logs belong to.
	Pod PodRef `json:"pod"`

	// Logs is the log text as stored by the server.
	Logs string `json:"logs"`
}

// PodRef is a bare pod reference.
type PodRef struct {
	ID ID `json:"id"`
}
