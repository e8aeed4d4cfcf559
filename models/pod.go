package models

// Pod represents a running instance of a deployment.
type Pod struct {
	// ID is the server-assigned identifier.
	ID ID `json:"id"`

	// PodID is the backend-local identifier of the pod.
	PodID string `json:"podId"`

	// Deployment is the deployment this pod instantiates.
	Deployment PodDeployment `json:"deployment"`
}

// PodDeployment is the deployment as seen from a pod.
type PodDeployment struct {
	// Flavour is the flavour the deployment runs.
	Flavour Flavour `json:"flavour"`
}

// ListPod is the pod shape returned by list queries and pod events.
type ListPod struct {
	ID    ID     `json:"id"`
	PodID string `json:"podId"`
}

// PodEvent is one message of the WatchPods subscription.
// Exactly one of Create, Update or Delete is set.
type PodEvent struct {
	// Create carries a newly created pod.
	Create *ListPod `json:"create,omitempty"`

	// Update carries a pod whose status changed.
	Update *ListPod `json:"update,omitempty"`

	// Delete carries the ID of a removed pod.
	Delete *ID `json:"delete,omitempty"`
}

// PodEventKind names the kind of change a PodEvent carries.
type PodEventKind string

const (
	PodEventCreate PodEventKind = "create"
	PodEventUpdate PodEventKind = "update"
	PodEventDelete PodEventKind = "delete"
)

// Kind returns which change the event carries, or "" for an empty event.
func (e PodEvent) Kind() PodEventKind {
	switch {
	case e.Create != nil:
		return PodEventCreate
	case e.Update != nil:
		return PodEventUpdate
	case e.Delete != nil:
		return PodEventDelete
	}
	return ""
}

// PodID returns the server ID of the pod the event is about.
func (e PodEvent) PodID() ID {
	switch {
	case e.Create != nil:
		return e.Create.ID
	case e.Update != nil:
		return e.Update.ID
	case e.Delete != nil:
		return *e.Delete
	}
	return ""
}
