package models

// PodStatus is the lifecycle state of a pod as reported by its backend.
type PodStatus string

const (
	// PodStatusPending indicates the pod was created but has not started.
	PodStatusPending PodStatus = "PENDING"

	// PodStatusRunning indicates the pod is running.
	PodStatusRunning PodStatus = "RUNNING"

	// PodStatusStopping indicates the backend is shutting the pod down.
	PodStatusStopping PodStatus = "STOPPING"

	// PodStatusStopped indicates the pod exited cleanly.
	PodStatusStopped PodStatus = "STOPPED"

	// PodStatusFailed indicates the pod exited with an error.
	PodStatusFailed PodStatus = "FAILED"

	// PodStatusUnknown indicates the backend lost track of the pod.
	// The wire value is spelled "UNKOWN" by the service.
	PodStatusUnknown PodStatus = "UNKOWN"
)

// Valid reports whether s is a known pod status.
func (s PodStatus) Valid() bool {
	switch s {
	case PodStatusPending, PodStatusRunning, PodStatusStopping,
		PodStatusStopped, PodStatusFailed, PodStatusUnknown:
		return true
	}
	return false
}

func (s PodStatus) String() string { return string(s) }

// PodStatuses lists every pod status in declaration order.
func PodStatuses() []PodStatus {
	return []PodStatus{
		PodStatusPending, PodStatusRunning, PodStatusStopping,
		PodStatusStopped, PodStatusFailed, PodStatusUnknown,
	}
}

// ContainerType is the container runtime family a flavour targets.
type ContainerType string

const (
	// ContainerTypeApptainer targets Apptainer (Singularity) images.
	ContainerTypeApptainer ContainerType = "APPTAINER"

	// ContainerTypeDocker targets OCI images run by Docker.
	ContainerTypeDocker ContainerType = "DOCKER"
)

// Valid reports whether t is a known container type.
func (t ContainerType) Valid() bool {
	return t == ContainerTypeApptainer || t == ContainerTypeDocker
}

func (t ContainerType) String() string { return string(t) }

// PullProgressStatus is the Docker pull progress reported by Kuay.
type PullProgressStatus string

const (
	PullProgressPulling PullProgressStatus = "PULLING"
	PullProgressPulled  PullProgressStatus = "PULLED"
)

// Valid reports whether s is a known pull progress status.
func (s PullProgressStatus) Valid() bool {
	return s == PullProgressPulling || s == PullProgressPulled
}

// ContainerStatus is the Docker container state reported by Kuay.
type ContainerStatus string

const (
	ContainerStatusCreated    ContainerStatus = "CREATED"
	ContainerStatusRestarting ContainerStatus = "RESTARTING"
	ContainerStatusRunning    ContainerStatus = "RUNNING"
	ContainerStatusRemoving   ContainerStatus = "REMOVING"
	ContainerStatusPaused     ContainerStatus = "PAUSED"
	ContainerStatusExited     ContainerStatus = "EXITED"
	ContainerStatusDead       ContainerStatus = "DEAD"
)

// Valid reports whether s is a known container status.
func (s ContainerStatus) Valid() bool {
	switch s {
	case ContainerStatusCreated, ContainerStatusRestarting, ContainerStatusRunning,
		ContainerStatusRemoving, ContainerStatusPaused, ContainerStatusExited,
		ContainerStatusDead:
		return true
	}
	return false
}

// DockerRuntime is the OCI runtime Kuay starts containers with.
type DockerRuntime string

const (
	DockerRuntimeNvidia DockerRuntime = "NVIDIA"
	DockerRuntimeRunc   DockerRuntime = "RUNC"
)

// Valid reports whether r is a known runtime.
func (r DockerRuntime) Valid() bool {
	return r == DockerRuntimeNvidia || r == DockerRuntimeRunc
}

// Ordering is the sort direction accepted by list filters.
type Ordering string

const (
	OrderingAsc            Ordering = "ASC"
	OrderingAscNullsFirst  Ordering = "ASC_NULLS_FIRST"
	OrderingAscNullsLast   Ordering = "ASC_NULLS_LAST"
	OrderingDesc           Ordering = "DESC"
	OrderingDescNullsFirst Ordering = "DESC_NULLS_FIRST"
	OrderingDescNullsLast  Ordering = "DESC_NULLS_LAST"
)

// Valid reports whether o is a known ordering.
func (o Ordering) Valid() bool {
	switch o {
	case OrderingAsc, OrderingAscNullsFirst, OrderingAscNullsLast,
		OrderingDesc, OrderingDescNullsFirst, OrderingDescNullsLast:
		return true
	}
	return false
}

// Descending reports whether o sorts from largest to smallest.
func (o Ordering) Descending() bool {
	return o == OrderingDesc || o == OrderingDescNullsFirst || o == OrderingDescNullsLast
}
