package constant

type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed || s == TaskStatusCancelled
}

const (
	TaskKindBuildDefault = "build_default"
	TaskKindBuildSession = "build_session"
)

// Watermill topic consumed by the build worker pool.
const BuildVectorStoreTopic = "BUILD_VECTOR_STORE"

// NATS event type announcing a freshly installed bundle.
const BundleInstalledEvent = "BUNDLE_INSTALLED"
