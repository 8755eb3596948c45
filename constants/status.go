package constants

// TaskPhase is the canonical state of a vendor generation task.
type TaskPhase string

// Stable values (these exact strings appear in logs and DB rows).
const (
	TaskPending   TaskPhase = "PENDING"   // accepted by the vendor, not started
	TaskRunning   TaskPhase = "RUNNING"   // in progress (also covers unknown vendor states)
	TaskSucceeded TaskPhase = "SUCCEEDED" // terminal, carries a result
	TaskFailed    TaskPhase = "FAILED"    // terminal failure reported by the vendor
	TaskExpired   TaskPhase = "EXPIRED"   // terminal, result window elapsed vendor-side
	TaskNotFound  TaskPhase = "NOT_FOUND" // terminal, vendor no longer knows the task
)

// Terminal reports whether no further transition can occur from p.
func (p TaskPhase) Terminal() bool {
	switch p {
	case TaskSucceeded, TaskFailed, TaskExpired, TaskNotFound:
		return true
	}
	return false
}
