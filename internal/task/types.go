package task

import (
	"time"

	"github.com/wenjia-zhai/genbridge/constants"
)

// JobHandle identifies a submitted vendor task. The id is vendor-scoped and
// not guaranteed globally unique; the handle is discarded once the
// orchestration completes or fails permanently.
type JobHandle struct {
	ID          string
	SubmittedAt time.Time
}

// RawResult is the vendor payload pointing at the produced asset: a
// short-lived URL plus whatever auxiliary identifiers the vendor needs for
// follow-up calls. Consumed exactly once by the relocator.
type RawResult struct {
	URL      string
	Filename string
	FileRef  string         // provider-side file handle, when one exists
	Meta     map[string]any // untyped vendor extras, passed through untouched
}

// RawStatus is one poll response before classification. State and
// ErrorMessage carry the vendor's own vocabulary; Result is set only when the
// vendor included a payload.
type RawStatus struct {
	State        string
	ErrorMessage string
	HTTPStatus   int
	Result       *RawResult
}

// TaskStatus is the classified state of a polled job. Only a Succeeded
// status carries a result; every other phase carries at most a reason.
type TaskStatus struct {
	Phase  constants.TaskPhase
	Reason string
	result *RawResult
}

// Result returns the payload of a Succeeded status, nil otherwise.
func (s TaskStatus) Result() *RawResult {
	if s.Phase != constants.TaskSucceeded {
		return nil
	}
	return s.result
}

// Terminal reports whether the poll loop should stop on this status.
func (s TaskStatus) Terminal() bool {
	return s.Phase.Terminal()
}

func Pending() TaskStatus {
	return TaskStatus{Phase: constants.TaskPending}
}

func Running(reason string) TaskStatus {
	return TaskStatus{Phase: constants.TaskRunning, Reason: reason}
}

func Succeeded(result *RawResult) TaskStatus {
	return TaskStatus{Phase: constants.TaskSucceeded, result: result}
}

func Failed(reason string) TaskStatus {
	return TaskStatus{Phase: constants.TaskFailed, Reason: reason}
}

func Expired(reason string) TaskStatus {
	return TaskStatus{Phase: constants.TaskExpired, Reason: reason}
}

func NotFound(reason string) TaskStatus {
	return TaskStatus{Phase: constants.TaskNotFound, Reason: reason}
}

// RelocatedAsset is the durable outcome of an orchestration. When relocation
// to durable storage failed and the degrade policy is in effect, URL is the
// original ephemeral vendor URL and Durable is false; the caller can still
// serve the asset short-term while the durability failure is logged.
type RelocatedAsset struct {
	URL         string
	ObjectKey   string
	SizeBytes   int64
	ContentType string
	Durable     bool
	Source      *RawResult // original vendor reference, retained for audit
}
