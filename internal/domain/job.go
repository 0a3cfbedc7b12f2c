package domain

import "time"

// JobStatus labels the lifecycle of an async delivery job.
type JobStatus string

const (
	// JobPending: execution is still running in the background.
	JobPending JobStatus = "pending"
	// JobCompleted: execution succeeded and the callback was delivered.
	JobCompleted JobStatus = "completed"
	// JobFailed: execution failed; the failure envelope was delivered.
	JobFailed JobStatus = "failed"
	// JobCallbackFailed: execution finished but callback delivery failed.
	// The recorded execution outcome is unchanged.
	JobCallbackFailed JobStatus = "callback_failed"
)

// DeliveryEnvelope is the payload POSTed to a callback URL when an async
// execution finishes. Status is completed or failed; callback_failed only
// exists on the job record, never on the wire.
type DeliveryEnvelope struct {
	JobID    string           `json:"job_id"`
	ToolName string           `json:"tool_name"`
	Status   JobStatus        `json:"status"`
	Result   *ExecutionResult `json:"result,omitempty"`
	Error    *ExecutionResult `json:"error,omitempty"`
}

// DeliveryJob records one executeAndDeliver invocation.
type DeliveryJob struct {
	ID          string    `json:"job_id"`
	Tool        string    `json:"tool_name"`
	CallbackURL string    `json:"callback_url"`
	Status      JobStatus `json:"status"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
	Error       string    `json:"error,omitempty"`
}
