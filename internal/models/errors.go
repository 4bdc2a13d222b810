package models

// ErrorType identifies the category of error that occurred.
type ErrorType string

const (
	// Build phase
	ErrTaskRunFailed ErrorType = "task_run_failed"

	// Catch-all, including tasks that never implemented Run
	ErrInternalError ErrorType = "internal_error"
)

// TaskError is the serialized form of a task failure.
type TaskError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}
