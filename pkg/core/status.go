package core

// StepStatus represents the execution status of a scenario step
type StepStatus int

const (
	StatusPending StepStatus = iota // Not yet started
	StatusRunning                   // Currently executing
	StatusPassed                    // Completed successfully
	StatusFailed                    // Assertion failed (expected state didn't hold)
	StatusErrored                   // Unexpected error (connection, timeout, protocol)
	StatusSkipped                   // Previous step failed
)

// String returns the string representation of StepStatus
func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final state
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusSkipped:
		return true
	default:
		return false
	}
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryResolution                      // Ambiguous match, detached element, not found
	ErrCategoryTimeout                         // Operation deadline exceeded
	ErrCategoryConnection                      // Session closed or handshake failed
	ErrCategoryNavigation                      // Navigation interleaved with an action
	ErrCategoryConfig                          // Invalid endpoint, option, or config file
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryResolution:
		return "resolution"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryNavigation:
		return "navigation"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}
