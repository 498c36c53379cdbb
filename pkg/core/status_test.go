package core

import "testing"

func TestStepStatusString(t *testing.T) {
	tests := []struct {
		status StepStatus
		want   string
	}{
		{StatusPending, "pending"},
		{StatusRunning, "running"},
		{StatusPassed, "passed"},
		{StatusFailed, "failed"},
		{StatusErrored, "errored"},
		{StatusSkipped, "skipped"},
		{StepStatus(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("StepStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStepStatusIsTerminal(t *testing.T) {
	if StatusPending.IsTerminal() || StatusRunning.IsTerminal() {
		t.Error("pending/running should not be terminal")
	}
	for _, s := range []StepStatus{StatusPassed, StatusFailed, StatusErrored, StatusSkipped} {
		if !s.IsTerminal() {
			t.Errorf("%v should be terminal", s)
		}
	}
}

func TestErrorCategoryString(t *testing.T) {
	tests := []struct {
		cat  ErrorCategory
		want string
	}{
		{ErrCategoryNone, "none"},
		{ErrCategoryResolution, "resolution"},
		{ErrCategoryTimeout, "timeout"},
		{ErrCategoryConnection, "connection"},
		{ErrCategoryNavigation, "navigation"},
		{ErrCategoryConfig, "config"},
		{ErrorCategory(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.want {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}
