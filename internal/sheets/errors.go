package sheets

import "fmt"

// SyncError reports a failed mirror operation.
type SyncError struct {
	Op        string
	Retryable bool
	Cause     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sheets %s: %v", e.Op, e.Cause)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a SyncError worth retrying. Unknown
// errors are retried.
func IsRetryable(err error) bool {
	if se, ok := err.(*SyncError); ok {
		return se.Retryable
	}
	return true
}

func syncErr(op string, retryable bool, err error) error {
	if err == nil {
		return nil
	}
	return &SyncError{Op: op, Retryable: retryable, Cause: err}
}
