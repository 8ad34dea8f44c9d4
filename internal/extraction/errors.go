package extraction

import (
	"errors"
	"fmt"
)

// ExtractionErrorCode represents specific extraction error types.
type ExtractionErrorCode string

const (
	ErrModelUnavailable        ExtractionErrorCode = "MODEL_UNAVAILABLE"
	ErrModelTimeout            ExtractionErrorCode = "MODEL_TIMEOUT"
	ErrModelRateLimited        ExtractionErrorCode = "MODEL_RATE_LIMITED"
	ErrModelCredentialsMissing ExtractionErrorCode = "MODEL_CREDENTIALS_MISSING"
	ErrModelMalformedOutput    ExtractionErrorCode = "MODEL_MALFORMED_OUTPUT"
)

// ExtractionError is a structured error for model failures.
type ExtractionError struct {
	Code    ExtractionErrorCode
	Message string
	Method  string // e.g. "gemini" or "ollama"
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Unavailable reports whether the code belongs to the unavailable family:
// the backend cannot serve requests for the rest of the process.
func (c ExtractionErrorCode) Unavailable() bool {
	switch c {
	case ErrModelUnavailable, ErrModelTimeout, ErrModelRateLimited, ErrModelCredentialsMissing:
		return true
	}
	return false
}

// NewModelError builds an ExtractionError for the given backend.
func NewModelError(code ExtractionErrorCode, method, message string, cause error) *ExtractionError {
	return &ExtractionError{
		Code:    code,
		Message: message,
		Method:  method,
		Cause:   cause,
	}
}

// IsModelUnavailable reports whether err means the model backend is unusable.
func IsModelUnavailable(err error) bool {
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr.Code.Unavailable()
	}
	return false
}

// IsMalformedOutput reports whether err means the model answered with
// something that does not fit the requested schema.
func IsMalformedOutput(err error) bool {
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr.Code == ErrModelMalformedOutput
	}
	return false
}
