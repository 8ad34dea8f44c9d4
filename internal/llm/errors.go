package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/castlemilk/pfinance/assistant/internal/extraction"
)

// transportError maps a failed call to the unavailable family. Deadlines are
// reported as timeouts so callers can tell a slow backend from a dead one.
func transportError(method string, err error) *extraction.ExtractionError {
	var extErr *extraction.ExtractionError
	if errors.As(err, &extErr) {
		return extErr
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return extraction.NewModelError(extraction.ErrModelTimeout, method, "deadline exceeded", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return extraction.NewModelError(extraction.ErrModelTimeout, method, "network timeout", err)
	}
	return extraction.NewModelError(extraction.ErrModelUnavailable, method, "request failed", err)
}

// statusError maps an HTTP status from a model backend.
func statusError(method string, status int, body string) *extraction.ExtractionError {
	cause := fmt.Errorf("status %d: %s", status, truncate(body, 200))
	switch {
	case status == http.StatusTooManyRequests:
		return extraction.NewModelError(extraction.ErrModelRateLimited, method, "rate limited", cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return extraction.NewModelError(extraction.ErrModelCredentialsMissing, method, "credentials rejected", cause)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return extraction.NewModelError(extraction.ErrModelTimeout, method, "backend timed out", cause)
	}
	return extraction.NewModelError(extraction.ErrModelUnavailable, method, "backend error", cause)
}

func malformed(method, message string, cause error) *extraction.ExtractionError {
	return extraction.NewModelError(extraction.ErrModelMalformedOutput, method, message, cause)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
