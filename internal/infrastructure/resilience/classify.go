package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// ClassifyCommon handles the cases every collaborator shares: caller
// cancellation, an open breaker and network errors. ok is false when the
// adapter has to decide.
func ClassifyCommon(err error) (ErrorClassification, bool) {
	if err == nil {
		return ErrorClassification{}, true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{Retryable: false, RecordFailure: false}, true
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{Retryable: true, RecordFailure: true}, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}, true
	}
	return ErrorClassification{}, false
}

// ClassifyHTTPStatus treats throttling and server-side statuses as transient.
// Other statuses are caller errors and do not count against the breaker.
func ClassifyHTTPStatus(statusCode int) ErrorClassification {
	if IsRetryableHTTPStatus(statusCode) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return ErrorClassification{Retryable: false, RecordFailure: false}
}

func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
