package resilience

import (
	"errors"
	"net"
	"net/http"
	"syscall"
)

// StatusCoder is implemented by errors that carry an HTTP status. Status 0
// means the request never produced a response.
type StatusCoder interface {
	StatusCode() int
}

// IsRetryableStatus reports whether a response status may be retried.
// Client errors are final except 429 Too Many Requests. A client-side
// timeout surfaces as 408 and is not retried either.
func IsRetryableStatus(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode <= 599
}

// Retryable classifies a failed request attempt. Errors carrying a status
// are judged by it, with status 0 (connectivity failure) retried. Other
// errors are retried only when they look like a dropped connection.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code == 0 || IsRetryableStatus(code)
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || opErr.Op == "read"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	return false
}
