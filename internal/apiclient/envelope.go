package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Synthetic status codes for failures that never produced an HTTP response.
const (
	StatusNetworkError = 0
	StatusTimeout      = http.StatusRequestTimeout
	StatusRateLimited  = http.StatusTooManyRequests
)

// Response is the success envelope returned for every completed call,
// including cache hits.
type Response struct {
	Data      json.RawMessage `json:"data"`
	Success   bool            `json:"success"`
	Timestamp time.Time       `json:"timestamp"`

	// StatusCode is the HTTP status of the underlying response (0 for cache hits).
	StatusCode int  `json:"-"`
	Cached     bool `json:"-"`
}

// Decode unmarshals the response payload into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Data) == 0 {
		return eris.New("apiclient: empty response data")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return eris.Wrap(err, "apiclient: decode response data")
	}
	return nil
}

func (r *Response) clone() *Response {
	out := *r
	out.Data = append(json.RawMessage(nil), r.Data...)
	return &out
}

// APIError is the error envelope for every failed call. Transport failures
// carry a synthetic status: 0 for connectivity, 408 for timeouts, 429 for
// calls rejected by the local rate gate.
type APIError struct {
	Message   string    `json:"error"`
	Detail    string    `json:"detail,omitempty"`
	Status    int       `json:"status_code"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`

	cause error
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %d: %s (%s)", e.Path, e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s %d: %s", e.Path, e.Status, e.Message)
}

// Unwrap exposes the transport error, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// StatusCode returns the HTTP or synthetic status of the failure.
func (e *APIError) StatusCode() int {
	return e.Status
}

func newAPIError(path string, status int, msg string, cause error) *APIError {
	return &APIError{
		Message:   msg,
		Status:    status,
		Timestamp: time.Now().UTC(),
		Path:      path,
		cause:     cause,
	}
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	e, ok := AsAPIError(err)
	return ok && e.Status == StatusTimeout
}

// IsRateLimited reports whether err is a 429, local or remote.
func IsRateLimited(err error) bool {
	e, ok := AsAPIError(err)
	return ok && e.Status == StatusRateLimited
}

// IsUnauthorized reports whether err is a 401.
func IsUnauthorized(err error) bool {
	e, ok := AsAPIError(err)
	return ok && e.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool {
	e, ok := AsAPIError(err)
	return ok && e.Status == http.StatusNotFound
}

// parseErrorBody extracts the message and detail from a backend error body.
// The backend uses {"error": ..., "detail": ...}; FastAPI-style bodies use
// {"detail": ...} and some proxies use {"message": ...}.
func parseErrorBody(body []byte, status int) (string, string) {
	var payload struct {
		Error   string          `json:"error"`
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return http.StatusText(status), ""
	}

	detail := ""
	if len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			detail = s
		} else {
			detail = string(payload.Detail)
		}
	}

	msg := payload.Error
	if msg == "" {
		msg = payload.Message
	}
	if msg == "" && detail != "" {
		msg, detail = detail, ""
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return msg, detail
}
