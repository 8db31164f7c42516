package apiclient

import (
	"net/http"

	"go.uber.org/zap"
)

// RequestInterceptor may mutate an outgoing request before it is sent.
// Returning an error aborts the call.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor may replace a successful response.
type ResponseInterceptor func(resp *Response) (*Response, error)

// ErrorInterceptor may replace a failed call's error envelope.
type ErrorInterceptor func(err *APIError) *APIError

// Interceptors groups the hook chains applied to every call, in order.
type Interceptors struct {
	Request  []RequestInterceptor
	Response []ResponseInterceptor
	Error    []ErrorInterceptor
}

func (ic Interceptors) applyRequest(req *http.Request) error {
	for _, fn := range ic.Request {
		if err := fn(req); err != nil {
			return err
		}
	}
	return nil
}

func (ic Interceptors) applyResponse(resp *Response) (*Response, error) {
	for _, fn := range ic.Response {
		next, err := fn(resp)
		if err != nil {
			return nil, err
		}
		if next != nil {
			resp = next
		}
	}
	return resp, nil
}

func (ic Interceptors) applyError(apiErr *APIError) *APIError {
	for _, fn := range ic.Error {
		if next := fn(apiErr); next != nil {
			apiErr = next
		}
	}
	return apiErr
}

// LoggingInterceptors logs every outgoing request and failure at debug and
// warn level respectively.
func LoggingInterceptors() Interceptors {
	return Interceptors{
		Request: []RequestInterceptor{func(req *http.Request) error {
			zap.L().Debug("api request",
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()),
			)
			return nil
		}},
		Error: []ErrorInterceptor{func(err *APIError) *APIError {
			zap.L().Warn("api request failed",
				zap.String("path", err.Path),
				zap.Int("status", err.Status),
				zap.String("error", err.Message),
			)
			return err
		}},
	}
}
