package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network status 0", statusErr(0), true},
		{"rate limited", statusErr(429), true},
		{"server error", statusErr(503), true},
		{"wrapped server error", fmt.Errorf("call: %w", statusErr(502)), true},
		{"client timeout", statusErr(408), false},
		{"not found", statusErr(404), false},
		{"validation", statusErr(422), false},
		{"conn reset", syscall.ECONNRESET, true},
		{"dial failure", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"dns temporary", &net.DNSError{IsTemporary: true}, true},
		{"dns not found", &net.DNSError{IsNotFound: true}, false},
		{"plain", errors.New("bad request"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, IsRetryableStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 408, 422} {
		assert.False(t, IsRetryableStatus(code), "status %d", code)
	}
}
