package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/time/rate"
)

// clientLimiters holds one token bucket per client IP.
type clientLimiters struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	byHost  map[string]*rate.Limiter
	enabled bool
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	return &clientLimiters{
		limit:   rate.Limit(rps),
		burst:   burst,
		byHost:  make(map[string]*rate.Limiter),
		enabled: rps > 0,
	}
}

func (c *clientLimiters) get(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.byHost[host]
	if !ok {
		l = rate.NewLimiter(c.limit, c.burst)
		c.byHost[host] = l
	}
	return l
}

func clientHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiters.enabled {
			next.ServeHTTP(w, r)
			return
		}
		l := s.limiters.get(clientHost(r))
		if !l.Allow() {
			wait := math.Ceil(1 / float64(s.limiters.limit))
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Max(1, wait))))
			writeError(w, r, http.StatusTooManyRequests, "Rate limit exceeded", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
