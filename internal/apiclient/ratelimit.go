package apiclient

import (
	"sync"
	"time"
)

// slidingWindow admits at most limit calls per endpoint within any window.
type slidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  map[string][]time.Time
	now    func() time.Time
}

func newSlidingWindow(limit int, window time.Duration, now func() time.Time) *slidingWindow {
	return &slidingWindow{
		limit:  limit,
		window: window,
		calls:  make(map[string][]time.Time),
		now:    now,
	}
}

// allow records a call for endpoint and reports whether it is within the
// limit. Rejected calls are not recorded.
func (w *slidingWindow) allow(endpoint string) bool {
	if w.limit <= 0 {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)
	for ep, times := range w.calls {
		if ep != endpoint && !times[len(times)-1].After(cutoff) {
			delete(w.calls, ep)
		}
	}

	recent := w.calls[endpoint]
	i := 0
	for i < len(recent) && !recent[i].After(cutoff) {
		i++
	}
	recent = recent[i:]

	if len(recent) >= w.limit {
		w.calls[endpoint] = recent
		return false
	}
	w.calls[endpoint] = append(recent, now)
	return true
}

func (w *slidingWindow) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.calls)
}

func (w *slidingWindow) reset() {
	w.mu.Lock()
	w.calls = make(map[string][]time.Time)
	w.mu.Unlock()
}
