package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// WindowLimiter allows up to limit requests per key in each fixed window.
// A key's window opens with its first request. Elapsed windows are
// reclaimed lazily, at most once per window length.
type WindowLimiter struct {
	mu        sync.Mutex
	limit     int
	size      time.Duration
	windows   map[string]*window
	lastSweep time.Time
}

func NewWindowLimiter(limit int, size time.Duration) *WindowLimiter {
	return &WindowLimiter{
		limit:   limit,
		size:    size,
		windows: make(map[string]*window),
	}
}

func (l *WindowLimiter) Allow(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(l.size)) {
		w = &window{start: now}
		l.windows[key] = w
	}

	if w.count >= l.limit {
		return false, w.start.Add(l.size).Sub(now)
	}
	w.count++
	return true, 0
}

func (l *WindowLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.size {
		return
	}
	l.lastSweep = now
	for k, w := range l.windows {
		if !now.Before(w.start.Add(l.size)) {
			delete(l.windows, k)
		}
	}
}

// Len returns the number of tracked keys.
func (l *WindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
