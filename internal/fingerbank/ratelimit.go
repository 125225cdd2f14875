package fingerbank

import (
	"sync"
	"time"
)

// windowLimiter enforces two independent sliding-window ceilings (per
// hour and per day) over dispatched API calls. Entries older than their
// horizon are pruned lazily on each check. The counters are process-wide
// shared state; every method takes the lock.
type windowLimiter struct {
	mu          sync.Mutex
	hourlyLimit int
	dailyLimit  int
	hourly      []time.Time
	daily       []time.Time

	now func() time.Time
}

// WindowStatus is a snapshot of the limiter for diagnostics.
type WindowStatus struct {
	HourlyUsed  int           `json:"hourly_used"`
	HourlyLimit int           `json:"hourly_limit"`
	DailyUsed   int           `json:"daily_used"`
	DailyLimit  int           `json:"daily_limit"`
	CanRequest  bool          `json:"can_request"`
	Wait        time.Duration `json:"wait"`
}

func newWindowLimiter(perHour, perDay int) *windowLimiter {
	return &windowLimiter{
		hourlyLimit: perHour,
		dailyLimit:  perDay,
		now:         time.Now,
	}
}

// TryAcquire checks both ceilings and reserves one slot in each window
// in a single critical section, so concurrent callers can never both
// squeeze through the last slot. It returns ok=false without reserving
// when either window is at its ceiling. The release function undoes the
// reservation; call it only when the reserved call was never dispatched.
func (l *windowLimiter) TryAcquire() (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	if len(l.hourly) >= l.hourlyLimit || len(l.daily) >= l.dailyLimit {
		return nil, false
	}
	l.hourly = append(l.hourly, now)
	l.daily = append(l.daily, now)
	return func() { l.remove(now) }, true
}

// remove drops one reservation stamped at t from both windows. A no-op
// when pruning already discarded the entry.
func (l *windowLimiter) remove(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hourly = removeStamp(l.hourly, t)
	l.daily = removeStamp(l.daily, t)
}

func removeStamp(window []time.Time, t time.Time) []time.Time {
	for i, stamp := range window {
		if stamp.Equal(t) {
			return append(window[:i], window[i+1:]...)
		}
	}
	return window
}

// Status returns the current window usage and, when the hourly window is
// exhausted, how long until its oldest entry expires.
func (l *windowLimiter) Status() WindowStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	s := WindowStatus{
		HourlyUsed:  len(l.hourly),
		HourlyLimit: l.hourlyLimit,
		DailyUsed:   len(l.daily),
		DailyLimit:  l.dailyLimit,
	}
	s.CanRequest = s.HourlyUsed < s.HourlyLimit && s.DailyUsed < s.DailyLimit

	if !s.CanRequest && len(l.hourly) > 0 {
		s.Wait = l.hourly[0].Add(time.Hour).Sub(now)
		if s.Wait < 0 {
			s.Wait = 0
		}
	}
	return s
}

// prune drops entries older than their window horizon. Entries are
// appended in time order, so a linear scan from the front suffices.
func (l *windowLimiter) prune(now time.Time) {
	hourAgo := now.Add(-time.Hour)
	for len(l.hourly) > 0 && !l.hourly[0].After(hourAgo) {
		l.hourly = l.hourly[1:]
	}
	dayAgo := now.Add(-24 * time.Hour)
	for len(l.daily) > 0 && !l.daily[0].After(dayAgo) {
		l.daily = l.daily[1:]
	}
}
