package handler

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter keeps one token bucket per user. A non-positive rate
// disables limiting.
type userLimiter struct {
	mu       sync.Mutex
	perMin   int
	limiters map[int64]*rate.Limiter
}

func newUserLimiter(perMin int) *userLimiter {
	return &userLimiter{perMin: perMin, limiters: make(map[int64]*rate.Limiter)}
}

func (l *userLimiter) Allow(userID int64) bool {
	if l.perMin <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
		l.limiters[userID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
