package gate

import (
	"time"

	"golang.org/x/time/rate"
)

// #region limiters

// limiters holds the hourly and daily suggestion token buckets. Rebuilt
// whenever controls change; callers hold the gate mutex.
type limiters struct {
	hourly *rate.Limiter
	daily  *rate.Limiter
}

func newLimiters(limits OperationalLimits) *limiters {
	return &limiters{
		hourly: rate.NewLimiter(perWindow(limits.MaxSuggestionsPerHour, time.Hour), limits.MaxSuggestionsPerHour),
		daily:  rate.NewLimiter(perWindow(limits.MaxSuggestionsPerDay, 24*time.Hour), limits.MaxSuggestionsPerDay),
	}
}

// consume takes one token from each window. It reports the first exhausted
// window, or "" when both allow the suggestion. The daily token is only
// spent when the hourly window allowed it, so an hourly denial does not
// drain the daily budget.
func (l *limiters) consume() string {
	if !l.hourly.Allow() {
		return "hourly"
	}
	if !l.daily.Allow() {
		return "daily"
	}
	return ""
}

func perWindow(n int, window time.Duration) rate.Limit {
	if n <= 0 {
		return rate.Limit(0)
	}
	return rate.Every(window / time.Duration(n))
}

// #endregion limiters
