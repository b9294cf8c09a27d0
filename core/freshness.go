package core

import "time"

// ShouldFetch decides whether the remote service must be contacted.
// force always wins; an account with no usable prior timestamp always
// fetches; otherwise the cached data must be strictly older than interval.
// Pure function, no I/O.
func ShouldFetch(last time.Time, haveLast bool, force bool, interval time.Duration, now time.Time) bool {
	if force {
		return true
	}
	if !haveLast {
		return true
	}
	return now.Sub(last) > interval
}
