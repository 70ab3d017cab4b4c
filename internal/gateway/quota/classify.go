package quota

import "time"

// BackoffClass categorizes an upstream failure. Each class escalates on its
// own curve, configured by a Window of initial and max durations.
type BackoffClass string

const (
	ClassRateLimited       BackoffClass = "rate_limited"
	ClassForbidden         BackoffClass = "forbidden"
	ClassTimeout           BackoffClass = "timeout"
	ClassServerError       BackoffClass = "server_error"
	ClassConsecutiveErrors BackoffClass = "consecutive_errors"
)

// Window bounds a backoff class's escalation curve.
type Window struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
}

// DefaultWindows matches upstream provider behavior: 429s clear within a
// minute or two, 403s usually mean a key or IP block and need a long pause.
var DefaultWindows = map[BackoffClass]Window{
	ClassRateLimited:       {Initial: 60 * time.Second, Max: 1 * time.Hour},
	ClassForbidden:         {Initial: 10 * time.Minute, Max: 6 * time.Hour},
	ClassTimeout:           {Initial: 15 * time.Second, Max: 5 * time.Minute},
	ClassServerError:       {Initial: 30 * time.Second, Max: 15 * time.Minute},
	ClassConsecutiveErrors: {Initial: 2 * time.Minute, Max: 30 * time.Minute},
}

// consecutiveErrorThreshold escalates any failure to ClassConsecutiveErrors
// once this many errors occur without enough intervening successes.
const consecutiveErrorThreshold = 3

// Classify maps an upstream failure to its backoff class. The consecutive
// count takes precedence: a provider failing repeatedly is treated as
// unhealthy regardless of the individual status codes.
func Classify(statusCode int, isTimeout bool, consecutiveErrors int) BackoffClass {
	if consecutiveErrors >= consecutiveErrorThreshold {
		return ClassConsecutiveErrors
	}
	if isTimeout {
		return ClassTimeout
	}
	switch {
	case statusCode == 429:
		return ClassRateLimited
	case statusCode == 403 || statusCode == 401:
		return ClassForbidden
	case statusCode >= 500:
		return ClassServerError
	default:
		return ClassServerError
	}
}
