package api

import "errors"

// Domain errors surfaced to callers (spec §7). These are checked with
// errors.Is/errors.As the way the teacher's db/cache packages wrap
// sentinel errors with fmt.Errorf("...: %w", err).
var (
	ErrNotReachable     = errors.New("api: not reachable")
	ErrBadRequest       = errors.New("api: bad request")
	ErrOverflow         = errors.New("api: expansion budget exceeded")
	ErrReplanSuppressed = errors.New("api: replan suppressed")
)

// statusFor maps a domain error to the spec §6 exit-code family,
// reused here as an HTTP status family: 400 bad input, 404 not
// reachable, 409 replan suppressed, 503 overflow/deadline.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return 400
	case errors.Is(err, ErrNotReachable):
		return 404
	case errors.Is(err, ErrReplanSuppressed):
		return 409
	case errors.Is(err, ErrOverflow):
		return 503
	default:
		return 500
	}
}
