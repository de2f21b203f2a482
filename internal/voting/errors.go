package voting

import "errors"

// Error kinds produced by the core. Callers map them to transport
// presentation; none of them is a defect.
var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrPollExpired     = errors.New("poll expired")
	ErrInvalidOption   = errors.New("invalid option")
	ErrMissingIdentity = errors.New("missing device identity")
	ErrIPConflict      = errors.New("ip already bound to another device")
	ErrVoterNotFound   = errors.New("no vote for device")

	// ErrPersistence marks store failures. It is always wrapped together
	// with the underlying cause and is safe to retry.
	ErrPersistence = errors.New("persistence failure")
)
