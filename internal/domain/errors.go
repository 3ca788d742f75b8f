package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotAuthenticated = errors.New("you must be logged in to use this feature")

	ErrValidation          = errors.New("validation error")
	ErrAuthorization       = errors.New("storage permission denied")
	ErrTransient           = errors.New("transient error")
	ErrEndpointUnavailable = errors.New("prediction endpoint unavailable")
	ErrInvalidResponse     = errors.New("invalid response received from ancestor prediction function")
	ErrUpstream            = errors.New("upstream error")
	ErrUpstreamRejected    = errors.New("image generation rejected by provider")
	ErrTimeout             = errors.New("timed out")
)

// IsRetryable reports whether the orchestrator may restart the pipeline
// after err. Bad input and missing authentication never change on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrUnauthorized):
		return false
	default:
		return true
	}
}
