package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrFailedPrecondition    = errors.New("operation not allowed in current state")
	ErrConflict              = errors.New("conflicting concurrent update, try again")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
