package errors

import "errors"

// Domain error kinds for the ticket lifecycle. Callers classify with errors.Is
// and handlers map each kind onto an HTTP status.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidState    = errors.New("resource is in an invalid state for this operation")
	ErrSoldOut         = errors.New("event capacity exhausted")
	ErrUnauthorized    = errors.New("request is not authorized")
	ErrUpstreamFailure = errors.New("payment processor request failed")
	ErrConflict        = errors.New("concurrent update conflict")
)
