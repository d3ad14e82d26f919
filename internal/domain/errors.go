package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// ErrEndpointGone is returned by the push delivery channel when the endpoint
// itself has been revoked or expired and will never accept a delivery again.
// The dispatcher reacts by pruning the subscription. Transient channel
// failures must never be wrapped in this sentinel.
var ErrEndpointGone = errors.New("push endpoint gone")
