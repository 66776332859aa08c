package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrValidation covers bad input caught before any I/O (missing recipient,
	// empty content). ErrFetch and ErrSend wrap read/write failures against the
	// backing store; a send that fails leaves local state untouched. ErrChannel
	// covers push subscription failures; it is logged, never propagated.
	ErrValidation = errors.New("validation failed")
	ErrFetch      = errors.New("fetch failed")
	ErrSend       = errors.New("send failed")
	ErrChannel    = errors.New("channel failed")
)
