package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrUnavailable = errors.New("control unavailable")
)
