package service

import "errors"

// Sentinel kinds for pipeline errors.
var (
	// ErrSourceUnavailable wraps any failure of the camera, classifier or
	// OCR port.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrPortTimeout marks a port that did not answer in time. It is always
	// reported together with ErrSourceUnavailable.
	ErrPortTimeout = errors.New("port timed out")

	ErrNotDirectory = errors.New("not a directory")
)
