package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrMissingDirectory = errors.New("destination directory does not exist")
	ErrWriteRecords     = errors.New("write records file")
	ErrSheet            = errors.New("results sheet")
	ErrArchive          = errors.New("archive")
)
