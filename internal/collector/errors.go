package collector

import "errors"

var (
	// ErrDataUnavailable indicates a vendor or exchange returned no usable data.
	ErrDataUnavailable = errors.New("collector: data unavailable")
	// ErrFileNotFound indicates a local feed file is missing.
	ErrFileNotFound = errors.New("collector: feed file not found")
	// ErrParse indicates a local feed file contains a malformed row.
	ErrParse = errors.New("collector: parse error")
)
