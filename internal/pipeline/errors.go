package pipeline

import "errors"

// ErrUnknownInstrument is returned for symbols outside the watch list.
var ErrUnknownInstrument = errors.New("instrument not on watch list")
