package router

import "errors"

// ErrUnknownCategory is returned when registering CategoryUnknown.
var ErrUnknownCategory = errors.New("unknown notification category")
