package usecase

import "errors"

// ErrInvalidInput marks caller mistakes such as a malformed owner address.
var ErrInvalidInput = errors.New("invalid input")
