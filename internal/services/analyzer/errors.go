package analyzer

import (
	"errors"
	"fmt"
)

// FormatError reports input that cannot be turned into a return series.
// Rows that are merely malformed are skipped and never produce one.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return e.Msg }

func formatErrorf(format string, args ...any) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// IsFormatError reports whether err or anything it wraps is a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
