package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for trade execution. Handlers map these onto HTTP
// status codes; anything else is treated as a storage failure.
var (
	ErrNotFound          = errors.New("portfolio not found")
	ErrNoSuchHolding     = errors.New("no holding for ticker")
	ErrInsufficientFunds = errors.New("insufficient cash balance")
	ErrExceedsHolding    = errors.New("sell quantity exceeds holding")
	ErrQuoteUnavailable  = errors.New("quote unavailable")
)

// ValidationError reports malformed input rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
