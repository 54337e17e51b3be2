package chain

import (
	"errors"
	"fmt"
)

// ErrProviderNotConfigured is returned when the explorer endpoint or API key
// for a network is missing. Operators fix it through configuration.
var ErrProviderNotConfigured = errors.New("chain provider not configured")

// ValidationError rejects malformed input before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ProviderError carries an upstream explorer failure.
type ProviderError struct {
	Network   Network
	Action    string
	Status    int
	Message   string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("explorer %s %s: http %d: %s", e.Network, e.Action, e.Status, msg)
	}
	return fmt.Sprintf("explorer %s %s: %s", e.Network, e.Action, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsProvider reports whether err is a ProviderError.
func IsProvider(err error) bool {
	var p *ProviderError
	return errors.As(err, &p)
}
