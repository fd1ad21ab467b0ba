package sizing

import (
	"errors"
	"fmt"
)

// ErrUndefinedResult is returned when stop-loss plus round-trip commission is zero.
var ErrUndefinedResult = errors.New("position size undefined: stop loss + 2x commission is zero")

// ErrOptionNotOffered marks a risk or commission value outside the configured choices.
var ErrOptionNotOffered = errors.New("option not offered")

// ParseError reports free-text input that is not a finite number.
type ParseError struct {
	Field string
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %q is not a valid number: %v", e.Field, e.Text, e.Err)
	}
	return fmt.Sprintf("%s: %q is not a valid number", e.Field, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a parsed value outside the domain of the formula.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s=%v: %s", e.Field, e.Value, e.Reason)
}

// Kind classifies err for callers that map errors onto user-facing categories.
// It returns "" for nil and "internal" for errors outside the sizing taxonomy.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var pe *ParseError
	var ve *ValidationError
	switch {
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &ve):
		return KindInvalid
	case errors.Is(err, ErrUndefinedResult):
		return KindUndefined
	case errors.Is(err, ErrOptionNotOffered):
		return KindNotOffered
	default:
		return KindInternal
	}
}

const (
	KindParse      = "parse"
	KindInvalid    = "invalid"
	KindUndefined  = "undefined"
	KindNotOffered = "not_offered"
	KindInternal   = "internal"
)
