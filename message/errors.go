package message

import (
	"errors"
	"fmt"
)

// ErrMalformed is matched by every DecodeError.
var ErrMalformed = errors.New("malformed message")

// DecodeError reports a frame that could not be decoded. Kind is empty when the
// outer envelope itself was invalid; otherwise it names the recognized kind whose
// payload did not match its shape.
type DecodeError struct {
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("decoding envelope: %v", e.Err)
	}

	return fmt.Sprintf("decoding %s payload: %v", e.Kind, e.Err)
}

// Unwrap exposes both ErrMalformed and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrMalformed, e.Err}
}

func malformed(kind Kind, err error) *DecodeError {
	return &DecodeError{Kind: kind, Err: err}
}

func missingField(name string) error {
	return fmt.Errorf("missing required field %q", name)
}
