package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedModel indicates no request format is known for the model.
	ErrUnsupportedModel = errors.New("unsupported model")
	// ErrUnknownProvider indicates the configured provider is not recognised.
	ErrUnknownProvider = errors.New("unknown ai provider")
)

// InvocationError is returned when the remote model could not be reached or
// refused the request. No partial result accompanies it.
type InvocationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s model %s invocation failed: %v", e.Provider, e.Model, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
