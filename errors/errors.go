package errors

import (
	"errors"
	"fmt"
)

// GenerationError represents a failure of one of the generators.
type GenerationError struct {
	Code        string `json:"error" yaml:"error"`
	Description string `json:"error_description,omitempty" yaml:"error_description,omitempty"`
	Err         error  `json:"-" yaml:"-"`
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a GenerationError with the same code.
func (e *GenerationError) Is(target error) bool {
	t, ok := target.(*GenerationError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Error codes
const (
	InvalidArgument           = "invalid_argument"
	ExternalGenerationFailure = "external_generation_failure"
	RetriesExhausted          = "retries_exhausted"
)

// Sentinels for errors.Is checks. Only the Code is compared.
var (
	ErrInvalidArgument           = &GenerationError{Code: InvalidArgument}
	ErrExternalGenerationFailure = &GenerationError{Code: ExternalGenerationFailure}
	ErrRetriesExhausted          = &GenerationError{Code: RetriesExhausted}
)

func NewInvalidArgument(description string) *GenerationError {
	return &GenerationError{
		Code:        InvalidArgument,
		Description: description,
	}
}

func NewExternalGenerationFailure(description string, err error) *GenerationError {
	return &GenerationError{
		Code:        ExternalGenerationFailure,
		Description: description,
		Err:         err,
	}
}

func NewRetriesExhausted(attempts int) *GenerationError {
	return &GenerationError{
		Code:        RetriesExhausted,
		Description: fmt.Sprintf("no distinct prime after %d attempts", attempts),
	}
}

// CodeOf returns the code of the first GenerationError in err's chain, or "".
func CodeOf(err error) string {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
