package model

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork         = errors.New("network error")
	ErrInvalidResponse = errors.New("invalid response shape")
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
)

// ValidationError сообщает, какого обязательного поля не хватает.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Missing required field: %s", e.Field)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
