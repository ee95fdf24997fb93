package options

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOption = errors.New("invalid option")
	ErrFieldMissing  = errors.New("field missing")
)

// InvalidOptionError reports an unknown option key or an out-of-range enumerated value.
type InvalidOptionError struct {
	Key   string
	Value string
}

var _ error = &InvalidOptionError{}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("%s: %s=%q", ErrInvalidOption, e.Key, e.Value)
}

func (e *InvalidOptionError) Unwrap() error {
	return ErrInvalidOption
}

func InvalidOption(key, value string) error {
	return &InvalidOptionError{Key: key, Value: value}
}

// FieldMissingError reports an empty value for a field that must be non-empty.
type FieldMissingError struct {
	Field string
}

var _ error = &FieldMissingError{}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("%s: %s", ErrFieldMissing, e.Field)
}

func (e *FieldMissingError) Unwrap() error {
	return ErrFieldMissing
}

func FieldMissing(field string) error {
	return &FieldMissingError{Field: field}
}
