// Package errors provides coded errors. Request failures carry codes such as
// unsupported_operation and illegal_argument that the API maps to statuses;
// component failures carry package-prefixed codes and are only logged.
package errors

// ErrorCode identifies an error kind and is stable across releases
type ErrorCode string

// Error represents a domain-specific error with context
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory defines methods for creating domain errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
