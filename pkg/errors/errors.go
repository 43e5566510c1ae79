package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeTimeout    Code = "TIMEOUT"
	CodeOffline    Code = "OFFLINE"
	CodeStorage    Code = "STORAGE_ERROR"
	CodeInternal   Code = "INTERNAL_ERROR"
	CodeDependency Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	Retryable     bool
	UserVisible   bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Retryable:     false,
		UserVisible:   true,
		PublicMessage: "validation failed",
	},
	CodeNotFound: {
		Retryable:     false,
		UserVisible:   false,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		Retryable:     false,
		UserVisible:   false,
		PublicMessage: "conflict detected",
	},
	CodeTimeout: {
		Retryable:     true,
		UserVisible:   false,
		PublicMessage: "request timed out",
	},
	CodeOffline: {
		Retryable:     true,
		UserVisible:   false,
		PublicMessage: "device is offline",
	},
	CodeStorage: {
		Retryable:     false,
		UserVisible:   false,
		PublicMessage: "local storage failure",
	},
	CodeInternal: {
		Retryable:     true,
		UserVisible:   false,
		PublicMessage: "internal error",
	},
	CodeDependency: {
		Retryable:     true,
		UserVisible:   false,
		PublicMessage: "dependency unavailable",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Retryable reports whether the error is worth another delivery attempt.
// Untyped errors are treated as transient so a flaky network call is not
// dropped on the first failure.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if IsNonRetryable(err) {
		return false
	}
	if typed := As(err); typed != nil {
		return MetadataFor(typed.Code()).Retryable
	}
	return true
}
