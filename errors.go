// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jshape

import "fmt"

// A Code classifies the reason a parse or conversion failed.
type Code int

// Constants defining the valid Code values.
const (
	codeInvalid          Code = iota
	EmptyDocument             // the input contained no JSON value
	UnexpectedEOF             // the input ended before the value was complete
	UnexpectedChar            // a character the current state does not accept
	BadEscape                 // an invalid \c escape sequence
	BadHexEscape              // an invalid \uXXXX escape sequence
	UndefinedField            // an object key with no declared field or rest type
	RequiredFieldMissing      // a required field was absent at object close
	ArrayTooLong              // a closed array or tuple received too many elements
	ConversionFailure         // a value does not fit the expected type
	UnsupportedType           // the expected type cannot direct parsing
	IoFailure                 // the character source reported an error
	TrailingContent           // non-blank input after the document ended
)

var codeStr = [...]string{
	codeInvalid:          "invalid error code",
	EmptyDocument:        "empty document",
	UnexpectedEOF:        "unexpected end of input",
	UnexpectedChar:       "unexpected character",
	BadEscape:            "invalid escape sequence",
	BadHexEscape:         "invalid Unicode escape",
	UndefinedField:       "undefined field",
	RequiredFieldMissing: "required field missing",
	ArrayTooLong:         "array too long",
	ConversionFailure:    "conversion failure",
	UnsupportedType:      "unsupported type",
	IoFailure:            "read failure",
	TrailingContent:      "trailing content",
}

func (c Code) String() string {
	v := int(c)
	if v <= 0 || v >= len(codeStr) {
		return codeStr[codeInvalid]
	}
	return codeStr[v]
}

// Error is the concrete type of errors reported by this package.  Errors
// that arise at a specific point of the input carry its line and column.
type Error struct {
	Code     Code
	Location LineCol // zero if the error has no input location
	Message  string

	err error
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	if e.Location.isZero() {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("at %s: %s: %s", e.Location, e.Code, e.Message)
}

// Unwrap supports error wrapping.
func (e *Error) Unwrap() error { return e.err }

// errorf constructs an *Error with no input location.
func errorf(code Code, msg string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(msg, args...)}
}

// wrapError constructs an *Error that wraps err.
func wrapError(code Code, err error) *Error {
	return &Error{Code: code, Message: err.Error(), err: err}
}

// CodeOf reports the Code of err, or zero if err is not an *Error.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return codeInvalid
}
