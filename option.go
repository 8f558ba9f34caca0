// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jshape

// Options control how far the input document and the expected type may
// disagree, and whether the parsed value is validated before return.
//
// A zero Options is fully strict: unknown object keys fail with
// UndefinedField, closed arrays and tuples that overflow fail with
// ArrayTooLong, and null is accepted only where the expected type is
// nilable.
type Options struct {
	// AllowProjection is the master projection switch. When true, unknown
	// object keys without a rest type are skipped, and elements beyond the
	// size of a closed array or tuple are dropped.
	AllowProjection bool

	// AbsentAsNilable treats a declared nilable field that is missing from
	// the document as an explicit null instead of failing with
	// RequiredFieldMissing. Effective only when AllowProjection is true.
	AbsentAsNilable bool

	// NilAsOptional accepts an explicit null for an optional (non-required)
	// field by omitting the field from the result. Effective only when
	// AllowProjection is true.
	NilAsOptional bool

	// ValidateConstraints forwards a successfully parsed value to Validator
	// before it is returned. It has no effect when Validator is nil.
	ValidateConstraints bool

	// Validator checks a parsed value against constraints annotated on the
	// expected type.
	Validator Validator
}

// normalize clears the projection sub-flags when the master switch is off,
// so the rest of the package can test them without re-checking it.
func (o Options) normalize() Options {
	if !o.AllowProjection {
		o.AbsentAsNilable = false
		o.NilAsOptional = false
	}
	return o
}

// A Validator checks a parsed value against constraints attached to its
// expected type, returning the (possibly replaced) value or an error.
type Validator interface {
	Validate(v Value, t Type) (Value, error)
}
