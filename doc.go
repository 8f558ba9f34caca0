// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package jshape implements a streaming JSON parser directed by an expected
// type: a description of the shape the caller wants, consulted at every
// structural boundary of the input so each value is coerced, renamed, and
// checked as it is read, in a single pass and without an intermediate tree.
//
// # Parsing
//
// Call Parse with an input reader, options, and an expected type. The result
// is a Value whose concrete type follows the expected type: nil, bool,
// int64, float64, decimal.Decimal, or string for scalars, *Object for
// records and maps, and *List for arrays and tuples. Errors have concrete
// type *Error and carry the line and column of the offending input.
//
//	v, err := jshape.Parse(input, jshape.Options{}, &jshape.Record{
//	   Fields: []*jshape.Field{
//	      {Name: "userId", Key: "user-id", Type: jshape.Scalar{Kind: jshape.Int}, Required: true},
//	      {Name: "name", Type: jshape.Scalar{Kind: jshape.String}, Required: true},
//	   },
//	})
//
// To parse many documents, construct a Parser and reuse it; its internal
// buffers are retained across parses.
//
// # Expected types
//
// The Type implementations are Scalar, Any, *Record, *Map, *Array, *Tuple,
// *Union, *Intersection, and *Ref. A Record declares named fields that may
// be renamed from their JSON wire keys and marked required or nilable; keys
// not matching a declared field are governed by the record's rest type. Any
// accepts arbitrary JSON. A Union is resolved by parsing its subtree
// generically and converting to the first member that accepts the value, in
// declaration order. A read-only type freezes its value on completion, after
// which Set and Append panic.
//
// # Projection
//
// With a zero Options the parser is strict: unknown keys, overlong closed
// arrays, and nulls in non-nilable positions are errors. Setting
// AllowProjection instead trims the input to the expected type: unknown keys
// and excess elements are skipped without being built. The AbsentAsNilable
// and NilAsOptional options refine how missing fields and explicit nulls are
// treated; see Options.
//
// # Conversion
//
// Convert applies the same shaping rules to a value that has already been
// parsed, for example one parsed at Any. Parse and Convert agree: parsing a
// document at type T yields the same value as parsing it at Any and
// converting the result to T.
package jshape
