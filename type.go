// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jshape

import "fmt"

// A Kind identifies a scalar type.
type Kind int

// Constants defining the valid Kind values.
const (
	Null    Kind = iota // the null value only
	Bool                // true or false
	Int                 // signed 64-bit integer
	Int8                // signed 8-bit integer
	Int16               // signed 16-bit integer
	Int32               // signed 32-bit integer
	Byte                // unsigned 8-bit integer
	Uint16              // unsigned 16-bit integer
	Uint32              // unsigned 32-bit integer
	Float               // IEEE-754 binary64
	Decimal             // arbitrary-precision decimal
	String              // string
	Char                // string of exactly one rune
)

var kindStr = [...]string{
	Null: "null", Bool: "boolean",
	Int: "int", Int8: "int8", Int16: "int16", Int32: "int32",
	Byte: "byte", Uint16: "uint16", Uint32: "uint32",
	Float: "float", Decimal: "decimal", String: "string", Char: "char",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindStr) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindStr[k]
}

// A Type describes the shape of the value a parse is expected to produce.
// The parser consults the expected type at every structural boundary of the
// input to choose a target representation and to coerce scalar lexemes.
//
// The concrete types in this package are the only implementations.
type Type interface {
	typeLabel() string
}

// Scalar is the type of a single atomic value.
type Scalar struct {
	Kind Kind
}

func (s Scalar) typeLabel() string { return s.Kind.String() }

// Any is the top type: it accepts any JSON value, and descendants of a value
// parsed at Any are themselves parsed at Any.
type Any struct{}

func (Any) typeLabel() string { return "any" }

// A Field describes one declared field of a Record.
type Field struct {
	Name     string // the declared name, used in the output object
	Key      string // the wire name in JSON input; empty means same as Name
	Type     Type
	Required bool // absence is an error unless projected
	Nilable  bool // an explicit or projected null is accepted
}

// wireKey reports the JSON object key that selects f.
func (f *Field) wireKey() string {
	if f.Key != "" {
		return f.Key
	}
	return f.Name
}

// Record is the type of an object with a declared set of fields.  Keys not
// matching any field are governed by Rest; a nil Rest forbids them unless
// projection is enabled.
type Record struct {
	Name     string // optional, used in diagnostics
	Fields   []*Field
	Rest     Type
	ReadOnly bool
}

func (r *Record) typeLabel() string {
	if r.Name != "" {
		return r.Name
	}
	return "record"
}

// fieldMap returns a fresh mapping from wire key to field, in which the
// caller may record consumption by deletion.
func (r *Record) fieldMap() map[string]*Field {
	m := make(map[string]*Field, len(r.Fields))
	for _, f := range r.Fields {
		m[f.wireKey()] = f
	}
	return m
}

// Map is the type of an object with arbitrary keys whose values all share a
// single type.
type Map struct {
	Value    Type
	ReadOnly bool
}

func (*Map) typeLabel() string { return "map" }

// Array is the type of a sequence with a uniform element type.  A negative
// Size leaves the array open; otherwise the array is closed at Size elements.
//
// A closed array accepts fewer elements than Size; the parsed value then has
// only the elements the document supplied. Excess elements are an error
// unless projection is enabled, in which case they are dropped.
type Array struct {
	Elem     Type
	Size     int
	ReadOnly bool
}

func (*Array) typeLabel() string { return "array" }

// Tuple is the type of a sequence with per-position element types. A tuple
// is closed at len(Elems) elements, with the same overflow rules as a closed
// Array.
type Tuple struct {
	Elems    []Type
	ReadOnly bool
}

func (*Tuple) typeLabel() string { return "tuple" }

// Union is the type of a value matching any one of its members. Input for a
// union subtree is parsed generically and then converted to the first member
// that accepts it, in declaration order.
type Union struct {
	Members []Type
}

func (u *Union) typeLabel() string { return "union" }

// Intersection describes an intersection type. Only intersections whose
// effective type is read-only are supported: the value is parsed at the
// effective type and frozen.
type Intersection struct {
	Members   []Type
	Effective Type
}

func (*Intersection) typeLabel() string { return "intersection" }

// Ref is a named alias for another type. It is dereferenced on entry, so a
// Ref may be used to build recursive types.
type Ref struct {
	Name string
	To   Type
}

func (r *Ref) typeLabel() string { return r.Name }

// Nilable wraps t so that it also accepts null.
func Nilable(t Type) Type { return &Union{Members: []Type{t, Scalar{Kind: Null}}} }

// resolveType dereferences aliases and reduces intersections to their
// effective type. It reports UnsupportedType for an intersection whose
// effective type is not read-only, and for a nil or unterminated alias.
func resolveType(t Type) (Type, error) {
	for i := 0; ; i++ {
		if i > maxRefDepth {
			return nil, errorf(UnsupportedType, "alias chain does not terminate")
		}
		switch v := t.(type) {
		case nil:
			return nil, errorf(UnsupportedType, "nil expected type")
		case *Ref:
			t = v.To
		case *Intersection:
			eff, err := resolveType(v.Effective)
			if err != nil {
				return nil, err
			} else if !isReadOnly(eff) {
				return nil, errorf(UnsupportedType,
					"intersection with non-readonly effective type %s", eff.typeLabel())
			}
			return eff, nil
		default:
			return t, nil
		}
	}
}

// maxRefDepth bounds alias dereferencing so a cyclic Ref chain with no
// structural type in between cannot loop forever.
const maxRefDepth = 1000

// isReadOnly reports whether values of type t must be frozen once complete.
// Scalars are immutable and never require freezing.
func isReadOnly(t Type) bool {
	switch v := t.(type) {
	case *Record:
		return v.ReadOnly
	case *Map:
		return v.ReadOnly
	case *Array:
		return v.ReadOnly
	case *Tuple:
		return v.ReadOnly
	default:
		return false
	}
}

// isNilableType reports whether t accepts an explicit null. Aliases must
// already be resolved by the caller.
func isNilableType(t Type) bool {
	switch v := t.(type) {
	case Scalar:
		return v.Kind == Null
	case Any:
		return true
	case *Union:
		for _, m := range v.Members {
			rm, err := resolveType(m)
			if err == nil && isNilableType(rm) {
				return true
			}
		}
	}
	return false
}
